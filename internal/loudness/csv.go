package loudness

import (
	"encoding/csv"
	"fmt"
	"os"
)

// StatusOK is the CSV status value for a successful measurement. Failed
// measurements carry a short failure tag instead and leave the numeric
// columns empty.
const StatusOK = "OK"

// Record is one measurement report row.
type Record struct {
	File   string
	Stats  *Stats
	Status string
}

var csvHeader = []string{"file", "integrated_lufs", "loudness_range", "true_peak_dbtp", "status"}

// WriteCSV persists the measurement report, one row per input file.
func WriteCSV(path string, records []Record) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create measurement csv: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, record := range records {
		row := []string{record.File, "", "", "", record.Status}
		if record.Status == StatusOK && record.Stats != nil {
			row[1] = FormatValue(record.Stats.IntegratedLUFS)
			row[2] = FormatValue(record.Stats.LoudnessRangeDB)
			row[3] = FormatValue(record.Stats.TruePeakDBTP)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush measurement csv: %w", err)
	}
	return nil
}
