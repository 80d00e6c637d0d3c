package loudness_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loudsync/internal/loudness"
	"loudsync/internal/services"
)

type stubRunner struct {
	lines []string
	err   error
	calls [][]string
}

func (s *stubRunner) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	s.calls = append(s.calls, append([]string{binary}, args...))
	for _, line := range s.lines {
		onLine(line)
	}
	return s.err
}

var analysisOutput = []string{
	"Input #0, wav, from 'track.wav':",
	"  Duration: 00:03:03.43, bitrate: 1536 kb/s",
	"[Parsed_loudnorm_0 @ 0x55e] ",
	"{",
	"\t\"input_i\" : \"-12.84\",",
	"\t\"input_tp\" : \"1.28\",",
	"\t\"input_lra\" : \"11.00\",",
	"\t\"input_thresh\" : \"-23.47\",",
	"\t\"output_i\" : \"-16.02\",",
	"\t\"target_offset\" : \"0.42\"",
	"}",
	"size=N/A time=00:03:03.43 bitrate=N/A speed= 612x",
}

func TestMeasureParsesResultBlock(t *testing.T) {
	runner := &stubRunner{lines: analysisOutput}
	analyzer := loudness.NewAnalyzer("ffmpeg", runner, nil)

	stats, err := analyzer.Measure(t.Context(), "track.wav", -16.0, -1.5)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if stats.IntegratedLUFS != -12.84 {
		t.Fatalf("IntegratedLUFS = %v, want -12.84", stats.IntegratedLUFS)
	}
	if stats.TruePeakDBTP != 1.28 {
		t.Fatalf("TruePeakDBTP = %v, want 1.28", stats.TruePeakDBTP)
	}
	if stats.LoudnessRangeDB != 11.0 {
		t.Fatalf("LoudnessRangeDB = %v, want 11.0", stats.LoudnessRangeDB)
	}
	if stats.Threshold != -23.47 {
		t.Fatalf("Threshold = %v, want -23.47", stats.Threshold)
	}
	if stats.TargetOffset != 0.42 {
		t.Fatalf("TargetOffset = %v, want 0.42", stats.TargetOffset)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("expected one invocation, got %d", len(runner.calls))
	}
	call := strings.Join(runner.calls[0], " ")
	if !strings.Contains(call, "loudnorm=I=-16:TP=-1.5:LRA=11:print_format=json") {
		t.Fatalf("unexpected analysis filter: %s", call)
	}
	if !strings.Contains(call, "-f null -") {
		t.Fatalf("analysis must not write output: %s", call)
	}
}

func TestMeasureIsDeterministic(t *testing.T) {
	runner := &stubRunner{lines: analysisOutput}
	analyzer := loudness.NewAnalyzer("ffmpeg", runner, nil)

	first, err := analyzer.Measure(t.Context(), "track.wav", -16.0, -1.5)
	if err != nil {
		t.Fatalf("first Measure: %v", err)
	}
	second, err := analyzer.Measure(t.Context(), "track.wav", -16.0, -1.5)
	if err != nil {
		t.Fatalf("second Measure: %v", err)
	}
	if first != second {
		t.Fatalf("measurements differ: %+v vs %+v", first, second)
	}
}

func TestMeasureNoResultBlock(t *testing.T) {
	runner := &stubRunner{lines: []string{
		"Input #0, wav, from 'track.wav':",
		"size=N/A time=00:03:03.43",
	}}
	analyzer := loudness.NewAnalyzer("ffmpeg", runner, nil)

	_, err := analyzer.Measure(t.Context(), "track.wav", -16.0, -1.5)
	if !errors.Is(err, loudness.ErrNoResult) {
		t.Fatalf("expected ErrNoResult, got %v", err)
	}
}

func TestMeasureUndecodableBlockIsNoResult(t *testing.T) {
	runner := &stubRunner{lines: []string{"{ not json }"}}
	analyzer := loudness.NewAnalyzer("ffmpeg", runner, nil)

	_, err := analyzer.Measure(t.Context(), "track.wav", -16.0, -1.5)
	if !errors.Is(err, loudness.ErrNoResult) {
		t.Fatalf("expected ErrNoResult, got %v", err)
	}
}

func TestMeasureProcessFailure(t *testing.T) {
	runner := &stubRunner{
		lines: []string{"track.wav: Invalid data found when processing input"},
		err:   fmt.Errorf("wait command: exit status 1"),
	}
	analyzer := loudness.NewAnalyzer("ffmpeg", runner, nil)

	_, err := analyzer.Measure(t.Context(), "track.wav", -16.0, -1.5)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid data") {
		t.Fatalf("captured text missing from error: %v", err)
	}
}

func TestMeasureTimeoutPassesThrough(t *testing.T) {
	runner := &stubRunner{err: fmt.Errorf("%w: ffmpeg exceeded 1s", services.ErrTimeout)}
	analyzer := loudness.NewAnalyzer("ffmpeg", runner, nil)

	_, err := analyzer.Measure(t.Context(), "track.wav", -16.0, -1.5)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loudness_measurement.csv")
	records := []loudness.Record{
		{
			File:   "a.wav",
			Stats:  &loudness.Stats{IntegratedLUFS: -12.84, TruePeakDBTP: 1.28, LoudnessRangeDB: 11.0},
			Status: loudness.StatusOK,
		},
		{File: "b.wav", Status: "NO_RESULT"},
	}
	if err := loudness.WriteCSV(path, records); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "file,integrated_lufs,loudness_range,true_peak_dbtp,status" {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if lines[1] != "a.wav,-12.84,11,1.28,OK" {
		t.Fatalf("unexpected OK row: %s", lines[1])
	}
	if lines[2] != "b.wav,,,,NO_RESULT" {
		t.Fatalf("failure row must have empty numeric fields: %s", lines[2])
	}
}
