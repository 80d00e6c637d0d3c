package pipeline

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"loudsync/internal/ffmpeg"
)

// scannedInput is one file found under the input directory.
type scannedInput struct {
	path      string
	supported bool
}

// scanInputs walks the input directory recursively and returns every
// regular file in sorted order. Files outside the recognized extension
// set are kept so the batch can record them as skipped.
func scanInputs(root string) ([]scannedInput, error) {
	var inputs []scannedInput
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") && path != root {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		inputs = append(inputs, scannedInput{
			path:      path,
			supported: ffmpeg.SupportedInputExt(filepath.Ext(name)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan input directory: %w", err)
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].path < inputs[j].path })
	return inputs, nil
}
