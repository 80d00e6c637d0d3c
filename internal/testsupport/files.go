package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteInput drops a placeholder media file under the config's input
// directory and returns its absolute path. Parent directories are created
// so nested batches can be staged in one call.
func WriteInput(t testing.TB, inputDir, name string) string {
	t.Helper()

	path := filepath.Join(inputDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("audio "+name), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
