package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrUnresolved marks a required external tool that could not be located.
// A run must not touch any input file once this is returned.
var ErrUnresolved = errors.New("dependency unresolved")

// executablePath is swapped in tests to point the bundled-binary lookup at
// a temp directory.
var executablePath = os.Executable

// Resolve locates the named external tool. Lookup order: the explicitly
// configured path, a PATH search, then a bundled bin/ directory next to
// the running executable.
func Resolve(name, configured string) (string, error) {
	configured = strings.TrimSpace(configured)
	if configured != "" {
		info, err := os.Stat(configured)
		if err != nil {
			return "", fmt.Errorf("%w: configured %s path %q: %v", ErrUnresolved, name, configured, err)
		}
		if !isExecutable(info) {
			return "", fmt.Errorf("%w: configured %s path %q is not executable", ErrUnresolved, name, configured)
		}
		return configured, nil
	}

	if resolved, err := exec.LookPath(name); err == nil {
		return resolved, nil
	}

	if candidate, ok := bundledCandidate(name); ok {
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s not found (set paths.%s, install it on PATH, or place it in bin/ next to the loudsync executable)", ErrUnresolved, name, name)
}

// bundledCandidate returns the path a bundled copy of the tool would have,
// a bin/ directory beside the running executable.
func bundledCandidate(name string) (string, bool) {
	self, err := executablePath()
	if err != nil {
		return "", false
	}
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(self), "bin", name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
