package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// namer resolves final output paths. Collisions against existing files
// (when overwrite is off) and against paths already claimed in this run
// get a _norm suffix; two claims never resolve to the same path.
type namer struct {
	mu        sync.Mutex
	overwrite bool
	reserved  map[string]struct{}
}

func newNamer(overwrite bool) *namer {
	return &namer{overwrite: overwrite, reserved: make(map[string]struct{})}
}

// reserve claims a deterministic, collision-free output path for
// base+ext inside dir. ext includes the leading dot.
func (n *namer) reserve(dir, base, ext string) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	candidate := filepath.Join(dir, base+ext)
	for suffix := 0; ; suffix++ {
		name := base
		switch {
		case suffix == 1:
			name += "_norm"
		case suffix > 1:
			name += fmt.Sprintf("_norm%d", suffix)
		}
		candidate = filepath.Join(dir, name+ext)
		if n.available(candidate) {
			break
		}
	}
	n.reserved[candidate] = struct{}{}
	return candidate
}

func (n *namer) available(path string) bool {
	if _, claimed := n.reserved[path]; claimed {
		return false
	}
	if n.overwrite {
		return true
	}
	_, err := os.Stat(path)
	return os.IsNotExist(err)
}

// outputBase strips the extension from an input path's final element.
func outputBase(inputPath string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// outputExt picks the output extension for an input, preferring the
// configured container and falling back to the input's own.
func outputExt(inputPath, configured string) string {
	if configured != "" {
		return "." + configured
	}
	ext := strings.ToLower(filepath.Ext(inputPath))
	if ext == "" {
		ext = ".wav"
	}
	return ext
}
