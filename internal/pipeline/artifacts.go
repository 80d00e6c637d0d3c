package pipeline

import (
	"log/slog"
	"os"
	"sync"

	"loudsync/internal/logging"
)

// artifactSet tracks intermediate outputs owned by the orchestrator. An
// artifact is released as soon as its consuming stage completes unless the
// run keeps intermediates.
type artifactSet struct {
	mu   sync.Mutex
	keep bool
	live map[string]struct{}
}

func newArtifactSet(keep bool) *artifactSet {
	return &artifactSet{keep: keep, live: make(map[string]struct{})}
}

func (a *artifactSet) track(path string) {
	if path == "" {
		return
	}
	a.mu.Lock()
	a.live[path] = struct{}{}
	a.mu.Unlock()
}

// release removes the artifact once nothing will consume it again.
func (a *artifactSet) release(path string, logger *slog.Logger) {
	if path == "" {
		return
	}
	a.mu.Lock()
	_, tracked := a.live[path]
	delete(a.live, path)
	a.mu.Unlock()
	if !tracked || a.keep {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) && logger != nil {
		logger.Warn("remove intermediate artifact", logging.String("path", path), logging.Error(err))
	}
}

// cleanup removes every remaining artifact at end of run.
func (a *artifactSet) cleanup(logger *slog.Logger) {
	a.mu.Lock()
	remaining := make([]string, 0, len(a.live))
	for path := range a.live {
		remaining = append(remaining, path)
	}
	a.live = make(map[string]struct{})
	a.mu.Unlock()

	if a.keep {
		return
	}
	for _, path := range remaining {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) && logger != nil {
			logger.Warn("remove intermediate artifact", logging.String("path", path), logging.Error(err))
		}
	}
}
