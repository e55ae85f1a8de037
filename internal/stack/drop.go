package stack

import (
	"errors"
	"io/fs"
	"os"

	"github.com/roach88/datastack/internal/coordinator"
)

// Drop discards the coordinator and both cached contexts, closes the store,
// and deletes the durable files. The next accessor call opens a fresh
// store. Failures are logged. Dropping an unopened stack only deletes files.
//
// Contexts handed out before Drop keep pointing at the closed store.
func (s *Stack) Drop() {
	path, err := s.Location()
	if err != nil {
		s.logger.Warn("could not resolve store location", "error", err)
	}

	s.mu.Lock()
	old := s.st
	s.st = state{}
	s.mu.Unlock()

	if old.main != nil {
		s.registry.UnlinkTarget(old.main)
	}
	if old.coord != nil {
		if err := old.coord.Close(); err != nil {
			s.logger.Warn("could not close store", "error", err)
		}
	}

	if path == "" {
		s.logger.Debug("dropped in-memory store", "model", s.cfg.ModelName)
		return
	}

	files := coordinator.StoreFiles(path)
	for _, f := range []string{files[2], files[1], files[0]} {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("could not delete store file", "path", f, "error", err)
		}
	}
	s.logger.Info("dropped store", "path", path)
}
