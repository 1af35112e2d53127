// Package editor provides the file-backed program source consumed by
// the execution core: code read/write, the requested highlight range,
// and a change watch used to refresh the bubble map after out-of-band
// edits.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// Source is a flow program backed by a file on disk.
type Source struct {
	mu     sync.RWMutex
	logger *slog.Logger

	path string
	code string

	highlightStart int
	highlightEnd   int
}

// Open reads the program source at path.
func Open(path string, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow source: %w", err)
	}
	return &Source{logger: logger, path: path, code: string(data)}, nil
}

// Path returns the backing file path.
func (s *Source) Path() string { return s.path }

// Code returns the current program text.
func (s *Source) Code() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.code
}

// SetCode replaces the program text and writes it back to disk.
func (s *Source) SetCode(code string) error {
	s.mu.Lock()
	s.code = code
	s.mu.Unlock()
	if err := os.WriteFile(s.path, []byte(code), 0o644); err != nil {
		return fmt.Errorf("write flow source: %w", err)
	}
	return nil
}

// HighlightLines records the requested source highlight range for the
// editor surface to render.
func (s *Source) HighlightLines(start, end int) {
	s.mu.Lock()
	s.highlightStart = start
	s.highlightEnd = end
	s.mu.Unlock()
}

// HighlightedLines returns the requested range, zeros when none.
func (s *Source) HighlightedLines() (start, end int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.highlightStart, s.highlightEnd
}

// Reload re-reads the backing file, returning whether the text changed.
func (s *Source) Reload() (bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false, fmt.Errorf("reload flow source: %w", err)
	}
	s.mu.Lock()
	changed := s.code != string(data)
	s.code = string(data)
	s.mu.Unlock()
	return changed, nil
}

// Watch blocks until ctx is done, invoking onChange (debounced) after
// every write to the backing file that alters its content.
func (s *Source) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.path); err != nil {
		return fmt.Errorf("watch flow source: %w", err)
	}

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-watcher.Events:
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				changed, err := s.Reload()
				if err != nil {
					s.logger.Error("reload after change failed", "error", err)
					return
				}
				if changed {
					s.logger.Debug("flow source changed", "file", s.path)
					onChange()
				}
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}
