package profile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Holder serves the current profile and swaps it atomically on reload.
type Holder struct {
	path    string
	current atomic.Pointer[Profile]
	reloads atomic.Int64
}

// NewHolder loads path. A missing file is tolerated (empty profile, warning);
// a malformed one is an error.
func NewHolder(path string) (*Holder, error) {
	h := &Holder{path: path}
	p, err := Load(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("profile not found, answering without candidate context", "path", path)
	default:
		return nil, err
	}
	h.current.Store(p)
	return h, nil
}

// Current returns the active profile. Never nil.
func (h *Holder) Current() *Profile {
	if p := h.current.Load(); p != nil {
		return p
	}
	return &Profile{}
}

func (h *Holder) Path() string { return h.path }

// Reloads reports how many successful reloads happened.
func (h *Holder) Reloads() int64 { return h.reloads.Load() }

// Reload re-reads the file. On error the previous profile stays active.
func (h *Holder) Reload() error {
	p, err := Load(h.path)
	if err != nil {
		return err
	}
	h.current.Store(p)
	h.reloads.Add(1)
	return nil
}

const reloadDebounce = 300 * time.Millisecond

// Watch reloads the profile whenever its file changes, until ctx is done.
// The parent directory is watched so editors that replace the file on save
// are handled.
func (h *Holder) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create profile watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(h.path)
	slog.Info("watching profile for changes", "path", target)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce: editors often emit several events per save.
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := h.Reload(); err != nil {
				slog.Warn("profile reload failed, keeping previous profile", "path", target, "error", err)
				continue
			}
			slog.Info("profile reloaded", "path", target)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("profile watcher error", "error", err)
		}
	}
}
