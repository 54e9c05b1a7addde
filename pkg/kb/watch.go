package kb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for writes to settle before reloading.
const DefaultDebounce = 250 * time.Millisecond

// Holder publishes the current knowledge base snapshot. Readers get whole
// snapshots; a reload never modifies a Base that was already handed out.
type Holder struct {
	current atomic.Pointer[Base]
}

func NewHolder(b *Base) *Holder {
	h := &Holder{}
	h.current.Store(b)
	return h
}

// Get returns the current snapshot.
func (h *Holder) Get() *Base {
	return h.current.Load()
}

// Set replaces the current snapshot.
func (h *Holder) Set(b *Base) {
	h.current.Store(b)
}

// ReloadFunc is called after every reload attempt with either the new snapshot or the error.
type ReloadFunc func(*Base, error)

// Watch reloads the knowledge base in dir into h whenever one of its
// documents changes, until ctx is done. A reload that fails to load or has
// validation errors keeps the previous snapshot.
func Watch(ctx context.Context, dir string, h *Holder, debounce time.Duration, fn ReloadFunc) error {
	if dir == "" {
		return errors.New("knowledge base directory required")
	}
	if h == nil {
		return errors.New("knowledge base holder required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("error watching %s: %w", dir, err)
	}

	slog.Info("watching knowledge base", "dir", dir)

	go func() {
		defer w.Close()

		timer := time.NewTimer(debounce)
		timer.Stop()

		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if !isDocument(ev.Name) {
					continue
				}
				slog.Debug("knowledge base change", "file", ev.Name, "op", ev.Op.String())
				timer.Reset(debounce)
			case <-timer.C:
				b, err := reload(ctx, dir, h)
				if fn != nil {
					fn(b, err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Error("knowledge base watcher error", "error", err)
			}
		}
	}()

	return nil
}

func reload(ctx context.Context, dir string, h *Holder) (*Base, error) {
	b, err := Load(ctx, dir)
	if err != nil {
		slog.Error("knowledge base reload failed, keeping previous", "dir", dir, "error", err)
		return nil, err
	}

	issues := Validate(b)
	if HasErrors(issues) {
		err := fmt.Errorf("%w: %s", ErrInvalid, issues[0])
		slog.Error("knowledge base reload rejected, keeping previous", "dir", dir, "error", err)
		return nil, err
	}

	h.Set(b)
	slog.Info("knowledge base reloaded", "dir", dir, "algorithms", len(b.Algorithms), "warnings", len(issues))
	return b, nil
}

func isDocument(name string) bool {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	switch ext {
	case extJSON, extYAML, extYML:
	default:
		return false
	}
	switch strings.TrimSuffix(base, ext) {
	case AlgorithmsFile, StandardsFile, UseCasesFile:
		return true
	}
	return false
}
