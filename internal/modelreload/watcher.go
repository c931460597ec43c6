// Package modelreload polls a language-model file path on its own
// goroutine and swaps a decoder's active language model between
// utterances, per SPEC_FULL.md §5.E: "grounded on the teacher's
// internal/config.Watcher poll-and-swap pattern. The decoder reads the
// pointer at utterance-start and never during a frame." It never touches
// per-utterance decoder state directly — it only ever writes through the
// atomic.Pointer[lm.Model] a Decoder hands out via LanguageModelPointer.
package modelreload

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
)

// Loader parses the language model at path. The out-of-scope on-disk
// format is the caller's concern; modelreload only needs the resulting
// [lm.Model] and the raw bytes it hashes to detect real content changes.
type Loader func(ctx context.Context, path string) (lm.Model, error)

// Watcher polls path for changes and swaps the parsed model into ptr.
type Watcher struct {
	path     string
	interval time.Duration
	loader   Loader
	ptr      *atomic.Pointer[lm.Model]
	logger   *slog.Logger

	mu        sync.Mutex
	done      chan struct{}
	stopOnce  sync.Once
	lastMtime time.Time
	lastHash  [sha256.Size]byte
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger sets the logger used for reload events and poll failures.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New loads path once synchronously into ptr, then starts polling it for
// changes on a background goroutine until Stop is called.
func New(ptr *atomic.Pointer[lm.Model], path string, loader Loader, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		loader:   loader,
		ptr:      ptr,
		logger:   slog.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	model, hash, mtime, err := w.loadAndHash(context.Background())
	if err != nil {
		return nil, fmt.Errorf("modelreload: initial load of %q: %w", path, err)
	}
	w.ptr.Store(&model)
	w.lastHash = hash
	w.lastMtime = mtime

	go w.poll()
	return w, nil
}

// Stop stops the background poll goroutine. It does not clear ptr: the
// last successfully loaded model stays active.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Warn("modelreload: cannot stat file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	mtime := w.lastMtime
	w.mu.Unlock()

	if info.ModTime().Equal(mtime) {
		return
	}

	model, hash, newMtime, err := w.loadAndHash(context.Background())
	if err != nil {
		w.logger.Warn("modelreload: failed to load", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if hash == w.lastHash {
		w.lastMtime = newMtime
		w.mu.Unlock()
		return
	}
	w.lastHash = hash
	w.lastMtime = newMtime
	w.mu.Unlock()

	w.ptr.Store(&model)
	w.logger.Info("modelreload: language model reloaded", "path", w.path)
}

func (w *Watcher) loadAndHash(ctx context.Context) (lm.Model, [sha256.Size]byte, time.Time, error) {
	var zeroHash [sha256.Size]byte

	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}

	model, err := w.loader(ctx, w.path)
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}

	return model, sha256.Sum256(data), info.ModTime(), nil
}
