package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stacklok/mcpgateway/pkg/logger"
)

// MinDebounceMs is the minimum allowed debounce window; values below
// this are clamped up.
const MinDebounceMs = 200

// DefaultDebounceMs is used when WatchConfig.DebounceMs is unset.
const DefaultDebounceMs = 250

// Watcher observes the effective config file, every default candidate,
// and their parent directories, re-running Resolve on debounced
// filesystem activity. On a failed reload the previous good tree
// remains live and OnError is invoked; reloads never race because the
// reloader drains one event at a time.
type Watcher struct {
	opts       Options
	debounce   time.Duration
	onApply    func(*Config, Meta)
	onError    func(error)

	fsw    *fsnotify.Watcher
	mu     sync.Mutex
	timer  *time.Timer
	done   chan struct{}
	closed bool
}

// NewWatcher builds a Watcher. debounceMs is clamped to
// [MinDebounceMs, ∞); 0 selects DefaultDebounceMs.
func NewWatcher(opts Options, debounceMs int, onApply func(*Config, Meta), onError func(error)) (*Watcher, error) {
	if debounceMs == 0 {
		debounceMs = DefaultDebounceMs
	}
	if debounceMs < MinDebounceMs {
		debounceMs = MinDebounceMs
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		opts:     opts,
		debounce: time.Duration(debounceMs) * time.Millisecond,
		onApply:  onApply,
		onError:  onError,
		fsw:      fsw,
		done:     make(chan struct{}),
	}

	watchedDirs := map[string]bool{}
	addDir := func(path string) {
		dir := filepath.Dir(path)
		if !watchedDirs[dir] {
			if err := fsw.Add(dir); err == nil {
				watchedDirs[dir] = true
			}
		}
	}
	if opts.CLIPath != "" {
		addDir(opts.CLIPath)
	}
	if opts.EnvPath != "" {
		addDir(opts.EnvPath)
	}
	for _, dir := range defaultCandidateDirs() {
		for _, base := range CandidateBasenames {
			addDir(filepath.Join(dir, base))
		}
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case _, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.scheduleReload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warnf("config watcher: fs error: %v", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

// reload re-runs the full precedence→parse→validate pipeline; on
// failure the previous tree stays live (the caller's handle is only
// swapped by onApply on success).
func (w *Watcher) reload() {
	result, err := Resolve(w.opts)
	if err != nil {
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	if w.onApply != nil {
		w.onApply(result.Config, result.Meta)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	return w.fsw.Close()
}
