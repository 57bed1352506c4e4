// Package watcher watches a directory for dropped-in NDJSON session files
// and emits one Event per file once it has stopped changing, used by
// cmd/gse-replay's -watch mode. Debounces by file stability: a file must
// go unmodified for the configured interval before it's considered ready.
package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event is one stable session file ready to replay.
type Event struct {
	Path      string
	Timestamp time.Time
}

// Watcher monitors a single directory for new, stable NDJSON files.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dir       string
	interval  time.Duration

	state   map[string]time.Time
	stateMu sync.RWMutex

	events chan Event
	errors chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher over dir with a debounce interval (seconds) a
// file must remain unmodified before it's considered ready to replay.
func New(dir string, debounceSec int) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		dir:       dir,
		interval:  time.Duration(debounceSec) * time.Second,
		state:     make(map[string]time.Time),
		events:    make(chan Event, 64),
		errors:    make(chan error, 8),
		done:      make(chan struct{}),
	}, nil
}

// Events returns the channel of files ready to replay.
func (w *Watcher) Events() <-chan Event { return w.events }

// Errors returns the channel of watcher errors (e.g. stat failures).
func (w *Watcher) Errors() <-chan error { return w.errors }

// Start begins watching the directory, including files already present.
func (w *Watcher) Start() error {
	absDir, err := filepath.Abs(w.dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(absDir, 0750); err != nil {
		return err
	}
	w.dir = absDir

	if err := w.fsWatcher.Add(absDir); err != nil {
		return err
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.trackFile(filepath.Join(absDir, entry.Name()))
		}
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()
	return nil
}

// Stop gracefully shuts down the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return w.fsWatcher.Close()
}

func (w *Watcher) trackFile(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	w.stateMu.Lock()
	w.state[path] = info.ModTime()
	w.stateMu.Unlock()
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() {
				continue
			}
			w.stateMu.Lock()
			w.state[event.Name] = time.Now()
			w.stateMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case now := <-ticker.C:
			w.checkStableFiles(now)
		}
	}
}

func (w *Watcher) checkStableFiles(now time.Time) {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	threshold := now.Add(-w.interval)
	for path, lastMod := range w.state {
		if lastMod.Before(threshold) {
			select {
			case w.events <- Event{Path: path, Timestamp: now}:
				delete(w.state, path)
			default:
			}
		}
	}
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }
