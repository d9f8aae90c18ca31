package config

import (
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a configuration file and invokes a reload callback
// after changes have settled. The debounce window absorbs editors that
// perform atomic writes (write to temp file, then rename).
type Watcher struct {
	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	stopChan  chan struct{}
	stopped   bool
}

// NewWatcher starts watching path. onReload receives the path after
// debounceDelay has elapsed with no further changes.
func NewWatcher(path string, debounceDelay time.Duration, onReload func(path string)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  watcher,
		stopChan: make(chan struct{}),
	}

	w.debouncer = newDebouncer(debounceDelay, func() {
		onReload(path)
	})

	go w.watchLoop()

	return w, nil
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Write, Create and Rename all show up for atomic-write editors
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.debouncer.trigger()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config watcher error: %v", err)
		}
	}
}

// Stop terminates the watcher and cancels any pending reload.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.stopped = true
	close(w.stopChan)
	w.debouncer.stop()
	w.watcher.Close()
}
