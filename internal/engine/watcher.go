package engine

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// backingFileWatcher is the diagnostic-only fsnotify watch described in
// SPEC_FULL.md §4.8, adapted from the teacher's fsnotify-driven
// DirToBlobsMirror. It never gates an operation — it only logs a warning
// if the backing file disappears or is replaced out from under the
// engine, which the spec's Non-goals already say the engine does not
// guard against.
type backingFileWatcher struct {
	watcher  *fsnotify.Watcher
	baseName string
	done     chan struct{}
}

func newBackingFileWatcher(path string, logger *Logger) (*backingFileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	bw := &backingFileWatcher{
		watcher:  watcher,
		baseName: filepath.Base(path),
		done:     make(chan struct{}),
	}

	go bw.run(logger)
	return bw, nil
}

func (bw *backingFileWatcher) run(logger *Logger) {
	for {
		select {
		case event, ok := <-bw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != bw.baseName {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Warn("watch", fmt.Sprintf("backing file %s was removed or renamed externally", event.Name))
			}
		case err, ok := <-bw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watch", fmt.Sprintf("backing file watch error: %v", err))
		case <-bw.done:
			return
		}
	}
}

func (bw *backingFileWatcher) stop() {
	close(bw.done)
	bw.watcher.Close()
}
