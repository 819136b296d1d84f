// Package watcher with a resilient watch on a storage document.
// The access manager watches the authoritative auth record so a swap by the
// companion helper, or any other external edit, triggers a resync.
package watcher

import (
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// debounceDelay collapses bursts of change events into a single callback
const debounceDelay = 100 * time.Millisecond

// WatchFile invokes the handler when the file at path changes.
// Two things make this resilient for storage documents:
//  1. multiple quick changes are debounced before the callback runs
//  2. after the callback the file is re-added, since an atomic rename
//     replaces the inode the original subscription pointed at
//
// Returns the fsnotify watcher; close it when done.
func WatchFile(path string, handler func() error) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logrus.Errorf("WatchFile: unable to create watcher for '%s': %s", path, err)
		return nil, err
	}
	callbackTimer := time.AfterFunc(0, func() {
		logrus.Debugf("WatchFile: document '%s' changed, invoking handler", path)
		handler()
		// renames change the inode of the filename, resubscribe
		watcher.Remove(path)
		watcher.Add(path)
	})
	callbackTimer.Stop() // don't start yet

	err = watcher.Add(path)
	if err != nil {
		logrus.Errorf("WatchFile: unable to watch '%s' for changes: %s", path, err)
		return watcher, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				// the kind of change doesn't matter, reload after the last event
				logrus.Debugf("WatchFile: event %s on '%s'", event, event.Name)
				callbackTimer.Reset(debounceDelay)
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logrus.Errorf("WatchFile: error watching '%s': %s", path, watchErr)
			}
		}
	}()
	return watcher, nil
}
