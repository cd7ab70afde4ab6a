package config

import (
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchFile watches a single path for writes/creates (editors commonly
// write a new inode and rename over the original, so the parent directory
// is watched rather than the file itself) and invokes onWrite, debounced,
// whenever the watched file changes. Setup errors are returned; onError
// receives fsnotify-internal errors while watching and never aborts the watch.
func watchFile(targetPath string, onWrite func(), onError func(error)) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := parentDir(targetPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		var timer *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != targetPath {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, onWrite)
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config: watcher error", "err", watchErr)
				if onError != nil {
					onError(watchErr)
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}

func parentDir(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[:i]
		}
	}
	return "."
}
