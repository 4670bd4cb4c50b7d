package cli

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"voicekeep/internal/watchfolder"
	"voicekeep/pkg/logger"
)

// debounceWindow coalesces bursts of filesystem events (a cloud-sync
// client writing many files at once) into a single extra scan.
const debounceWindow = 2 * time.Second

// watchInboxFsnotify accelerates Ingester.ScanOnce with fsnotify events
// on top of its ticker, without making the ticker itself event-driven:
// the ticker stays authoritative (spec's watched directory is a
// cloud-sync folder, which does not reliably emit clean fsnotify
// events), fsnotify only shortens the wait when events do arrive.
func watchInboxFsnotify(ctx context.Context, dir string, ing *watchfolder.Ingester) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("fsnotify: unavailable, relying on ticker only", "error", err)
		<-ctx.Done()
		return nil
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		logger.Warn("fsnotify: cannot watch directory, relying on ticker only", "dir", dir, "error", err)
		<-ctx.Done()
		return nil
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watcher.Errors:
			logger.Warn("fsnotify: watch error", "error", err)
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				timer.Reset(debounceWindow)
			}
		case <-timerC:
			if err := ing.ScanOnce(ctx); err != nil {
				logger.Warn("watchfolder: fsnotify-triggered scan failed", "error", err)
			}
		}
	}
}
