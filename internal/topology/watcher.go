package topology

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/fsnotify/fsnotify"
)

const (
	defaultRetryInterval       = time.Second
	maxRetriesIfFileNotChanged = 2
)

// Watcher applies a topology file and then re-applies it whenever the file changes.
//
// A reload that fails (because the file is missing, or is being rewritten and is not yet valid) keeps
// the current topology and is retried a few times.
type Watcher struct {
	filePath      string
	target        Target
	costs         CostSetter
	retryInterval time.Duration
	current       Topology
	watcher       *fsnotify.Watcher
	loggers       ldlog.Loggers
	closeCh       chan struct{}
	closeOnce     sync.Once
}

// NewWatcher reads the topology file, applies it, and starts watching it. It fails if the file cannot
// be read; a failure to apply some of the changes is only logged.
func NewWatcher(
	filePath string,
	target Target,
	costs CostSetter,
	retryInterval time.Duration,
	loggers ldlog.Loggers,
) (*Watcher, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, errCannotReadTopologyFile(filePath, err)
	}

	w := &Watcher{
		filePath:      filePath,
		target:        target,
		costs:         costs,
		retryInterval: retryInterval,
		loggers:       loggers,
		closeCh:       make(chan struct{}),
	}
	if w.retryInterval == 0 {
		w.retryInterval = defaultRetryInterval
	}
	w.loggers.SetPrefix("[Topology]")

	t, err := ReadFile(filePath, w.loggers)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errCreateWatcherFailed(filePath, err) // COVERAGE: can't cause this condition in unit tests
	}
	if err := watcher.Add(filePath); err != nil {
		_ = watcher.Close()
		return nil, errCreateWatcherFailed(filePath, err) // COVERAGE: can't cause this condition in unit tests
	}
	w.watcher = watcher

	w.apply(t, true)
	w.loggers.Infof(logMsgWatching, filePath)
	go w.run(fileInfo)

	return w, nil
}

// Close stops watching the file.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.closeCh)
	})
}

func (w *Watcher) apply(t Topology, initial bool) {
	if err := Apply(context.Background(), w.target, w.costs, w.current, t, initial, w.loggers); err != nil {
		w.loggers.Warn(logMsgReloadApplyError)
	}
	w.current = t
}

func (w *Watcher) run(originalFileInfo os.FileInfo) {
	lastFileInfo := originalFileInfo
	retryCh := make(chan struct{})
	needRetry := false
	retriedCountSinceLastChange := 0
	var lastError error

	scheduleRetry := func() {
		needRetry = true
		time.AfterFunc(w.retryInterval, func() {
			select {
			case retryCh <- struct{}{}:
			default:
			}
		})
	}

	maybeReload := func() {
		curFileInfo, err := os.Stat(w.filePath)
		if err == nil {
			if fileMayHaveChanged(curFileInfo, lastFileInfo) {
				retriedCountSinceLastChange = 0
				lastError = nil
				lastFileInfo = curFileInfo
				needRetry = false
				t, err := ReadFile(w.filePath, w.loggers)
				if err != nil {
					// The file may be in the middle of being rewritten, so always retry at least once.
					w.loggers.Warnf(logMsgReloadError, err)
					lastError = err
					scheduleRetry()
					return
				}
				// Some editors replace the file rather than writing it, which ends the watch.
				_ = w.watcher.Add(w.filePath)
				w.loggers.Infof(logMsgReloaded, w.filePath)
				w.apply(t, false)
				return
			}
			if lastError == nil {
				return
			}
		} else if lastError == nil {
			w.loggers.Warn(logMsgReloadFileNotFound)
			lastError = err
		}
		if retriedCountSinceLastChange < maxRetriesIfFileNotChanged {
			retriedCountSinceLastChange++
			w.loggers.Warn(logMsgReloadUnchangedRetry)
			scheduleRetry()
		} else {
			w.loggers.Errorf(logMsgReloadNoMoreRetries, lastError)
		}
	}

	for {
		select {
		case <-w.closeCh:
			_ = w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return // COVERAGE: can't cause this condition in unit tests
			}
			w.loggers.Debugf(logMsgWatcherEvent, event)
			w.consumeExtraEvents()
			maybeReload()

		case err, ok := <-w.watcher.Errors:
			if ok {
				w.loggers.Warnf(logMsgWatcherError, err) // COVERAGE: can't cause this condition in unit tests
			}

		case <-retryCh:
			if needRetry {
				maybeReload()
			} else {
				w.loggers.Debug(logMsgIgnoringObsoleteSignal) // COVERAGE: can't cause this condition in unit tests
			}
		}
	}
}

func (w *Watcher) consumeExtraEvents() {
	for {
		select {
		case <-w.watcher.Events: // COVERAGE: can't simulate this condition in unit tests
		default:
			return
		}
	}
}

func fileMayHaveChanged(oldInfo, newInfo os.FileInfo) bool {
	return oldInfo.ModTime() != newInfo.ModTime() || oldInfo.Size() != newInfo.Size()
}
