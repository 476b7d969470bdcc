// Package watcher reruns an action whenever a directory tree changes.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	// DefaultDebounce is how long a burst of events must stay quiet before the action runs.
	DefaultDebounce = 200 * time.Millisecond
	// defaultMaxWaitFactor bounds a burst at this many debounce periods when MaxWait is unset.
	defaultMaxWaitFactor = 5

	errorEmptyRoot        = "watch root must be set"
	errorCreateWatcher    = "creating filesystem watcher: %w"
	errorAddDirectory     = "watching %s: %w"
	actionFailedMessage   = "rebuild failed"
	watcherErrorMessage   = "filesystem watcher error"
	changeDetectedMessage = "change detected"
)

// Options configures Watch.
type Options struct {
	Root     string
	Debounce time.Duration
	// MaxWait is the longest a continuous burst delays the action. It
	// defaults to five debounce periods.
	MaxWait time.Duration
	// Ignore reports paths whose events never trigger the action. Ignored
	// directories are not watched.
	Ignore func(path string) bool
	Logger *zap.Logger
}

// Action runs once a burst of changes goes quiet, or once the burst has
// lasted MaxWait. A failing action is logged and watching continues.
type Action func(ctx context.Context) error

// Watch watches Root and every directory below it until ctx is done.
// Directories created later are added as they appear.
func Watch(ctx context.Context, options Options, action Action) error {
	if options.Root == "" {
		return errors.New(errorEmptyRoot)
	}
	if options.Debounce <= 0 {
		options.Debounce = DefaultDebounce
	}
	if options.MaxWait <= 0 {
		options.MaxWait = defaultMaxWaitFactor * options.Debounce
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Ignore == nil {
		options.Ignore = func(string) bool { return false }
	}

	fileWatcher, watcherError := fsnotify.NewWatcher()
	if watcherError != nil {
		return fmt.Errorf(errorCreateWatcher, watcherError)
	}
	defer fileWatcher.Close()

	if addError := addRecursive(fileWatcher, options.Root, options.Ignore); addError != nil {
		return addError
	}

	var debounce, deadline <-chan time.Time
	runAction := func() {
		debounce, deadline = nil, nil
		if actionError := action(ctx); actionError != nil {
			options.Logger.Error(actionFailedMessage, zap.Error(actionError))
		}
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fileWatcher.Events:
			if !ok {
				return nil
			}
			if options.Ignore(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				// Failure here usually means the directory vanished again.
				_ = addRecursive(fileWatcher, event.Name, options.Ignore)
			}
			options.Logger.Debug(changeDetectedMessage, zap.String("path", event.Name), zap.String("op", event.Op.String()))
			debounce = time.After(options.Debounce)
			if deadline == nil {
				deadline = time.After(options.MaxWait)
			}
		case watchError, ok := <-fileWatcher.Errors:
			if !ok {
				return nil
			}
			options.Logger.Warn(watcherErrorMessage, zap.Error(watchError))
		case <-debounce:
			runAction()
		case <-deadline:
			runAction()
		}
	}
}

func addRecursive(fileWatcher *fsnotify.Watcher, root string, ignore func(string) bool) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkError error) error {
		if walkError != nil {
			return walkError
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root && ignore(path) {
			return filepath.SkipDir
		}
		if addError := fileWatcher.Add(path); addError != nil {
			return fmt.Errorf(errorAddDirectory, path, addError)
		}
		return nil
	})
}
