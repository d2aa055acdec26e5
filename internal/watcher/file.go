package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mickyco94/minuteur/internal/config"
	filewatcher "github.com/radovskyb/watcher"
	"github.com/sirupsen/logrus"
)

var operationMap = map[config.FileOp]filewatcher.Op{
	config.Create: filewatcher.Create,
	config.Remove: filewatcher.Remove,
	config.Rename: filewatcher.Rename,
	config.Update: filewatcher.Write,
}

func NewFile(logger logrus.FieldLogger) *File {
	watcher := filewatcher.New()
	watcher.IgnoreHiddenFiles(false)

	return &File{
		close: make(chan struct{}),
		done:  make(chan struct{}),

		logger:  logger,
		watcher: watcher,
	}
}

type fileEntry struct {
	//path is the full path of the file/directory being watched
	path string
	//dir is set to true if the specified entry is a watch for a directory
	dir bool
	//op is the type of operations we are listening for
	op filewatcher.Op
	//handler will be executed when a match is found
	handler func()
}

// File triggers handlers on changes to files and directories, detected by polling.
type File struct {
	runningMu sync.Mutex
	isRunning bool
	stopped   bool
	close     chan struct{}
	done      chan struct{}

	logger logrus.FieldLogger

	entries []fileEntry
	watcher *filewatcher.Watcher
}

// HandleFunc registers the provided function to be executed, when the provided
// condition has been satisfied.
// An error is returned if the provided condition is not logically complete
//
// Watching for the creation of a file that does not exist yet watches its
// parent directory instead.
func (f *File) HandleFunc(condition *config.File, handler func()) error {
	op, ok := operationMap[condition.Operation]
	if !ok {
		return ErrUnsupportedOperation
	}

	path, err := filepath.Abs(condition.Path)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	exists := err == nil

	switch {
	case exists && !info.IsDir() && op == filewatcher.Create:
		return ErrWatchCreateExistingFile
	case !exists && op == filewatcher.Create:
		err = f.watcher.Add(filepath.Dir(path))
	default:
		err = f.watcher.Add(path)
	}

	if err != nil {
		return err
	}

	f.entries = append(f.entries, fileEntry{
		path:    path,
		dir:     exists && info.IsDir(),
		op:      op,
		handler: handler,
	})

	return nil
}

func (entry fileEntry) matches(event filewatcher.Event) bool {
	if event.Op != entry.op {
		return false
	}

	if event.Path == entry.path {
		return true
	}

	if entry.op == filewatcher.Rename && event.OldPath == entry.path {
		return true
	}

	if entry.dir && entry.path == filepath.Dir(event.Path) {
		return true
	}

	return false
}

// Run polls for changes every pollingInterval, blocking until Stop is called
// or the underlying watcher fails. Run returns straight away when Stop has
// already been called.
func (file *File) Run(pollingInterval time.Duration) error {
	if pollingInterval < time.Nanosecond {
		return filewatcher.ErrDurationTooShort
	}

	file.runningMu.Lock()

	if file.stopped {
		file.runningMu.Unlock()
		return nil
	}

	if file.isRunning {
		file.runningMu.Unlock()
		return ErrAlreadyRunning
	}
	file.isRunning = true

	go func() {
		defer close(file.done)

		for {
			select {
			case <-file.close:
				return
			case event, open := <-file.watcher.Event:
				if !open {
					return
				}

				for _, entry := range file.entries {
					if entry.matches(event) {
						entry.handler()
					}
				}

			case err := <-file.watcher.Error:
				if errors.Is(err, filewatcher.ErrWatchedFileDeleted) {
					file.logger.WithField("event", err.Error()).Debug("Watched file deleted")
					continue
				}
				file.logger.WithError(err).Error("File watcher error")
			}
		}
	}()

	result := make(chan error, 1)
	go func() {
		result <- file.watcher.Start(pollingInterval)
	}()

	// Stop must not Close the watcher before it has started
	file.watcher.Wait()
	file.runningMu.Unlock()

	return <-result
}

// Stop closes the underlying watcher and waits for the event loop to exit.
// Stopping a watcher that has not been run yet keeps it from ever running.
func (file *File) Stop(ctx context.Context) error {
	file.runningMu.Lock()
	defer file.runningMu.Unlock()

	if file.stopped {
		return ErrAlreadyStopped
	}
	file.stopped = true

	file.watcher.Close()
	close(file.close)

	if !file.isRunning {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-file.done:
		return nil
	}
}
