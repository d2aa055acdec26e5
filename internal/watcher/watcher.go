// Package watcher holds the trigger sources an operation can be bound to.
//
// Every watcher follows the same shape: handlers are registered with
// HandleFunc before the watcher is started, Run blocks until the watcher
// is stopped or fails, and Stop waits for Run to return until the provided
// context is done.
package watcher

import "errors"

var (
	ErrAlreadyRunning          = errors.New("Already running")
	ErrAlreadyStopped          = errors.New("Already stopped")
	ErrWatchCreateExistingFile = errors.New("Cannot watch for creation of a file that already exists")
	ErrUnsupportedOperation    = errors.New("Unsupported file operation")
	ErrUnsupportedState        = errors.New("Unsupported process state")
)
