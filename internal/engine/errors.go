package engine

import "errors"

var (
	// ErrAlreadyRunning is returned by Start when workers are already running
	ErrAlreadyRunning = errors.New("dispatcher already running")
)
