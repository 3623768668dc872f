package scheduler

import "errors"

var (
	ErrNoJobs         = errors.New("scheduler: no jobs registered")
	ErrDuplicateJob   = errors.New("scheduler: job already registered")
	ErrAlreadyRunning = errors.New("scheduler: already running")
	ErrInvalidJob     = errors.New("scheduler: job name and function are required")
)
