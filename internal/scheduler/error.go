package scheduler

import "errors"

var (
	ErrInvalidTask     = errors.New("task needs a name and a function")
	ErrInvalidInterval = errors.New("task interval must be positive")
	ErrDuplicateTask   = errors.New("task already registered")
	ErrUnknownTask     = errors.New("unknown task")
)
