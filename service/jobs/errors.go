package jobs

import "errors"

var (
	// ErrNoExpiration is returned when a job has no expiration
	ErrNoExpiration = errors.New("jobs: job has no expiration")

	// ErrHandleNotFound is returned by backends cancelling an unknown handle
	ErrHandleNotFound = errors.New("jobs: handle not found")

	// ErrNotStarted is returned when jobs fire before the service was started
	ErrNotStarted = errors.New("jobs: service not started")
)
