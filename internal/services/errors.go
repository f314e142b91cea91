package services

import "github.com/pkg/errors"

var (
	// ErrInvalidRequest wraps request validation failures
	ErrInvalidRequest = errors.New("invalid analysis request")
	// ErrNoPicks is returned when no pick dataset has been uploaded
	ErrNoPicks = errors.New("no picks dataset uploaded")
	// ErrRunFailed is returned when a failed run's report is requested
	ErrRunFailed = errors.New("analysis run failed")
	// ErrSearchDisabled is returned when Elasticsearch is not configured
	ErrSearchDisabled = errors.New("delivery search is disabled")
)
