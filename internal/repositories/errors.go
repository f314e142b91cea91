package repositories

import "github.com/pkg/errors"

var (
	// ErrDatasetNotFound is returned when no dataset matches
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrRunNotFound is returned when no analysis run matches
	ErrRunNotFound = errors.New("analysis run not found")
)
