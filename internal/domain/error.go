package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidManifest    = errors.New("image manifest is empty or invalid")
	ErrJobInFlight        = errors.New("job is already processing")
	ErrJobCompleted       = errors.New("job already completed")
	ErrJobNotClaimed      = errors.New("job is not claimed for processing")
	ErrJobNotCompleted    = errors.New("job has not completed yet")
	ErrUnsupportedImage   = errors.New("unsupported image file type")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")
)
