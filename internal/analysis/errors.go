package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks uploads that were rejected before any processing.
	ErrInvalidInput = errors.New("invalid input")
	// ErrValidation marks requests whose shape is wrong, such as a missing
	// form field.
	ErrValidation = errors.New("validation error")
	// ErrInternal marks failures inside the pipeline. Details are logged,
	// never returned to clients.
	ErrInternal = errors.New("internal error")
)

var (
	ErrNoFile            = fmt.Errorf("%w: no file uploaded", ErrInvalidInput)
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported file format", ErrInvalidInput)
	ErrTooLarge          = fmt.Errorf("%w: file too large", ErrInvalidInput)
	ErrMissingFile       = fmt.Errorf("%w: file field is required", ErrValidation)
)
