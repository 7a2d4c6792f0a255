package interview

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidState    = errors.New("invalid session state")
)

// GenerationError wraps a failed call to the Generator.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return "generate " + e.Op + ": " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
