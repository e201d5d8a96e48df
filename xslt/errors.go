package xslt

import (
	"errors"
	"fmt"
)

var (
	ErrCircular   = errors.New("circular reference")
	ErrUndefined  = errors.New("undefined")
	ErrNoTemplate = errors.New("no template")
	ErrTerminate  = errors.New("terminate")
	ErrDuplicate  = errors.New("duplicate definition")
	ErrType       = errors.New("invalid type")
)

// TerminateError is returned when a message asks to stop the transformation.
type TerminateError struct {
	Message string
}

func (e *TerminateError) Error() string {
	if e.Message == "" {
		return ErrTerminate.Error()
	}
	return fmt.Sprintf("%s: %s", ErrTerminate, e.Message)
}

func (e *TerminateError) Unwrap() error {
	return ErrTerminate
}

func undefinedVariable(name string) error {
	return fmt.Errorf("variable %s: %w", name, ErrUndefined)
}

func undefinedKey(name string) error {
	return fmt.Errorf("key %s: %w", name, ErrUndefined)
}

func circularVariable(name string) error {
	return fmt.Errorf("variable %s: %w", name, ErrCircular)
}
