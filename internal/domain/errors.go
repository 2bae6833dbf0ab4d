package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies decode failures.
type ErrorKind string

const (
	KindContainerOpen       ErrorKind = "container_open"
	KindMissingVariable     ErrorKind = "missing_required_variable"
	KindShapeMismatch       ErrorKind = "shape_mismatch"
	KindUnsupportedEncoding ErrorKind = "unsupported_encoding"
)

// Sentinels for errors.Is. Every *DecodeError matches the sentinel of its kind.
var (
	ErrContainerOpen       = errors.New("container open failed")
	ErrMissingVariable     = errors.New("missing required variable")
	ErrShapeMismatch       = errors.New("shape mismatch")
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
)

// DecodeError describes why a container could not be turned into a Radar.
type DecodeError struct {
	Kind     ErrorKind
	Variable string
	Expected string
	Actual   string
	Err      error
}

func (e *DecodeError) Error() string {
	msg := string(e.Kind)
	if e.Variable != "" {
		msg += fmt.Sprintf(" %q", e.Variable)
	}
	if e.Expected != "" || e.Actual != "" {
		msg += fmt.Sprintf(": expected %s, got %s", e.Expected, e.Actual)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is matches the kind sentinel so callers can write errors.Is(err, ErrShapeMismatch).
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrContainerOpen:
		return e.Kind == KindContainerOpen
	case ErrMissingVariable:
		return e.Kind == KindMissingVariable
	case ErrShapeMismatch:
		return e.Kind == KindShapeMismatch
	case ErrUnsupportedEncoding:
		return e.Kind == KindUnsupportedEncoding
	}
	return false
}

// ContainerOpenError wraps a failure to open the archive at path.
func ContainerOpenError(path string, err error) *DecodeError {
	return &DecodeError{Kind: KindContainerOpen, Variable: path, Err: err}
}

func missingVariable(name string) *DecodeError {
	return &DecodeError{Kind: KindMissingVariable, Variable: name}
}

func shapeMismatch(name string, expected, actual any) *DecodeError {
	return &DecodeError{
		Kind:     KindShapeMismatch,
		Variable: name,
		Expected: fmt.Sprint(expected),
		Actual:   fmt.Sprint(actual),
	}
}

func unsupportedEncoding(name, detail string) *DecodeError {
	return &DecodeError{Kind: KindUnsupportedEncoding, Variable: name, Err: errors.New(detail)}
}

// ErrorKindOf returns the kind of a decode failure, or "other" for errors
// that did not come from the decoder.
func ErrorKindOf(err error) string {
	var de *DecodeError
	if errors.As(err, &de) {
		return string(de.Kind)
	}
	return "other"
}
