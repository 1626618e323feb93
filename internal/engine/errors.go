// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"

	"peakform/coach-app/internal/repository"
)

// FaultClass is the error taxonomy of the materialization engine. Handlers
// map classes to HTTP statuses; the retry policy keys off the class rather
// than matching error strings.
type FaultClass int

const (
	FaultUnknown FaultClass = iota
	FaultNotFound
	FaultConflict
	FaultValidation
	FaultTransientStorage
)

func (c FaultClass) String() string {
	switch c {
	case FaultNotFound:
		return "not_found"
	case FaultConflict:
		return "conflict"
	case FaultValidation:
		return "validation"
	case FaultTransientStorage:
		return "transient_storage"
	default:
		return "unknown"
	}
}

// Fault is a classified engine error. It optionally wraps a cause.
type Fault struct {
	Class FaultClass
	msg   string
	cause error
}

func (f *Fault) Error() string {
	if f.cause != nil {
		return f.msg + ": " + f.cause.Error()
	}
	return f.msg
}

func (f *Fault) Unwrap() error {
	return f.cause
}

// NotFoundf builds a FaultNotFound error.
func NotFoundf(format string, args ...any) error {
	return &Fault{Class: FaultNotFound, msg: fmt.Sprintf(format, args...)}
}

// Conflictf builds a FaultConflict error.
func Conflictf(format string, args ...any) error {
	return &Fault{Class: FaultConflict, msg: fmt.Sprintf(format, args...)}
}

// Invalidf builds a FaultValidation error.
func Invalidf(format string, args ...any) error {
	return &Fault{Class: FaultValidation, msg: fmt.Sprintf(format, args...)}
}

// InvalidErr wraps a cause as a FaultValidation error.
func InvalidErr(msg string, cause error) error {
	return &Fault{Class: FaultValidation, msg: msg, cause: cause}
}

// Classify determines the fault class of any error. Repository sentinels
// are mapped so storage-layer errors participate in the taxonomy without
// the repositories importing this package.
func Classify(err error) FaultClass {
	if err == nil {
		return FaultUnknown
	}
	var f *Fault
	if errors.As(err, &f) {
		return f.Class
	}
	if errors.Is(err, repository.ErrNotFound) {
		return FaultNotFound
	}
	if errors.Is(err, repository.ErrTransient) {
		return FaultTransientStorage
	}
	return FaultUnknown
}

// IsTransient reports whether the error belongs to the retryable class.
func IsTransient(err error) bool {
	return Classify(err) == FaultTransientStorage
}
