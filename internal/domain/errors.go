// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindConflict   ErrorKind = "conflict"
	KindNotFound   ErrorKind = "not_found"
	KindCapability ErrorKind = "capability"
	KindChannel    ErrorKind = "channel"
)

var ErrValidation = errors.New("validation failed")
var ErrConflict = errors.New("conflict")
var ErrNotFound = errors.New("not found")
var ErrCapability = errors.New("browser capability failed")
var ErrChannel = errors.New("push channel failed")

// Error carries a kind from the engine's error taxonomy. errors.Is matches
// it against the sentinel of the same kind.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrConflict:
		return e.Kind == KindConflict
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrCapability:
		return e.Kind == KindCapability
	case ErrChannel:
		return e.Kind == KindChannel
	}
	return false
}

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func CapabilityError(message string, err error) error {
	return &Error{Kind: KindCapability, Message: message, Err: err}
}

func ChannelError(message string, err error) error {
	return &Error{Kind: KindChannel, Message: message, Err: err}
}

// KindOf returns the taxonomy kind of err, or "" for untyped errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
