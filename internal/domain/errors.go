package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failures a user can see.
type ErrorKind string

const (
	KindPermissionDenied  ErrorKind = "permission_denied"
	KindDeviceUnavailable ErrorKind = "device_unavailable"
	KindInvalidImage      ErrorKind = "invalid_image"
	KindNoImage           ErrorKind = "no_image"
	KindEmptyResponse     ErrorKind = "empty_response"
	KindTransportFailure  ErrorKind = "transport_failure"
)

var defaultMessages = map[ErrorKind]string{
	KindPermissionDenied:  "Camera access denied. Please allow camera permissions.",
	KindDeviceUnavailable: "Camera not supported on this device.",
	KindInvalidImage:      "The selected file is not a supported image.",
	KindNoImage:           "Please select an image first",
	KindEmptyResponse:     "No analysis received from AI",
	KindTransportFailure:  "Analysis failed",
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrPermissionDenied  = &Error{Kind: KindPermissionDenied}
	ErrDeviceUnavailable = &Error{Kind: KindDeviceUnavailable}
	ErrInvalidImage      = &Error{Kind: KindInvalidImage}
	ErrNoImage           = &Error{Kind: KindNoImage}
	ErrEmptyResponse     = &Error{Kind: KindEmptyResponse}
	ErrTransportFailure  = &Error{Kind: KindTransportFailure}
)

// Error is a classified failure carrying a user-facing message and the
// underlying cause, if any.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewError builds an Error whose message is the default text for kind. For
// transport failures the cause is appended as "Analysis failed: <cause>".
func NewError(kind ErrorKind, cause error) *Error {
	msg := defaultMessages[kind]
	if kind == KindTransportFailure && cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultMessages[e.Kind]
	}
	if e.Err != nil && e.Kind != KindTransportFailure {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns the user-facing message of the first *Error in err's
// chain, falling back to err.Error().
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return defaultMessages[e.Kind]
	}
	return err.Error()
}
