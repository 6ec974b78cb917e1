package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the forecasting core so callers can branch
// on kind instead of message text.
type ErrorKind string

const (
	KindSchema              ErrorKind = "SCHEMA"
	KindInsufficientData    ErrorKind = "INSUFFICIENT_DATA"
	KindInsufficientHistory ErrorKind = "INSUFFICIENT_HISTORY"
	KindNotReady            ErrorKind = "NOT_READY"
	KindModelInputShape     ErrorKind = "MODEL_INPUT_SHAPE"
	KindForecastDiverged    ErrorKind = "FORECAST_DIVERGED"
	KindLengthMismatch      ErrorKind = "LENGTH_MISMATCH"
	KindUndefinedMetric     ErrorKind = "UNDEFINED_METRIC"
	KindScalerNotFound      ErrorKind = "SCALER_NOT_FOUND"
	KindInvalidArgument     ErrorKind = "INVALID_ARGUMENT"
)

// Error is a structured failure: a kind plus a human readable message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrSchema) works
// for every schema failure regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrSchema              = &Error{Kind: KindSchema}
	ErrInsufficientData    = &Error{Kind: KindInsufficientData}
	ErrInsufficientHistory = &Error{Kind: KindInsufficientHistory}
	ErrNotReady            = &Error{Kind: KindNotReady}
	ErrModelInputShape     = &Error{Kind: KindModelInputShape}
	ErrForecastDiverged    = &Error{Kind: KindForecastDiverged}
	ErrLengthMismatch      = &Error{Kind: KindLengthMismatch}
	ErrUndefinedMetric     = &Error{Kind: KindUndefinedMetric}
	ErrScalerNotFound      = &Error{Kind: KindScalerNotFound}
	ErrInvalidArgument     = &Error{Kind: KindInvalidArgument}
)

// NewError builds a kinded error with a formatted message.
func NewError(kind ErrorKind, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, a...)}
}

// WrapError attaches a kind to an underlying error.
func WrapError(kind ErrorKind, err error, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, a...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
