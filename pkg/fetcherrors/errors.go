// Package fetcherrors provides structured error handling for pagefetch with
// error categorization, cause preservation, and key-value details.
//
// # Overview
//
// The fetcherrors package extends Go's standard error handling with:
//   - Error categorization through Kind
//   - Structured context with key-value details
//   - Error wrapping with cause preservation
//   - Retryability detection
//
// # Basic Usage
//
//	// Create a new error
//	err := fetcherrors.New(fetcherrors.KindMalformedPage, "response body is not JSON")
//
//	// Add context
//	err = err.WithDetail("url", pageURL).
//	         WithDetail("content_type", ct)
//
//	// Wrap existing errors
//	if err := transport.RoundTrip(ctx, req); err != nil {
//	    return fetcherrors.Wrap(err, fetcherrors.KindTransport, "request failed").
//	        WithDetail("url", req.URL)
//	}
//
// # Kinds
//
// Every error produced by the executor or the fetch engine carries one of the
// kinds below. Kinds drive the retry classifier and let callers translate
// failures into operator-facing diagnostics without string matching.
package fetcherrors

import (
	"context"
	"errors"
	"fmt"
)

// Kind categorizes a failure. The retry executor and the fetch engine only
// ever emit these kinds; connector code may add details but must not invent
// new kinds.
type Kind string

const (
	// KindTransport is a network-level failure before any status was
	// received (DNS, connection reset, timeout). Always retryable, subject
	// to the attempt budget.
	KindTransport Kind = "transport"
	// KindRetryableStatus is a response with a status code in the
	// configured retryable set.
	KindRetryableStatus Kind = "retryable_status"
	// KindNonRetryableStatus is any other non-2xx status. Never retried.
	KindNonRetryableStatus Kind = "non_retryable_status"
	// KindRetryBudgetExhausted is the terminal failure after MaxAttempts
	// retryable failures. It carries the last observed status and body.
	KindRetryBudgetExhausted Kind = "retry_budget_exhausted"
	// KindMalformedPage means an HTTP response arrived but could not be
	// parsed into a page. Non-retryable.
	KindMalformedPage Kind = "malformed_page"
	// KindCancelled marks cooperative cancellation of a fetch. Not a data
	// failure, but callers must be able to tell it apart from one.
	KindCancelled Kind = "cancelled"
	// KindConfig is an invalid configuration value detected before any
	// network activity.
	KindConfig Kind = "config"
)

// Error is a structured error with a kind, a human-readable message, an
// optional cause and free-form details for diagnostics.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Details map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, enabling errors.Is / errors.As over
// the whole chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key-value detail to the error. Chainable.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Detail returns a previously attached detail value, or nil.
func (e *Error) Detail(key string) interface{} {
	if e.Details == nil {
		return nil
	}
	return e.Details[key]
}

// New creates a new error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// Newf creates a new error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a kind and message, preserving the
// original as the cause. Returns nil if err is nil.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   err,
	}
}

// KindOf returns the kind of err, or the empty string when err is not a
// structured Error.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// IsRetryable reports whether the failure may succeed on a later attempt.
// Transport failures and retryable statuses qualify; everything else,
// including parse failures, does not.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTransport, KindRetryableStatus:
		return true
	default:
		return false
	}
}

// IsCancelled reports whether err represents cooperative cancellation,
// either as a structured KindCancelled error or a bare context error.
func IsCancelled(err error) bool {
	if IsKind(err, KindCancelled) {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
