// Package apierror normalizes every failure of an API call into one error shape.
package apierror

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies a normalized error.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindValidation
	KindRateLimited
	KindServer
	// KindEmptyResult is synthetic: a "no X found" answer on a listing, absorbed by the services.
	KindEmptyResult
)

var kindNames = map[Kind]string{
	KindUnknown:      "unknown",
	KindNetwork:      "network_failure",
	KindUnauthorized: "unauthorized",
	KindForbidden:    "forbidden",
	KindNotFound:     "not_found",
	KindConflict:     "conflict",
	KindValidation:   "validation_error",
	KindRateLimited:  "rate_limited",
	KindServer:       "server_error",
	KindEmptyResult:  "empty_result",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the normalized {message, status, errors} error returned by every API call.
// It is never mutated after creation.
type Error struct {
	Kind    Kind              `json:"kind"`
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`

	err error // underlying transport error, if any
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the transport error (eg. context.DeadlineExceeded) to errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// MentionsTenant reports whether the error is about the tenant itself rather than a resource.
func (e *Error) MentionsTenant() bool {
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "tenant") || strings.Contains(msg, "school not found")
}

// KindForStatus maps an HTTP status code to a Kind.
func KindForStatus(status int) Kind {
	switch {
	case status == 0:
		return KindNetwork
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= http.StatusInternalServerError:
		return KindServer
	}
	return KindUnknown
}

// KindOf returns the Kind of err, KindUnknown if err is not (or does not wrap) an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is (or wraps) an *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// StatusOf returns the HTTP status carried by err, 0 if none.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// New builds an *Error. cause may be nil.
func New(kind Kind, status int, message string, cause error) *Error {
	if message == "" {
		message = StatusDefault(status)
	}
	return &Error{Kind: kind, Status: status, Message: message, err: cause}
}
