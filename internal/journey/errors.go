package journey

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInvalidQuery Kind = iota + 1
	KindUpstreamRejected
	KindUpstreamTimeout
	KindUpstreamShapeChanged
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidQuery:
		return "invalid_query"
	case KindUpstreamRejected:
		return "upstream_rejected"
	case KindUpstreamTimeout:
		return "upstream_timeout"
	case KindUpstreamShapeChanged:
		return "upstream_shape_changed"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Error is the failure every adapter and the orchestrator report. It never
// carries cookies, correlation ids or upstream bodies.
type Error struct {
	Kind       Kind
	Source     string
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Source != "" {
		msg = e.Source + ": " + msg
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether a second attempt with a fresh session can succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindUpstreamTimeout, KindUnavailable:
		return true
	case KindUpstreamRejected:
		return e.StatusCode >= 500
	}
	return false
}

// HTTPStatus is the status the hosting layer answers with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidQuery:
		return http.StatusBadRequest
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case KindUpstreamRejected, KindUpstreamShapeChanged, KindUnavailable:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// WithSource returns a copy of e attributed to source when it has none yet.
func (e *Error) WithSource(source string) *Error {
	if e.Source != "" {
		return e
	}
	c := *e
	c.Source = source
	return &c
}

func InvalidQuery(source, detail string) *Error {
	return &Error{Kind: KindInvalidQuery, Source: source, Detail: detail}
}

func Rejected(source string, statusCode int) *Error {
	return &Error{Kind: KindUpstreamRejected, Source: source, StatusCode: statusCode}
}

func Timeout(source string, err error) *Error {
	return &Error{Kind: KindUpstreamTimeout, Source: source, Err: err}
}

func ShapeChanged(source, detail string) *Error {
	return &Error{Kind: KindUpstreamShapeChanged, Source: source, Detail: detail}
}

func Unavailable(source string, err error) *Error {
	return &Error{Kind: KindUnavailable, Source: source, Err: err}
}

// AsError extracts a taxonomy error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is a taxonomy error of kind k.
func IsKind(err error, k Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == k
}
