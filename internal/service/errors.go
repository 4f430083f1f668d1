package service

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies failures so handlers can map them to responses in one place
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindAuth
	KindAuthorization
	KindNotFound
	KindConflict
	KindRateLimited
	KindConfiguration
	KindUpstream
	KindUpstreamTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindConfiguration:
		return "configuration"
	case KindUpstream:
		return "upstream"
	case KindUpstreamTimeout:
		return "upstream_timeout"
	default:
		return "internal"
	}
}

// Error is a classified service failure. Message is safe to show to clients.
type Error struct {
	Kind       ErrorKind
	Message    string
	RetryAfter int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrInvalidToken is returned for forged, expired and revoked tokens alike
var ErrInvalidToken = &Error{Kind: KindAuth, Message: "Invalid token"}

// ErrInvalidCredentials is returned for unknown accounts and wrong passwords alike
var ErrInvalidCredentials = &Error{Kind: KindAuth, Message: "Invalid credentials"}

func ValidationError(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func AuthorizationError(message string) error {
	return &Error{Kind: KindAuthorization, Message: message}
}

func NotFoundError(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func ConflictError(message string, err error) error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

func RateLimitedError(retryAfter int) error {
	return &Error{Kind: KindRateLimited, Message: "Rate limit exceeded", RetryAfter: retryAfter}
}

// ConfigurationError hides which setting is missing from the client
func ConfigurationError(err error) error {
	return &Error{Kind: KindConfiguration, Message: "Server configuration error", Err: err}
}

// UpstreamError classifies a failed call to an external collaborator.
// Timeouts become KindUpstreamTimeout.
func UpstreamError(message string, err error) error {
	kind := KindUpstream
	if isTimeout(err) {
		kind = KindUpstreamTimeout
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// KindOf returns the kind of err, or KindInternal for unclassified errors
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}
