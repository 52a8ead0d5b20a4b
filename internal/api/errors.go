package api

import (
	"errors"
	"fmt"
)

// Kind classifies a remote call failure. The lifecycle manager and the
// orchestrator inspect it explicitly instead of matching error strings.
type Kind int

const (
	// KindGeneric covers every failure without a more specific signal.
	KindGeneric Kind = iota
	// KindRateLimited means the remote refused the call for pacing
	// reasons; the caller should advise waiting and never auto-retry.
	KindRateLimited
	// KindAuthInvalid means the presented token or credentials were
	// rejected.
	KindAuthInvalid
	// KindTransient marks the known upstream login defect where the
	// service intermittently rejects valid credentials.
	KindTransient
)

// Error is a classified remote API failure.
type Error struct {
	Kind    Kind
	Code    int
	Message string
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("remote api: %s (code %d)", e.Message, e.Code)
	}
	return fmt.Sprintf("remote api: %s", e.Message)
}

func kindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindGeneric
}

// IsRateLimited reports whether err carries a rate-limit classification.
func IsRateLimited(err error) bool { return kindOf(err) == KindRateLimited }

// IsAuthInvalid reports whether err carries an auth-rejected classification.
func IsAuthInvalid(err error) bool { return kindOf(err) == KindAuthInvalid }

// IsTransient reports whether err carries the known-transient-defect
// classification.
func IsTransient(err error) bool { return kindOf(err) == KindTransient }
