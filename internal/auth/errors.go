package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies why a request was rejected. The set is closed; every
// pipeline branch maps to exactly one kind.
type Kind int

const (
	KindInternal Kind = iota
	KindMissing
	KindExpired
	KindInvalid
	KindAdminRequired
	KindNotFound
	KindDeactivated
	KindInsufficientRole
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindExpired:
		return "expired"
	case KindInvalid:
		return "invalid"
	case KindAdminRequired:
		return "admin_required"
	case KindNotFound:
		return "not_found"
	case KindDeactivated:
		return "deactivated"
	case KindInsufficientRole:
		return "insufficient_role"
	default:
		return "internal"
	}
}

// Status maps the kind onto the HTTP status written to the caller. Internal
// failures are reported as 401 so nothing about the failure leaks.
func (k Kind) Status() int {
	switch k {
	case KindAdminRequired, KindDeactivated, KindInsufficientRole:
		return http.StatusForbidden
	default:
		return http.StatusUnauthorized
	}
}

// Error is a classified auth failure.
type Error struct {
	Kind Kind
	// Detail overrides the domain's default message for this kind.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %v", msg, e.Err)
	}
	return "auth " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf reports the kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindInternal
}
