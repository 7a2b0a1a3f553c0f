package kubeconfig

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrNotFound                = errors.New("kubeconfig not found")
	ErrRead                    = errors.New("failed to read kubeconfig")
	ErrParse                   = errors.New("malformed kubeconfig")
	ErrContextNotFound         = errors.New("context not found")
	ErrAuthProviderUnsupported = errors.New("credential kind cannot be refreshed")
	ErrRefreshFailed           = errors.New("credential refresh failed")
	ErrWrite                   = errors.New("failed to write kubeconfig")
	ErrInvariantViolation      = errors.New("kubeconfig invariant violated")
)

// Error carries one of the kinds above together with the offending name or
// path and the underlying cause.
type Error struct {
	Kind error
	// Name is the context, user, cluster or file path the error is about.
	Name string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Name != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Name)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause so errors.Is matches either.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, name string, err error) *Error {
	return &Error{Kind: kind, Name: name, Err: err}
}

// NewError builds an *Error for packages layered on top of this one.
func NewError(kind error, name string, err error) error {
	return newError(kind, name, err)
}

// IsUserError reports whether err was caused by the caller's input (an
// unknown context name, a credential that cannot be refreshed) rather than by
// the environment.
func IsUserError(err error) bool {
	return errors.Is(err, ErrContextNotFound) || errors.Is(err, ErrAuthProviderUnsupported)
}
