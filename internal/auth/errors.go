package auth

import (
	"errors"
	"fmt"
	apperrors "payrouter/pkg/errors"
)

var (
	ErrKeyNotFound    = errors.New("auth: key not found")
	ErrSecretNotFound = errors.New("auth: client secret not found")
)

type Kind int

const (
	KindMissing Kind = iota + 1
	KindMalformed
	KindUnknownKey
	KindExpired
	KindSignatureMismatch
	KindInsufficientScope
	KindStoreUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindMalformed:
		return "malformed"
	case KindUnknownKey:
		return "unknown_key"
	case KindExpired:
		return "expired"
	case KindSignatureMismatch:
		return "signature_mismatch"
	case KindInsufficientScope:
		return "insufficient_scope"
	case KindStoreUnavailable:
		return "store_unavailable"
	default:
		return "unknown"
	}
}

// Error is a credential failure. Err holds internal detail and is never shown to callers.
type Error struct {
	Kind   Kind
	Scheme string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %s: %v", e.Scheme, e.Kind, e.Err)
	}
	return fmt.Sprintf("auth %s: %s", e.Scheme, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AppError maps the failure onto the merchant-facing taxonomy. Every kind keeps its own code.
func (e *Error) AppError() *apperrors.AppError {
	var appErr *apperrors.AppError
	switch e.Kind {
	case KindMissing:
		appErr = apperrors.AuthenticationFailed(apperrors.CodeMissingCredential, "Authentication credentials were not provided")
	case KindMalformed:
		appErr = apperrors.AuthenticationFailed(apperrors.CodeMalformedCredential, "Authentication credential is malformed")
	case KindUnknownKey:
		appErr = apperrors.AuthenticationFailed(apperrors.CodeUnknownKey, "Authentication credential is not recognized")
	case KindExpired:
		appErr = apperrors.AuthenticationFailed(apperrors.CodeExpiredCredential, "Authentication credential has expired")
	case KindSignatureMismatch:
		appErr = apperrors.AuthenticationFailed(apperrors.CodeSignatureMismatch, "Authentication credential could not be verified")
	case KindInsufficientScope:
		appErr = apperrors.AuthorizationFailed("Credential does not grant access to this resource")
	case KindStoreUnavailable:
		appErr = apperrors.Unavailable("Authentication service")
	default:
		appErr = apperrors.Internal("An unexpected error occurred", nil)
	}
	return appErr.WithCause(e)
}

func fail(kind Kind, scheme string, err error) *Error {
	return &Error{Kind: kind, Scheme: scheme, Err: err}
}

// KindOf returns the failure kind carried by err, or 0.
func KindOf(err error) Kind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return 0
}
