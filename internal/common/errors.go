// Package common defines the closed set of domain error kinds shared by the
// server layers. Callers match them with errors.Is or classify an arbitrary
// error with KindOf.
package common

import "errors"

var (
	// ErrInvalidCredentials covers a wrong email/password pair and any
	// unverifiable or expired token. The cause is never exposed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDuplicateIdentity is returned when a unique field (email) is taken.
	ErrDuplicateIdentity = errors.New("identity already exists")

	ErrNotFound = errors.New("not found")

	// ErrRateLimited is returned when a client exhausted its request budget.
	ErrRateLimited = errors.New("too many requests")

	// ErrInvalidInput marks request payloads that failed validation.
	ErrInvalidInput = errors.New("invalid input")
)

// Kind classifies an error for transport mapping.
type Kind uint8

const (
	// KindInternal is any failure outside the domain set, e.g. an
	// unreachable database.
	KindInternal Kind = iota
	KindInvalidCredentials
	KindDuplicateIdentity
	KindNotFound
	KindRateLimited
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindDuplicateIdentity:
		return "duplicate_identity"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidCredentials, KindInvalidCredentials},
	{ErrDuplicateIdentity, KindDuplicateIdentity},
	{ErrNotFound, KindNotFound},
	{ErrRateLimited, KindRateLimited},
	{ErrInvalidInput, KindInvalidInput},
}

// KindOf returns the domain kind of err. Wrapped errors are unwrapped;
// anything unrecognised (including nil) is KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// InvalidInput wraps ErrInvalidInput with a human readable reason.
func InvalidInput(reason string) error {
	return &inputError{reason: reason}
}

type inputError struct {
	reason string
}

func (e *inputError) Error() string { return e.reason }

func (e *inputError) Unwrap() error { return ErrInvalidInput }
