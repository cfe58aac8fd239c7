// Package client talks to the authkeeper HTTP API and opens the CLI's local
// session database.
//
// Non-2xx responses are decoded into *APIError, which matches the sentinel
// errors below with errors.Is, so callers can branch on ErrUnauthorized or
// ErrConflict without looking at status codes. Transport failures are
// reported as ErrUnavailable.
package client
