// Package metadata stores the CLI session (tokens and the signed-in
// identity) as key/value pairs.
package metadata

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("metadata key not found")

const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserID       = "user_id"
	KeyEmail        = "email"
)

type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
	Clear(ctx context.Context) error
}
