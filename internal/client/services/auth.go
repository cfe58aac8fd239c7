// Package services contains the CLI's application services.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
)

// ErrNotLoggedIn is returned by operations that need a stored session.
var ErrNotLoggedIn = errors.New("not logged in")

// AuthService keeps the CLI session in the local database and hides token
// refresh from callers.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*client.User, error)
	Login(ctx context.Context, email, password string) (*client.User, error)
	Profile(ctx context.Context) (*client.User, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	CurrentEmail(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
}

func NewAuthService(c client.Client, db *sql.DB) AuthService {
	return &authService{client: c, db: db}
}

func (a *authService) repo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (a *authService) Register(ctx context.Context, name, email, password string) (*client.User, error) {
	return a.client.Register(ctx, name, email, password)
}

// Login authenticates and replaces any stored session in one transaction.
func (a *authService) Login(ctx context.Context, email, password string) (*client.User, error) {
	s, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := a.repo(tx)
		if err := r.Clear(ctx); err != nil {
			return err
		}
		for k, v := range map[string]string{
			metadata.KeyAccessToken:  s.AccessToken,
			metadata.KeyRefreshToken: s.RefreshToken,
			metadata.KeyUserID:       s.User.ID,
			metadata.KeyEmail:        s.User.Email,
		} {
			if err := r.Set(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &s.User, nil
}

// Profile fetches the caller's profile. When the access token is rejected
// it refreshes once and retries.
func (a *authService) Profile(ctx context.Context) (*client.User, error) {
	access, err := a.get(ctx, metadata.KeyAccessToken)
	if err != nil {
		return nil, err
	}

	u, err := a.client.Profile(ctx, access)
	if err == nil || !errors.Is(err, client.ErrUnauthorized) {
		return u, err
	}

	if err := a.Refresh(ctx); err != nil {
		return nil, err
	}
	access, err = a.get(ctx, metadata.KeyAccessToken)
	if err != nil {
		return nil, err
	}
	return a.client.Profile(ctx, access)
}

// Refresh exchanges the stored refresh token for a new access token. A
// rejected refresh token ends the session.
func (a *authService) Refresh(ctx context.Context) error {
	refresh, err := a.get(ctx, metadata.KeyRefreshToken)
	if err != nil {
		return err
	}

	access, err := a.client.Refresh(ctx, refresh)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			if cerr := a.repo(a.db).Clear(ctx); cerr != nil {
				return errors.Join(err, cerr)
			}
			return fmt.Errorf("%w: session expired", ErrNotLoggedIn)
		}
		return err
	}
	return a.repo(a.db).Set(ctx, metadata.KeyAccessToken, access)
}

// Logout forgets the local session. Tokens stay valid on the server until
// they expire.
func (a *authService) Logout(ctx context.Context) error {
	return a.repo(a.db).Clear(ctx)
}

func (a *authService) CurrentEmail(ctx context.Context) (string, error) {
	return a.get(ctx, metadata.KeyEmail)
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) get(ctx context.Context, key string) (string, error) {
	v, err := a.repo(a.db).Get(ctx, key)
	if errors.Is(err, metadata.ErrNotFound) {
		return "", ErrNotLoggedIn
	}
	return v, err
}
