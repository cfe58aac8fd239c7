package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	session    *client.Session
	loginErr   error
	validToken string
	refreshed  string
	refreshErr error

	profileCalls int
	refreshCalls int
}

func (f *fakeClient) Register(_ context.Context, name, email, _ string) (*client.User, error) {
	return &client.User{ID: "u-1", Name: name, Email: email}, nil
}

func (f *fakeClient) Login(context.Context, string, string) (*client.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.session, nil
}

func (f *fakeClient) Refresh(_ context.Context, token string) (string, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	f.validToken = f.refreshed
	return f.refreshed, nil
}

func (f *fakeClient) Profile(_ context.Context, token string) (*client.User, error) {
	f.profileCalls++
	if token != f.validToken {
		return nil, &client.APIError{StatusCode: 401, Message: "invalid credentials"}
	}
	return &client.User{ID: "u-1", Email: "alice@example.com"}, nil
}

func (f *fakeClient) Ping(context.Context) error { return nil }

func setup(t *testing.T) (*fakeClient, AuthService, *sql.DB) {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fc := &fakeClient{
		session: &client.Session{
			User:         client.User{ID: "u-1", Email: "alice@example.com"},
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
		},
		validToken: "access-1",
		refreshed:  "access-2",
	}
	return fc, NewAuthService(fc, db), db
}

func TestLogin_StoresSession(t *testing.T) {
	_, svc, db := setup(t)
	ctx := context.Background()

	u, err := svc.Login(ctx, "alice@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)

	m, err := metadata.NewSQLiteRepository(db).List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		metadata.KeyAccessToken:  "access-1",
		metadata.KeyRefreshToken: "refresh-1",
		metadata.KeyUserID:       "u-1",
		metadata.KeyEmail:        "alice@example.com",
	}, m)

	email, err := svc.CurrentEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)
}

func TestLogin_FailureKeepsNothing(t *testing.T) {
	fc, svc, _ := setup(t)
	fc.loginErr = &client.APIError{StatusCode: 401}

	_, err := svc.Login(context.Background(), "alice@example.com", "bad")
	require.ErrorIs(t, err, client.ErrUnauthorized)

	_, err = svc.CurrentEmail(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestProfile_NotLoggedIn(t *testing.T) {
	_, svc, _ := setup(t)

	_, err := svc.Profile(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestProfile_Direct(t *testing.T) {
	fc, svc, _ := setup(t)
	ctx := context.Background()
	_, err := svc.Login(ctx, "alice@example.com", "pw")
	require.NoError(t, err)

	u, err := svc.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, 0, fc.refreshCalls)
}

func TestProfile_RefreshesOnceOnExpiredAccess(t *testing.T) {
	fc, svc, db := setup(t)
	ctx := context.Background()
	_, err := svc.Login(ctx, "alice@example.com", "pw")
	require.NoError(t, err)

	fc.validToken = "something-newer"

	u, err := svc.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, 1, fc.refreshCalls)
	assert.Equal(t, 2, fc.profileCalls)

	stored, err := metadata.NewSQLiteRepository(db).Get(ctx, metadata.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "access-2", stored)
}

func TestProfile_RejectedRefreshEndsSession(t *testing.T) {
	fc, svc, _ := setup(t)
	ctx := context.Background()
	_, err := svc.Login(ctx, "alice@example.com", "pw")
	require.NoError(t, err)

	fc.validToken = "other"
	fc.refreshErr = &client.APIError{StatusCode: 401}

	_, err = svc.Profile(ctx)
	require.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = svc.CurrentEmail(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestRefresh_UnavailableKeepsSession(t *testing.T) {
	fc, svc, _ := setup(t)
	ctx := context.Background()
	_, err := svc.Login(ctx, "alice@example.com", "pw")
	require.NoError(t, err)

	fc.refreshErr = client.ErrUnavailable
	err = svc.Refresh(ctx)
	require.True(t, errors.Is(err, client.ErrUnavailable))

	_, err = svc.CurrentEmail(ctx)
	assert.NoError(t, err)
}

func TestLogout(t *testing.T) {
	_, svc, _ := setup(t)
	ctx := context.Background()
	_, err := svc.Login(ctx, "alice@example.com", "pw")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx))
	_, err = svc.Profile(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestRegister_PassesThrough(t *testing.T) {
	_, svc, _ := setup(t)

	u, err := svc.Register(context.Background(), "Alice", "alice@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
}
