package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	User         models.UserSummary
	AccessToken  string
	RefreshToken string
}

type RefreshResult struct {
	AccessToken string
}

// Caller is the identity carried by a verified access token.
type Caller struct {
	ID    string
	Email string
}

// AuthService verifies credentials and issues tokens. It stores nothing:
// tokens are self-contained and are not tracked server side, so a refresh
// token stays usable until it expires.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	issuer      TokenIssuer

	// dummyHash is compared against when the email is unknown.
	dummyHash string
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, h PasswordHasher, issuer TokenIssuer) *AuthService {
	// A failure leaves the hash empty and Verify returns at once.
	dummy, _ := h.Hash("no-such-user-password-1!")
	return &AuthService{db: db, repomanager: m, hasher: h, issuer: issuer, dummyHash: dummy}
}

// Login checks email and password and returns a token pair. An unknown email
// and a wrong password both fail with common.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	const op = "services.auth.Login"

	email = normalizeEmail(email)
	if err := validateLogin(email, password); err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Spend the same bcrypt time as a real comparison.
			s.hasher.Verify(password, s.dummyHash)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	access, err := s.issuer.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	refresh, err := s.issuer.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &LoginResult{User: user.Summary(), AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a refresh token for a new access token. The account is
// re-read so a deleted user cannot keep refreshing. The refresh token itself
// is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	const op = "services.auth.Refresh"

	payload, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, common.ErrInvalidCredentials
	}

	user, err := s.repomanager.Users(s.db).FindByID(ctx, payload.Subject)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	access, err := s.issuer.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &RefreshResult{AccessToken: access}, nil
}

// Authenticate turns an access token into the caller identity.
func (s *AuthService) Authenticate(_ context.Context, accessToken string) (Caller, error) {
	payload, err := s.issuer.VerifyAccess(accessToken)
	if err != nil {
		return Caller{}, common.ErrInvalidCredentials
	}
	return Caller{ID: payload.Subject, Email: payload.Email}, nil
}
