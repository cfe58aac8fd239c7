// Package tokens issues and verifies the signed JWTs used for stateless
// authentication. Access and refresh tokens are signed with distinct HS256
// secrets so one kind is never accepted in place of the other.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid covers bad signatures, malformed tokens, a wrong kind
	// and missing required claims.
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Kind tells access and refresh tokens apart inside the payload.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the JWT body. Email is only set on access tokens.
type Claims struct {
	Email string `json:"email,omitempty"`
	Kind  Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// Payload is the verified content of a token.
type Payload struct {
	Subject   string
	Email     string
	Kind      Kind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// Issuer, when set, is written to "iss" and required on verification.
	Issuer string
}

// Issuer creates and verifies tokens. It is safe for concurrent use.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

type Option func(*Issuer)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer validates cfg and returns an Issuer. Zero TTLs select the
// defaults.
func NewIssuer(cfg Config, opts ...Option) (*Issuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("tokens: access and refresh secrets must be set")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("tokens: access and refresh secrets must differ")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.AccessTTL < 0 || cfg.RefreshTTL < 0 {
		return nil, errors.New("tokens: ttl must be positive")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, fmt.Errorf("tokens: refresh ttl %s must exceed access ttl %s", cfg.RefreshTTL, cfg.AccessTTL)
	}

	i := &Issuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// IssueAccess signs a short-lived token for subjectID carrying email.
func (i *Issuer) IssueAccess(subjectID, email string) (string, error) {
	return i.sign(subjectID, email, KindAccess, i.accessSecret, i.accessTTL)
}

// IssueRefresh signs a long-lived token for subjectID.
func (i *Issuer) IssueRefresh(subjectID string) (string, error) {
	return i.sign(subjectID, "", KindRefresh, i.refreshSecret, i.refreshTTL)
}

// VerifyAccess checks token against the access secret.
func (i *Issuer) VerifyAccess(token string) (*Payload, error) {
	return i.verify(token, KindAccess, i.accessSecret)
}

// VerifyRefresh checks token against the refresh secret. It returns
// ErrTokenExpired once the expiry has passed and ErrTokenInvalid for any
// other defect.
func (i *Issuer) VerifyRefresh(token string) (*Payload, error) {
	return i.verify(token, KindRefresh, i.refreshSecret)
}

func (i *Issuer) sign(subjectID, email string, kind Kind, secret []byte, ttl time.Duration) (string, error) {
	if subjectID == "" {
		return "", errors.New("tokens: empty subject")
	}
	now := i.now()

	claims := Claims{
		Email: email,
		Kind:  kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

func (i *Issuer) verify(token string, want Kind, secret []byte) (*Payload, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if claims.Kind != want {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrTokenInvalid, want, claims.Kind)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	p := &Payload{
		Subject:   claims.Subject,
		Email:     claims.Email,
		Kind:      claims.Kind,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	return p, nil
}
