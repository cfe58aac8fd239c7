// Package services contains the server-side business logic: user
// management (UserService) and credential checks with token issuance
// (AuthService).
package services

import "github.com/dmitrijs2005/authkeeper/internal/server/tokens"

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// TokenIssuer mints and checks access and refresh tokens.
type TokenIssuer interface {
	IssueAccess(subjectID, email string) (string, error)
	IssueRefresh(subjectID string) (string, error)
	VerifyAccess(token string) (*tokens.Payload, error)
	VerifyRefresh(token string) (*tokens.Payload, error)
}
