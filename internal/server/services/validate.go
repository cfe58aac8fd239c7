package services

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

const (
	maxNameLen        = 50
	minPasswordLen    = 6
	maxPasswordLen    = 20
	passwordSpecials  = "@$!%*#?&^_-"
	passwordRuleError = "password must be 6-20 characters and contain a letter, a digit and one of " + passwordSpecials
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return common.InvalidInput("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return common.InvalidInput("name must be at most 50 characters")
	}
	return nil
}

// validateEmail expects an already normalised address and rejects display
// names such as "Alice <a@b.c>".
func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return common.InvalidInput("email is invalid")
	}
	return nil
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLen || n > maxPasswordLen {
		return common.InvalidInput(passwordRuleError)
	}

	var letter, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !letter || !digit || !special {
		return common.InvalidInput(passwordRuleError)
	}
	return nil
}

func validateLogin(email, password string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return common.InvalidInput("password must be at least 6 characters")
	}
	return nil
}
