package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	tests := map[string]string{
		"alice@example.com": "al***@example.com",
		"al@example.com":    "***@example.com",
		"not-an-email":      "***",
		"a@b@c":             "***",
		"user@":             "***",
	}
	for in, want := range tests {
		assert.Equal(t, want, Email(in), in)
	}
}

func TestToken(t *testing.T) {
	assert.Equal(t, "[REDACTED_TOKEN]", Token("eyJhbGciOi..."))
}
