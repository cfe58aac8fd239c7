// Package redact masks sensitive values before they reach logs.
package redact

import "strings"

// Email keeps the first two characters of the local part and the domain:
// "alice@example.com" becomes "al***@example.com".
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return "***"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + domain
	}
	return "***@" + domain
}

// Token never reveals any part of a credential.
func Token(string) string { return "[REDACTED_TOKEN]" }
