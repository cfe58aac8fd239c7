package throttle

import (
	"net"
	"strings"
)

// UnknownClient is the shared bucket for requests with no usable address.
// All such clients draw from one budget.
const UnknownClient = "unknown"

// ClientID derives the throttle key for a request: the first entry of the
// X-Forwarded-For header, else the host part of the peer address, else
// UnknownClient.
func ClientID(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	remoteAddr = strings.TrimSpace(remoteAddr)
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil && host != "" {
		return host
	}
	if remoteAddr != "" {
		return remoteAddr
	}

	return UnknownClient
}
