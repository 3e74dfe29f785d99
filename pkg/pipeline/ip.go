package pipeline

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the client address for rate limiting and logging. The
// first X-Forwarded-For entry wins, falling back to the socket address.
// Loopback spellings are normalized so "::1" and "::ffff:127.0.0.1" count
// as the same client as "127.0.0.1".
func ClientIP(r *http.Request) string {
	ip := firstForwardedFor(r)
	if ip == "" {
		ip = r.RemoteAddr
	}
	return normalizeIP(ip)
}

// firstForwardedFor returns the leftmost X-Forwarded-For entry, which is
// the original client when the header is set by a trusted proxy.
func firstForwardedFor(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return ""
	}
	entries := strings.Split(xff, ",")
	return strings.TrimSpace(entries[0])
}

// normalizeIP strips a port if present and canonicalizes loopback forms.
func normalizeIP(ip string) string {
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	ip = strings.TrimPrefix(ip, "::ffff:")
	if ip == "::1" {
		ip = "127.0.0.1"
	}
	return ip
}
