package middleware

import (
	"net"
	"net/http"
	"strings"
)

const hstsValue = "max-age=31536000; includeSubDomains"

// HSTS pins browsers to HTTPS for a year. Only installed when TLS is served
// directly.
func HSTS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Strict-Transport-Security", hstsValue)
		next.ServeHTTP(w, r)
	})
}

// IsHostAllowed reports whether host matches an entry of allowedHosts. An
// entry without a port matches the host on any port; an entry with a port
// also matches the bare host. IPv6 literals may be bracketed. An empty list
// allows everything.
func IsHostAllowed(host string, allowedHosts []string) bool {
	if len(allowedHosts) == 0 {
		return true
	}

	name, port := splitHost(host)
	if name == "" {
		return false
	}
	for _, allowed := range allowedHosts {
		allowedName, allowedPort := splitHost(allowed)
		if allowedName != name {
			continue
		}
		if allowedPort == "" || port == "" || allowedPort == port {
			return true
		}
	}
	return false
}

func splitHost(host string) (name, port string) {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, p, err := net.SplitHostPort(host); err == nil {
		return h, p
	}
	return strings.Trim(host, "[]"), ""
}
