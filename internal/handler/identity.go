package handler

import (
	"net"
	"net/http"
	"strings"

	"github.com/daily-meme-quiz/internal/domain"
)

// Identity headers set by the fronting platform
const (
	HeaderUserID   = "X-User-Id"
	HeaderUsername = "X-Username"
)

// ResolveIdentity reads the caller's identity from the request. Callers
// without a user id are keyed by their remote address.
func ResolveIdentity(r *http.Request) domain.Identity {
	userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	username := strings.TrimSpace(r.Header.Get(HeaderUsername))

	if userID != "" {
		if username == "" {
			username = "user_" + prefix(userID, 8)
		}
		return domain.Identity{UserID: userID, Username: username}
	}

	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if ip == "" {
		ip = "local"
	}
	return domain.Identity{UserID: "anon:" + ip, Username: "anonymous"}
}

func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
