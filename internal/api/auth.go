package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// authorizer gates the gateway behind a static bearer token. An empty token
// disables auth, which suits local single-process deployments.
type authorizer struct {
	token string
}

func newAuthorizer(token string) *authorizer {
	return &authorizer{token: strings.TrimSpace(token)}
}

func (a *authorizer) allow(r *http.Request) bool {
	if a.token == "" {
		return true
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	presented := strings.TrimSpace(header[len(prefix):])
	return subtle.ConstantTimeCompare([]byte(presented), []byte(a.token)) == 1
}

func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if s.auth.allow(r) {
		return true
	}
	writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
	return false
}
