package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	httperrors "gitea.jw6.us/james/notioncal/internal/http/errors"
)

var errMissingToken = errors.New("missing feed token")

// FeedGuard protects the feed with a shared token stored as a bcrypt hash.
// A guard without a hash lets every request through.
type FeedGuard struct {
	hash []byte
}

// NewFeedGuard validates hash and returns a guard for it. An empty hash
// disables the check.
func NewFeedGuard(hash string) (*FeedGuard, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return &FeedGuard{}, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid feed token hash: %w", err)
	}
	return &FeedGuard{hash: []byte(hash)}, nil
}

// Enabled reports whether requests must present a token.
func (g *FeedGuard) Enabled() bool {
	return g != nil && len(g.hash) > 0
}

// Verify checks a presented token against the stored hash.
func (g *FeedGuard) Verify(token string) error {
	if !g.Enabled() {
		return nil
	}
	if token == "" {
		return errMissingToken
	}
	return bcrypt.CompareHashAndPassword(g.hash, []byte(token))
}

// Require enforces the feed token. Calendar clients cannot send headers, so
// the token is accepted from the "token" query parameter as well as a
// bearer Authorization header.
func (g *FeedGuard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		if err := g.Verify(tokenFromRequest(r)); err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="notioncal"`)
			httperrors.Unauthorized(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	authz := r.Header.Get("Authorization")
	if len(authz) > len("Bearer ") && strings.EqualFold(authz[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(authz[len("Bearer "):])
	}
	return ""
}
