// Package auth protects operator-only routes with a static API key.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// KeyFromRequest returns the API key presented by r.
// It checks "Authorization: Bearer <key>" first, then the X-API-Key header.
func KeyFromRequest(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if token = strings.TrimSpace(token); token != "" {
				return token, true
			}
		}
	}
	if k := strings.TrimSpace(r.Header.Get("X-API-Key")); k != "" {
		return k, true
	}
	return "", false
}

// RequireAPIKey は API キー必須ミドルウェア。expected と一致しないリクエストは 401 を返す
func RequireAPIKey(expected string) func(http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := KeyFromRequest(r)
			if expected == "" || !ok || subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
