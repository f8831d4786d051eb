package handler

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClient is the rate-limit key used when no client address is known.
const UnknownClient = "unknown"

// ClientKeyFunc derives the rate-limit key for a request.
type ClientKeyFunc func(r *http.Request) string

// NewClientKeyFunc returns a ClientKeyFunc that uses the first entry of
// X-Forwarded-For. Without that header it uses the connection's remote
// host when trustRemoteAddr is set, and UnknownClient otherwise.
func NewClientKeyFunc(trustRemoteAddr bool) ClientKeyFunc {
	return func(r *http.Request) string {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
		if trustRemoteAddr {
			if host := remoteHost(r); host != "" {
				return host
			}
		}
		return UnknownClient
	}
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
