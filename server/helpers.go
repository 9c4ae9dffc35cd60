package server

import (
	"net/http"
)

// getScheme determines the HTTP scheme, honoring reverse proxy headers
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if r.Header.Get("X-Forwarded-Ssl") == "on" {
		return "https"
	}
	return "http"
}

// getBaseURL returns the base URL for HTTP
func getBaseURL(r *http.Request) string {
	return getScheme(r) + "://" + r.Host
}

// getWSURL returns the base URL for WebSocket
func getWSURL(r *http.Request) string {
	if getScheme(r) == "https" {
		return "wss://" + r.Host
	}
	return "ws://" + r.Host
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
