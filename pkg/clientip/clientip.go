// Package clientip resolves the caller's public address from the headers
// injected by the edge in front of the service.
package clientip

import (
	"net/http"
	"strings"
)

// Unknown is returned when no trusted header carries an address. All such
// clients share one rate-limit bucket.
const Unknown = "unknown"

const (
	headerConnectingIP = "CF-Connecting-IP"
	headerForwardedFor = "X-Forwarded-For"
	headerRealIP       = "X-Real-IP"
)

// Resolve prefers the edge connecting-IP header, then the first entry of
// X-Forwarded-For, then X-Real-IP.
func Resolve(h http.Header) string {
	if ip := h.Get(headerConnectingIP); ip != "" {
		return ip
	}

	if forwardedFor := h.Get(headerForwardedFor); forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if ip := h.Get(headerRealIP); ip != "" {
		return ip
	}
	return Unknown
}
