// Package cors computes the cross-origin headers attached to every response.
package cors

import (
	"net/http"
	"strings"
)

const (
	MethodsPost        = "POST, OPTIONS"
	MethodsGetAndPost  = "GET, POST, OPTIONS"
	allowedHeaders     = "authorization, x-client-info, apikey, content-type"
	headerAllowOrigin  = "Access-Control-Allow-Origin"
	headerAllowHeaders = "Access-Control-Allow-Headers"
	headerAllowMethods = "Access-Control-Allow-Methods"
)

// DefaultOrigins are used when no allow-list is configured.
var DefaultOrigins = []string{
	"http://localhost:8080",
	"http://localhost:3000",
	"http://localhost:5173",
}

// Preview deployments live on these hosting subdomains and are always trusted.
var trustedSuffixes = []string{".lovable.app", ".lovableproject.com"}

type Guard struct {
	origins map[string]struct{}
}

func New(allowed []string) *Guard {
	if len(allowed) == 0 {
		allowed = DefaultOrigins
	}
	g := &Guard{origins: make(map[string]struct{}, len(allowed))}
	for _, origin := range allowed {
		if origin = strings.TrimSpace(origin); origin != "" {
			g.origins[origin] = struct{}{}
		}
	}
	return g
}

// Allowed reports whether browsers from origin may read responses.
func (g *Guard) Allowed(origin string) bool {
	if origin == "" {
		return false
	}
	if _, ok := g.origins[origin]; ok {
		return true
	}
	for _, suffix := range trustedSuffixes {
		if strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}

// Headers returns the CORS header set for origin. Disallowed or missing
// origins get an empty Access-Control-Allow-Origin value.
func (g *Guard) Headers(origin, methods string) map[string]string {
	allowOrigin := ""
	if g.Allowed(origin) {
		allowOrigin = origin
	}
	return map[string]string{
		headerAllowOrigin:  allowOrigin,
		headerAllowHeaders: allowedHeaders,
		headerAllowMethods: methods,
	}
}

// Apply writes the header set for r onto w.
func (g *Guard) Apply(w http.ResponseWriter, r *http.Request, methods string) {
	h := w.Header()
	for k, v := range g.Headers(r.Header.Get("Origin"), methods) {
		h.Set(k, v)
	}
	h.Add("Vary", "Origin")
}
