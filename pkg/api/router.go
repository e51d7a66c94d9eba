package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registers the lookup endpoints at the root and under
// /functions/v1, plus health and metrics.
func NewRouter(h *Handlers) chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog)
	r.Use(recoverer(h.CORS))

	mountLookups(r, h)
	r.Route("/functions/v1", func(r chi.Router) {
		mountLookups(r, h)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func mountLookups(r chi.Router, h *Handlers) {
	r.HandleFunc("/check-ip-threat", h.CheckIPThreat)
	r.HandleFunc("/scan-url", h.ScanURL)
	r.HandleFunc("/get-visitor-ip", h.GetVisitorIP)
}
