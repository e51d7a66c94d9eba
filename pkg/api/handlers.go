package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sourcegraph/conc"

	"go-vortexguard/pkg/analyzer"
	"go-vortexguard/pkg/clientip"
	"go-vortexguard/pkg/cors"
	"go-vortexguard/pkg/logger"
	"go-vortexguard/pkg/metrics"
	"go-vortexguard/pkg/models"
	"go-vortexguard/pkg/ratelimit"
	"go-vortexguard/pkg/validator"
)

const dispatchTimeout = 10 * time.Second

// IPChecker produces the IP reputation verdict.
type IPChecker interface {
	Check(ctx context.Context, ip string) models.ThreatIntelligence
}

// URLChecker produces the URL reputation verdict.
type URLChecker interface {
	Scan(ctx context.Context, rawURL string) (models.URLScanResult, error)
}

// Recorder receives every successful lookup.
type Recorder interface {
	Name() string
	RecordLookup(ctx context.Context, ev models.LookupEvent) error
}

// EventHandler decides whether a lookup deserves an alert.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev models.LookupEvent) error
}

// Deps are the collaborators of the HTTP handlers. Recorders and Alerter are
// optional.
type Deps struct {
	IPs            IPChecker
	URLs           URLChecker
	CORS           *cors.Guard
	IPLimiter      *ratelimit.Limiter
	URLLimiter     *ratelimit.Limiter
	VisitorLimiter *ratelimit.Limiter
	Recorders      []Recorder
	Alerter        EventHandler
}

type Handlers struct {
	Deps
	now      func() time.Time
	inflight conc.WaitGroup
}

func NewHandlers(deps Deps) *Handlers {
	if deps.CORS == nil {
		deps.CORS = cors.New(nil)
	}
	return &Handlers{Deps: deps, now: time.Now}
}

// CheckIPThreat handles POST {"ip": "..."}.
func (h *Handlers) CheckIPThreat(w http.ResponseWriter, r *http.Request) {
	if !h.begin(w, r, cors.MethodsPost, http.MethodPost) {
		return
	}

	clientIP := clientip.Resolve(r.Header)
	if !h.IPLimiter.Admit(r.Context(), clientIP) {
		requestLog(r).Warnf("rate limit exceeded: client=%s", clientIP)
		writeError(w, http.StatusTooManyRequests, msgRateLimited, models.CodeRateLimited)
		return
	}

	ip, err := readStringField(w, r, "ip")
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest, models.CodeInvalidRequest)
		return
	}

	if v := validator.ValidateIP(ip); !v.Valid {
		writeError(w, http.StatusBadRequest, v.Error, models.CodeValidationError)
		return
	}
	ip = strings.TrimSpace(ip)

	requestLog(r).Infof("checking ip threat: ip=%s, client=%s", ip, clientIP)
	result := h.IPs.Check(r.Context(), ip)
	writeJSON(w, http.StatusOK, result)

	h.dispatch(models.LookupEvent{
		Kind:        models.LookupIP,
		Subject:     ip,
		ThreatLevel: result.ThreatLevel,
		Score:       float64(result.RiskScore),
		ClientIP:    clientIP,
		CheckedAt:   h.now(),
	})
}

// ScanURL handles POST {"url": "..."}.
func (h *Handlers) ScanURL(w http.ResponseWriter, r *http.Request) {
	if !h.begin(w, r, cors.MethodsPost, http.MethodPost) {
		return
	}

	clientIP := clientip.Resolve(r.Header)
	if !h.URLLimiter.Admit(r.Context(), clientIP) {
		requestLog(r).Warnf("rate limit exceeded: client=%s", clientIP)
		writeError(w, http.StatusTooManyRequests, msgRateLimited, models.CodeRateLimited)
		return
	}

	rawURL, err := readStringField(w, r, "url")
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest, models.CodeInvalidRequest)
		return
	}

	if v := validator.ValidateURL(rawURL); !v.Valid {
		writeError(w, http.StatusBadRequest, v.Error, models.CodeValidationError)
		return
	}

	requestLog(r).Infof("scanning url: url=%.50s, client=%s", rawURL, clientIP)
	result, err := h.URLs.Scan(r.Context(), rawURL)
	if err != nil {
		h.writeScanError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)

	h.dispatch(models.LookupEvent{
		Kind:        models.LookupURL,
		Subject:     rawURL,
		ThreatLevel: result.ThreatLevel,
		Score:       result.ThreatScore,
		ClientIP:    clientIP,
		CheckedAt:   h.now(),
	})
}

func (h *Handlers) writeScanError(w http.ResponseWriter, r *http.Request, err error) {
	log := requestLog(r)
	switch {
	case errors.Is(err, analyzer.ErrNotConfigured):
		log.Errorf("url scan unavailable: %v", err)
		writeError(w, http.StatusServiceUnavailable, msgConfigError, models.CodeConfigError)
	case errors.Is(err, analyzer.ErrScan):
		log.Errorf("url submission failed: %v", err)
		writeError(w, http.StatusBadGateway, msgScanError, models.CodeScanError)
	case errors.Is(err, analyzer.ErrLookup):
		log.Errorf("url lookup failed: %v", err)
		writeError(w, http.StatusBadGateway, msgLookupError, models.CodeLookupError)
	default:
		log.Errorf("url scan failed: %v", err)
		writeError(w, http.StatusInternalServerError, msgInternalError, models.CodeInternalError)
	}
}

// GetVisitorIP echoes the caller's address as seen through the proxy headers.
func (h *Handlers) GetVisitorIP(w http.ResponseWriter, r *http.Request) {
	if !h.begin(w, r, cors.MethodsGetAndPost, http.MethodGet, http.MethodPost) {
		return
	}

	clientIP := clientip.Resolve(r.Header)
	if !h.VisitorLimiter.Admit(r.Context(), clientIP) {
		requestLog(r).Warnf("rate limit exceeded: client=%s", clientIP)
		writeError(w, http.StatusTooManyRequests, msgRateLimited, models.CodeRateLimited)
		return
	}

	writeJSON(w, http.StatusOK, models.VisitorIPResponse{
		IP:         clientIP,
		DetectedAt: models.FormatTime(h.now()),
	})
}

// begin applies CORS headers and answers preflight and disallowed methods.
// It reports whether the handler should continue.
func (h *Handlers) begin(w http.ResponseWriter, r *http.Request, corsMethods string, allowed ...string) bool {
	h.CORS.Apply(w, r, corsMethods)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return false
	}
	for _, m := range allowed {
		if r.Method == m {
			return true
		}
	}
	writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed, models.CodeMethodNotAllowed)
	return false
}

// dispatch hands ev to recorders and the alerter without holding up the
// response.
func (h *Handlers) dispatch(ev models.LookupEvent) {
	if len(h.Recorders) == 0 && h.Alerter == nil {
		return
	}

	h.inflight.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		for _, rec := range h.Recorders {
			if err := rec.RecordLookup(ctx, ev); err != nil {
				metrics.SinkFailures.WithLabelValues(rec.Name()).Inc()
				logger.Log.Errorf("record lookup failed: sink=%s, subject=%s, err=%v", rec.Name(), ev.Subject, err)
			}
		}

		if h.Alerter != nil {
			if err := h.Alerter.HandleEvent(ctx, ev); err != nil {
				logger.Log.Errorf("alert failed: subject=%s, err=%v", ev.Subject, err)
			}
		}
	})
}

// Wait blocks until dispatched events are handled.
func (h *Handlers) Wait() {
	h.inflight.Wait()
}
