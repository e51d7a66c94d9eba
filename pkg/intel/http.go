// Package intel holds the clients for the third-party threat-intelligence
// providers.
package intel

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go-vortexguard/pkg/metrics"
)

const (
	ProviderAbuseIPDB   = "abuseipdb"
	ProviderIPAPI       = "ip-api"
	ProviderVirusTotal  = "virustotal"
	maxResponseBodySize = 4 << 20
)

// ErrNotFound matches a StatusError carrying 404.
var ErrNotFound = errors.New("not found")

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// NewHTTPClient returns the client shared by all providers.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// doJSON sends req and decodes a successful JSON body into out.
func doJSON(client *http.Client, req *http.Request, provider string, out any) error {
	start := time.Now()
	resp, err := client.Do(req)
	metrics.UpstreamDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamFailures.WithLabelValues(provider).Inc()
		return fmt.Errorf("%s request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode != http.StatusNotFound {
			metrics.UpstreamFailures.WithLabelValues(provider).Inc()
		}
		return &StatusError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize)).Decode(out); err != nil {
		metrics.UpstreamFailures.WithLabelValues(provider).Inc()
		return fmt.Errorf("%s response decode failed: %w", provider, err)
	}
	return nil
}
