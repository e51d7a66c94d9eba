package analyzer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go-vortexguard/pkg/intel"
	"go-vortexguard/pkg/logger"
	"go-vortexguard/pkg/metrics"
	"go-vortexguard/pkg/models"
)

const maxFlaggedEngines = 10

var (
	ErrNotConfigured = errors.New("url scanning is not configured")
	ErrLookup        = errors.New("url report lookup failed")
	ErrScan          = errors.New("url submission failed")
)

// URLReputation is the provider surface the scanner needs.
type URLReputation interface {
	LookupURL(ctx context.Context, id string) (*intel.URLAttributes, error)
	SubmitURL(ctx context.Context, rawURL string) (string, error)
	GetAnalysis(ctx context.Context, analysisID string) (*intel.URLAttributes, error)
}

// URLScanner returns the stored report for a URL, or submits it and reads
// the analysis once after a fixed delay.
type URLScanner struct {
	client    URLReputation
	pollDelay time.Duration
	now       func() time.Time
}

func NewURLScanner(client URLReputation, pollDelay time.Duration) *URLScanner {
	return &URLScanner{client: client, pollDelay: pollDelay, now: time.Now}
}

func (s *URLScanner) Scan(ctx context.Context, rawURL string) (models.URLScanResult, error) {
	if s.client == nil {
		return models.URLScanResult{}, ErrNotConfigured
	}

	attrs, err := s.client.LookupURL(ctx, intel.URLIdentifier(rawURL))
	switch {
	case err == nil:
	case errors.Is(err, intel.ErrNotFound):
		attrs, err = s.submitAndPoll(ctx, rawURL)
		if err != nil {
			return models.URLScanResult{}, err
		}
	default:
		return models.URLScanResult{}, fmt.Errorf("%w: %v", ErrLookup, err)
	}

	result := NormalizeScan(rawURL, attrs)
	result.CheckedAt = models.FormatTime(s.now())

	metrics.Verdicts.WithLabelValues(string(models.LookupURL), string(result.ThreatLevel)).Inc()
	metrics.URLThreatScore.Observe(result.ThreatScore)
	return result, nil
}

// submitAndPoll reads the analysis exactly once. An unfinished or unreadable
// analysis is returned as empty attributes rather than an error.
func (s *URLScanner) submitAndPoll(ctx context.Context, rawURL string) (*intel.URLAttributes, error) {
	analysisID, err := s.client.SubmitURL(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScan, err)
	}
	if analysisID == "" {
		logger.Log.Warnf("url submission returned no analysis id: url=%s", rawURL)
		return &intel.URLAttributes{}, nil
	}

	timer := time.NewTimer(s.pollDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	attrs, err := s.client.GetAnalysis(ctx, analysisID)
	if err != nil {
		logger.Log.Warnf("analysis fetch failed, returning empty result: id=%s, err=%v", analysisID, err)
		return &intel.URLAttributes{}, nil
	}
	return attrs, nil
}

// NormalizeScan builds the verdict from URL or analysis attributes.
func NormalizeScan(rawURL string, attrs *intel.URLAttributes) models.URLScanResult {
	if attrs == nil {
		attrs = &intel.URLAttributes{}
	}

	raw := attrs.EffectiveStats()
	stats := models.ScanStats{
		Malicious:  raw.Malicious,
		Suspicious: raw.Suspicious,
		Harmless:   raw.Harmless,
		Undetected: raw.Undetected,
	}
	stats.TotalEngines = stats.Malicious + stats.Suspicious + stats.Harmless + stats.Undetected

	score := 0.0
	if stats.TotalEngines > 0 {
		score = float64(stats.Malicious+stats.Suspicious) / float64(stats.TotalEngines) * 100
		score = math.Round(score*10) / 10
	}

	categories := attrs.Categories
	if categories == nil {
		categories = map[string]string{}
	}

	var lastAnalysis *string
	if attrs.LastAnalysisDate > 0 {
		ts := models.FormatTime(time.Unix(attrs.LastAnalysisDate, 0))
		lastAnalysis = &ts
	}

	return models.URLScanResult{
		URL:              rawURL,
		ThreatLevel:      urlThreatLevel(stats, score),
		ThreatScore:      score,
		Stats:            stats,
		FlaggedEngines:   flaggedEngines(attrs.EffectiveResults()),
		Categories:       categories,
		LastAnalysisDate: lastAnalysis,
	}
}

func urlThreatLevel(stats models.ScanStats, score float64) models.ThreatLevel {
	switch {
	case stats.Malicious >= 5 || score >= 20:
		return models.ThreatCritical
	case stats.Malicious >= 3 || score >= 10:
		return models.ThreatHigh
	case stats.Malicious >= 1 || stats.Suspicious >= 3:
		return models.ThreatMedium
	case stats.Suspicious >= 1:
		return models.ThreatLow
	}
	return models.ThreatSafe
}

func flaggedEngines(results map[string]intel.EngineResult) []models.FlaggedEngine {
	names := make([]string, 0, len(results))
	for name, r := range results {
		if r.Category == "malicious" || r.Category == "suspicious" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if len(names) > maxFlaggedEngines {
		names = names[:maxFlaggedEngines]
	}

	flagged := make([]models.FlaggedEngine, 0, len(names))
	for _, name := range names {
		r := results[name]
		flagged = append(flagged, models.FlaggedEngine{
			Engine:   name,
			Category: r.Category,
			Result:   r.Result,
		})
	}
	return flagged
}
