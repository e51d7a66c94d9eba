package analyzer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-vortexguard/pkg/intel"
	"go-vortexguard/pkg/models"
)

type fakeReputation struct {
	lookupAttrs   *intel.URLAttributes
	lookupErr     error
	submitID      string
	submitErr     error
	analysisAttrs *intel.URLAttributes
	analysisErr   error

	lookedUp  string
	submitted string
	polled    string
}

func (f *fakeReputation) LookupURL(_ context.Context, id string) (*intel.URLAttributes, error) {
	f.lookedUp = id
	return f.lookupAttrs, f.lookupErr
}

func (f *fakeReputation) SubmitURL(_ context.Context, rawURL string) (string, error) {
	f.submitted = rawURL
	return f.submitID, f.submitErr
}

func (f *fakeReputation) GetAnalysis(_ context.Context, id string) (*intel.URLAttributes, error) {
	f.polled = id
	return f.analysisAttrs, f.analysisErr
}

func stats(malicious, suspicious, harmless, undetected int) *intel.AnalysisStats {
	return &intel.AnalysisStats{Malicious: malicious, Suspicious: suspicious, Harmless: harmless, Undetected: undetected}
}

func TestNormalizeScanThresholds(t *testing.T) {
	cases := []struct {
		name      string
		stats     *intel.AnalysisStats
		wantScore float64
		wantLevel models.ThreatLevel
	}{
		{"five malicious engines is critical below 20 percent", stats(5, 0, 95, 0), 5.0, models.ThreatCritical},
		{"single suspicious engine is low", stats(0, 1, 99, 0), 1.0, models.ThreatLow},
		{"score of 20 is critical", stats(1, 1, 8, 0), 20.0, models.ThreatCritical},
		{"three malicious is high", stats(3, 0, 97, 0), 3.0, models.ThreatHigh},
		{"score of 10 is high", stats(0, 2, 18, 0), 10.0, models.ThreatHigh},
		{"one malicious is medium", stats(1, 0, 99, 0), 1.0, models.ThreatMedium},
		{"three suspicious is medium", stats(0, 3, 97, 0), 3.0, models.ThreatMedium},
		{"clean is safe", stats(0, 0, 70, 20), 0, models.ThreatSafe},
		{"no engines is safe with zero score", nil, 0, models.ThreatSafe},
		{"score rounds to one decimal", stats(1, 0, 2, 0), 33.3, models.ThreatCritical},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := NormalizeScan("https://example.com", &intel.URLAttributes{LastAnalysisStats: tc.stats})
			assert.Equal(t, tc.wantScore, res.ThreatScore)
			assert.Equal(t, tc.wantLevel, res.ThreatLevel)
			assert.Equal(t, res.Stats.Malicious+res.Stats.Suspicious+res.Stats.Harmless+res.Stats.Undetected, res.Stats.TotalEngines)
		})
	}
}

func TestNormalizeScanFallsBackToAnalysisFields(t *testing.T) {
	attrs := &intel.URLAttributes{
		Stats: stats(0, 0, 5, 5),
		Results: map[string]intel.EngineResult{
			"Alpha": {Category: "harmless", Result: "clean"},
		},
	}
	res := NormalizeScan("https://example.com", attrs)
	assert.Equal(t, 10, res.Stats.TotalEngines)
	assert.Empty(t, res.FlaggedEngines)
	assert.NotNil(t, res.FlaggedEngines)
	assert.Equal(t, map[string]string{}, res.Categories)
	assert.Nil(t, res.LastAnalysisDate)
}

func TestNormalizeScanFlaggedEngines(t *testing.T) {
	results := map[string]intel.EngineResult{}
	for i := 0; i < 14; i++ {
		results[fmt.Sprintf("Engine%02d", i)] = intel.EngineResult{Category: "malicious", Result: "phishing"}
	}
	results["Clean"] = intel.EngineResult{Category: "harmless", Result: "clean"}
	results["Aardvark"] = intel.EngineResult{Category: "suspicious", Result: "suspicious"}

	res := NormalizeScan("https://example.com", &intel.URLAttributes{
		LastAnalysisStats:   stats(14, 1, 1, 0),
		LastAnalysisResults: results,
		Categories:          map[string]string{"Forcepoint": "phishing"},
		LastAnalysisDate:    1714557600,
	})

	require.Len(t, res.FlaggedEngines, maxFlaggedEngines)
	assert.Equal(t, models.FlaggedEngine{Engine: "Aardvark", Category: "suspicious", Result: "suspicious"}, res.FlaggedEngines[0])
	assert.Equal(t, "Engine00", res.FlaggedEngines[1].Engine)
	assert.Equal(t, "Engine08", res.FlaggedEngines[9].Engine)
	assert.Equal(t, "phishing", res.Categories["Forcepoint"])
	require.NotNil(t, res.LastAnalysisDate)
	assert.Equal(t, "2024-05-01T10:00:00.000Z", *res.LastAnalysisDate)
}

func TestURLScannerScan(t *testing.T) {
	t.Run("returns the stored report", func(t *testing.T) {
		rep := &fakeReputation{lookupAttrs: &intel.URLAttributes{LastAnalysisStats: stats(5, 0, 95, 0)}}
		s := NewURLScanner(rep, time.Hour)
		s.now = fixedNow

		res, err := s.Scan(context.Background(), "https://example.com")
		require.NoError(t, err)
		assert.Equal(t, intel.URLIdentifier("https://example.com"), rep.lookedUp)
		assert.Empty(t, rep.submitted)
		assert.Equal(t, models.ThreatCritical, res.ThreatLevel)
		assert.Equal(t, "https://example.com", res.URL)
		assert.Equal(t, "2024-05-01T12:00:00.000Z", res.CheckedAt)
	})

	t.Run("submits unknown URLs and polls once", func(t *testing.T) {
		rep := &fakeReputation{
			lookupErr:     &intel.StatusError{Provider: intel.ProviderVirusTotal, StatusCode: 404},
			submitID:      "u-1",
			analysisAttrs: &intel.URLAttributes{Stats: stats(0, 1, 99, 0)},
		}
		res, err := NewURLScanner(rep, time.Millisecond).Scan(context.Background(), "https://new.example.com")
		require.NoError(t, err)
		assert.Equal(t, "https://new.example.com", rep.submitted)
		assert.Equal(t, "u-1", rep.polled)
		assert.Equal(t, models.ThreatLow, res.ThreatLevel)
		assert.Equal(t, 1.0, res.ThreatScore)
	})

	t.Run("failed analysis fetch yields empty stats", func(t *testing.T) {
		rep := &fakeReputation{
			lookupErr:   intel.ErrNotFound,
			submitID:    "u-2",
			analysisErr: errors.New("status 500"),
		}
		res, err := NewURLScanner(rep, time.Millisecond).Scan(context.Background(), "https://new.example.com")
		require.NoError(t, err)
		assert.Equal(t, models.ThreatSafe, res.ThreatLevel)
		assert.Zero(t, res.Stats.TotalEngines)
	})

	t.Run("submission failure is a scan error", func(t *testing.T) {
		rep := &fakeReputation{lookupErr: intel.ErrNotFound, submitErr: errors.New("status 400")}
		_, err := NewURLScanner(rep, time.Millisecond).Scan(context.Background(), "https://new.example.com")
		assert.ErrorIs(t, err, ErrScan)
	})

	t.Run("other lookup failures are lookup errors", func(t *testing.T) {
		rep := &fakeReputation{lookupErr: &intel.StatusError{Provider: intel.ProviderVirusTotal, StatusCode: 401}}
		_, err := NewURLScanner(rep, time.Millisecond).Scan(context.Background(), "https://example.com")
		assert.ErrorIs(t, err, ErrLookup)
		assert.Empty(t, rep.submitted)
	})

	t.Run("missing client is a configuration error", func(t *testing.T) {
		_, err := NewURLScanner(nil, time.Millisecond).Scan(context.Background(), "https://example.com")
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("cancelled request stops waiting", func(t *testing.T) {
		rep := &fakeReputation{lookupErr: intel.ErrNotFound, submitID: "u-3"}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewURLScanner(rep, time.Hour).Scan(ctx, "https://new.example.com")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, rep.polled)
	})
}
