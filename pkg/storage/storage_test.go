package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-vortexguard/pkg/config"
	"go-vortexguard/pkg/models"
)

func TestStorageWithoutBackends(t *testing.T) {
	s, err := NewStorage(config.Config{})
	require.NoError(t, err)

	ev := models.LookupEvent{Kind: models.LookupIP, Subject: "203.0.113.5", ThreatLevel: models.ThreatHigh, CheckedAt: time.Now()}
	assert.NoError(t, s.RecordLookup(context.Background(), ev))
	assert.NoError(t, s.SaveAlertEvent(context.Background(), ev))

	recent, err := s.RecentAlerts(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, recent)
	assert.NoError(t, s.Close())
}

func TestRecordLookupWritesLineProtocol(t *testing.T) {
	var (
		gotPath   string
		gotBucket string
		gotBody   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBucket = r.URL.Query().Get("bucket")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var cfg config.Config
	cfg.InfluxDB.URL = srv.URL
	cfg.InfluxDB.Token = "token"
	cfg.InfluxDB.Org = "vortex"
	cfg.InfluxDB.Bucket = "lookups"

	s, err := NewStorage(cfg)
	require.NoError(t, err)
	defer s.Close()

	err = s.RecordLookup(context.Background(), models.LookupEvent{
		Kind:        models.LookupURL,
		Subject:     "https://example.com",
		ThreatLevel: models.ThreatCritical,
		Score:       42.5,
		ClientIP:    "198.51.100.7",
		CheckedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/v2/write", gotPath)
	assert.Equal(t, "lookups", gotBucket)
	assert.Contains(t, gotBody, "threat_lookups,kind=url,threat_level=critical")
	assert.Contains(t, gotBody, `subject="https://example.com"`)
	assert.Contains(t, gotBody, "score=42.5")
}

func TestRecordLookupSurfacesWriteErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"code":"unauthorized","message":"unauthorized access"}`)
	}))
	defer srv.Close()

	var cfg config.Config
	cfg.InfluxDB.URL = srv.URL
	cfg.InfluxDB.Bucket = "lookups"

	s, err := NewStorage(cfg)
	require.NoError(t, err)
	defer s.Close()

	err = s.RecordLookup(context.Background(), models.LookupEvent{Kind: models.LookupIP, Subject: "8.8.8.8", CheckedAt: time.Now()})
	assert.Error(t, err)
}
