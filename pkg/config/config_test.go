package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 60, cfg.RateLimit.IPThreatLimit)
	assert.Equal(t, 30, cfg.RateLimit.ScanURLLimit)
	assert.Equal(t, 120, cfg.RateLimit.VisitorLimit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "memory", cfg.RateLimit.Store)
	assert.Equal(t, 2*time.Second, cfg.VirusTotal.PollDelay)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
	assert.Empty(t, cfg.AbuseIPDB.APIKey)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("ABUSEIPDB_API_KEY", "abuse-key")
	t.Setenv("VIRUSTOTAL_API_KEY", "vt-key")
	t.Setenv("VIRUSTOTAL_POLL_DELAY", "500ms")
	t.Setenv("RATELIMIT_SCAN_URL_LIMIT", "5")
	t.Setenv("RATELIMIT_EXEMPT_IPS", "10.0.0.0/8,192.168.1.10")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "abuse-key", cfg.AbuseIPDB.APIKey)
	assert.Equal(t, "vt-key", cfg.VirusTotal.APIKey)
	assert.Equal(t, 500*time.Millisecond, cfg.VirusTotal.PollDelay)
	assert.Equal(t, 5, cfg.RateLimit.ScanURLLimit)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.10"}, cfg.RateLimit.ExemptIPs)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", " c ", ""}))
	assert.Empty(t, splitList(nil))
}
