package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardAllowed(t *testing.T) {
	g := New([]string{"https://dashboard.example.com"})

	assert.True(t, g.Allowed("https://dashboard.example.com"))
	assert.True(t, g.Allowed("https://preview-123.lovableproject.com"))
	assert.True(t, g.Allowed("https://my-app.lovable.app"))

	assert.False(t, g.Allowed(""))
	assert.False(t, g.Allowed("https://evil.example.com"))
	assert.False(t, g.Allowed("https://lovable.app.evil.com"))
	assert.False(t, g.Allowed("http://localhost:5173"), "defaults only apply without a configured list")
}

func TestGuardDefaults(t *testing.T) {
	g := New(nil)
	for _, origin := range DefaultOrigins {
		assert.True(t, g.Allowed(origin), origin)
	}
}

func TestGuardHeaders(t *testing.T) {
	g := New([]string{"https://dashboard.example.com"})

	t.Run("trusted suffix is echoed back", func(t *testing.T) {
		h := g.Headers("https://abc.lovableproject.com", MethodsPost)
		assert.Equal(t, "https://abc.lovableproject.com", h["Access-Control-Allow-Origin"])
		assert.Equal(t, "POST, OPTIONS", h["Access-Control-Allow-Methods"])
		assert.Equal(t, "authorization, x-client-info, apikey, content-type", h["Access-Control-Allow-Headers"])
	})

	t.Run("unknown origin gets an empty value", func(t *testing.T) {
		h := g.Headers("https://attacker.example.net", MethodsGetAndPost)
		value, ok := h["Access-Control-Allow-Origin"]
		assert.True(t, ok)
		assert.Equal(t, "", value)
		assert.Equal(t, "GET, POST, OPTIONS", h["Access-Control-Allow-Methods"])
	})

	t.Run("missing origin gets an empty value", func(t *testing.T) {
		assert.Equal(t, "", g.Headers("", MethodsPost)["Access-Control-Allow-Origin"])
	})
}

func TestGuardApply(t *testing.T) {
	g := New([]string{"https://dashboard.example.com"})

	r := httptest.NewRequest(http.MethodOptions, "/scan-url", nil)
	r.Header.Set("Origin", "https://dashboard.example.com")
	w := httptest.NewRecorder()

	g.Apply(w, r, MethodsPost)

	assert.Equal(t, "https://dashboard.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
}
