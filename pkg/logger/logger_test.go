package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, getLogLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, getLogLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, getLogLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, getLogLevel("info"))
	assert.Equal(t, zapcore.InfoLevel, getLogLevel("verbose"))
}

func TestInitWritesToFile(t *testing.T) {
	original := Log
	t.Cleanup(func() { Log = original })

	path := filepath.Join(t.TempDir(), "vortexguard.log")
	require.NoError(t, Init("info", path))

	Log.Infof("lookup complete: %s", "203.0.113.5")
	Log.Debugf("suppressed at info level")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "lookup complete: 203.0.113.5")
	assert.NotContains(t, string(data), "suppressed")
}
