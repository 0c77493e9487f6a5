package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("bogus"))
}

func TestNewZapLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	l := NewZapLogger("mx.log", dir, "debug", 1, 1, false)
	l.Debug("hello from test")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(filepath.Join(dir, "mx.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
}

func TestInitLoggerOnce(t *testing.T) {
	first := NewZapLogger("first", "", "info", 1, 1, false)
	InitLogger(first)
	InitLogger(NewZapLogger("second", "", "info", 1, 1, false))

	assert.Same(t, first, GetLogger())
	assert.NotNil(t, GetSugar())
}
