package utils

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/mdobak/go-xerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvFallback(t *testing.T) {
	t.Setenv("OBESITY_TEST_VALUE", "")
	assert.Equal(t, "default", GetEnv("OBESITY_TEST_VALUE", "default"))
	assert.Equal(t, "", GetEnv("OBESITY_TEST_VALUE"))

	t.Setenv("OBESITY_TEST_VALUE", " set ")
	assert.Equal(t, "set", GetEnv("OBESITY_TEST_VALUE", "default"))
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("OBESITY_TEST_INT", "7")
	assert.Equal(t, 7, GetEnvInt("OBESITY_TEST_INT", 3))

	t.Setenv("OBESITY_TEST_INT", "seven")
	assert.Equal(t, 3, GetEnvInt("OBESITY_TEST_INT", 3))

	t.Setenv("OBESITY_TEST_INT", "")
	assert.Equal(t, 3, GetEnvInt("OBESITY_TEST_INT", 3))
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("OBESITY_TEST_BOOL", "true")
	assert.True(t, GetEnvBool("OBESITY_TEST_BOOL", false))

	t.Setenv("OBESITY_TEST_BOOL", "0")
	assert.False(t, GetEnvBool("OBESITY_TEST_BOOL", true))

	t.Setenv("OBESITY_TEST_BOOL", "maybe")
	assert.True(t, GetEnvBool("OBESITY_TEST_BOOL", true))

	t.Setenv("OBESITY_TEST_BOOL", "")
	assert.False(t, GetEnvBool("OBESITY_TEST_BOOL", false))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestReplaceAttrAddsTraceForXerrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: replaceAttr}))

	logger.Error("wrapped", slog.Any("error", xerrors.New(errors.New("boom"))))
	assert.Contains(t, buf.String(), `"msg":"boom"`)
	assert.Contains(t, buf.String(), `"trace"`)

	buf.Reset()
	logger.Error("plain", slog.Any("error", errors.New("boom")))
	assert.Contains(t, buf.String(), `"msg":"boom"`)
	assert.NotContains(t, buf.String(), `"trace"`)
}

func TestCreateFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, CreateFolder(dir))
	require.DirExists(t, dir)
}
