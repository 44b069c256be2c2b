package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestNewWritesToFileAndStderr(t *testing.T) {
	restoreDefault(t)

	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "hoardings.log")

	logger, cleanup, err := newLogger(&stderr, "warn", "json", path)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "hoarding_id", 7)
	cleanup()

	fileData, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, out := range []string{stderr.String(), string(fileData)} {
		assert.Contains(t, out, `"msg":"kept"`)
		assert.Contains(t, out, `"hoarding_id":7`)
		assert.Contains(t, out, `"app":"hoardings"`)
		assert.NotContains(t, out, "dropped")
	}
}

func TestNewTextConsoleKeepsJSONFile(t *testing.T) {
	restoreDefault(t)

	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "hoardings.log")

	logger, cleanup, err := newLogger(&stderr, "info", "TEXT", path)
	require.NoError(t, err)

	logger.WithGroup("smtp").Info("enquiry notification", "to", "sales@example.com")
	cleanup()

	assert.Contains(t, stderr.String(), "msg=\"enquiry notification\"")
	assert.Contains(t, stderr.String(), "smtp.to=sales@example.com")

	fileData, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(fileData), `"smtp":{"to":"sales@example.com"}`)
}

func TestNewSetsDefault(t *testing.T) {
	restoreDefault(t)

	var stderr bytes.Buffer
	_, _, err := newLogger(&stderr, "info", "", "")
	require.NoError(t, err)

	slog.Info("via default")
	assert.Contains(t, stderr.String(), `"msg":"via default"`)
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	restoreDefault(t)

	_, _, err := newLogger(&bytes.Buffer{}, "info", "xml", "")
	assert.Error(t, err)
}

func TestNewBadLogFile(t *testing.T) {
	restoreDefault(t)

	_, _, err := New("info", "json", filepath.Join(t.TempDir(), "missing", "dir", "x.log"))
	assert.Error(t, err)
}

func TestNewLogsErrorsWithoutStack(t *testing.T) {
	restoreDefault(t)

	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "hoardings.log")

	logger, cleanup, err := newLogger(&stderr, "info", "text", path)
	require.NoError(t, err)

	logger.Error("image save failed", "error", errors.Wrap(errors.New("disk full"), "store image"))
	cleanup()

	assert.Contains(t, stderr.String(), `error="store image: disk full"`)
	assert.NotContains(t, stderr.String(), "logging_test.go")

	fileData, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(fileData), `"error":"store image: disk full"`)
}
