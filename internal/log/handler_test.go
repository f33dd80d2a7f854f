package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ErlanBelekov/sultan-shell/internal/device"
	ctxlog "github.com/ErlanBelekov/sultan-shell/internal/log"
	"github.com/ErlanBelekov/sultan-shell/internal/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHandler_StampsIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(ctxlog.NewContextHandler(slog.NewJSONHandler(&buf, nil))).With("component", "test")

	ctx := requestid.WithRequestID(context.Background(), "req-1")
	ctx = device.WithID(ctx, "dev-1")
	logger.InfoContext(ctx, "hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "dev-1", rec["device_id"])
	assert.Equal(t, "test", rec["component"])
}

func TestContextHandler_OmitsMissingIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(ctxlog.NewContextHandler(slog.NewJSONHandler(&buf, nil)))
	logger.InfoContext(context.Background(), "hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.NotContains(t, rec, "request_id")
	assert.NotContains(t, rec, "device_id")
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shell.log")
	logger := ctxlog.New("production", slog.LevelInfo, path)

	logger.InfoContext(device.WithID(context.Background(), "dev-2"), "written", "n", 1)
	logger.Debug("filtered")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(raw), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "written", rec["msg"])
	assert.Equal(t, "dev-2", rec["device_id"])
}
