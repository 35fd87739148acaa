package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_toLevel(t *testing.T) {
	testCases := []struct {
		in       string
		expected slog.Level
	}{
		{in: "debug", expected: slog.LevelDebug},
		{in: "WARN", expected: slog.LevelWarn},
		{in: "error", expected: slog.LevelError},
		{in: "info", expected: slog.LevelInfo},
		{in: "", expected: slog.LevelInfo},
		{in: "verbose", expected: slog.LevelInfo},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, toLevel(tc.in))
		})
	}
}

func Test_NewLogger_RequestID(t *testing.T) {
	// given
	var buf bytes.Buffer
	logger := NewLogger("info", &buf)
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")

	// when
	logger.InfoContext(ctx, "hello")
	logger.Debug("suppressed")

	// then
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "req-42", record["request_id"])
}
