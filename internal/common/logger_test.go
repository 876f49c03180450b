package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer

	handler, err := NewHandler(&buf, slog.LevelInfo, "json")
	require.NoError(t, err)
	slog.New(handler).Info("Transfer committed", "amount", "40.00")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Transfer committed", line["msg"])
	assert.Equal(t, "40.00", line["amount"])

	_, err = NewHandler(&buf, slog.LevelInfo, "xml")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLogHelpers(t *testing.T) {
	var buf bytes.Buffer
	handler, err := NewHandler(&buf, slog.LevelDebug, "console")
	require.NoError(t, err)

	prev := slog.Default()
	slog.SetDefault(slog.New(handler))
	defer slog.SetDefault(prev)

	LogError(errors.New("boom"), "Request failed", Fields{"path": "/transfer"})
	LogInfo("Statement import finished", Fields{"applied": 2})
	LogDebug("Schema version", Fields{"current": 3})

	out := buf.String()
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "path=/transfer")
	assert.Contains(t, out, "applied=2")
	assert.Contains(t, out, "current=3")
}
