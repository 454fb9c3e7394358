package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_LevelsAndAttributes(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "debounced", "wait", "2s")
	log.Info(ctx, "accepted", "student_id", "S1")
	log.Warn(ctx, "duplicate", "date", "2025-09-01")
	log.Error(ctx, "push failed", "count", 3)

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG", "msg=debounced", "wait=2s",
		"level=INFO", "msg=accepted", "student_id=S1",
		"level=WARN", "msg=duplicate", "date=2025-09-01",
		"level=ERROR", `msg="push failed"`, "count=3",
	} {
		assert.Contains(t, out, want)
	}
}

func TestSlogLogger_With_AddsAttributes(t *testing.T) {
	log, buf := newTestLogger(t)

	child := log.With("module", "reconciler")
	child.Info(context.Background(), "pass finished", "synced", 2)

	out := buf.String()
	assert.Contains(t, out, "module=reconciler")
	assert.Contains(t, out, "synced=2")
}

func TestNewDiscard_DoesNotPanic(t *testing.T) {
	log := NewDiscard()
	ctx := context.TODO()
	log.Debug(ctx, "x")
	log.Info(ctx, "x")
	log.Warn(ctx, "x")
	log.Error(ctx, "x")
	log.With("k", "v").Info(ctx, "y")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelWarn},
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	log, err := New(&buf, "info", FormatJSON)
	assert.NoError(t, err)
	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "shown", "n", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"n":1`)

	buf.Reset()
	log, err = New(&buf, "", FormatText)
	assert.NoError(t, err)
	log.Info(context.Background(), "below warn")
	log.Warn(context.Background(), "offline")
	assert.NotContains(t, buf.String(), "below warn")
	assert.Contains(t, buf.String(), "msg=offline")

	_, err = New(&buf, "info", "xml")
	assert.Error(t, err)
	_, err = New(&buf, "verbose", FormatText)
	assert.Error(t, err)
}
