package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/learnhub/community/pkg/config"
)

func scalyrLogger(buf *bytes.Buffer) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:      "timestamp",
		LevelKey:     "level",
		MessageKey:   "message",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
	core := zapcore.NewCore(NewScalyrEncoder(encoderConfig), zapcore.AddSync(buf), zapcore.InfoLevel)
	return zap.New(core)
}

func TestInitLogger_Scalyr(t *testing.T) {
	oldLogger := Logger
	defer func() { Logger = oldLogger }()

	err := InitLogger(&config.LoggingConfig{Level: "INFO", Format: "json", ScalyrFormat: true})
	require.NoError(t, err)
	assert.NotNil(t, Logger)
}

func TestScalyrEncoder(t *testing.T) {
	var buf bytes.Buffer
	logger := scalyrLogger(&buf)

	logger.Info("test message",
		zap.String("key", "value"),
		zap.Int("count", 3),
		zap.Duration("took", 1500*time.Millisecond),
	)

	var logObj map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logObj))

	assert.Equal(t, "test message", logObj["message"])
	assert.Equal(t, "value", logObj["key"])
	assert.EqualValues(t, 3, logObj["count"])
	assert.Equal(t, "1.5s", logObj["took"])
	assert.Contains(t, logObj, "timestamp")
}

func TestScalyrEncoder_KeepsContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := scalyrLogger(&buf).With(zap.String("component", "engagement"))

	logger.Info("first")
	logger.Info("second", zap.String("post_id", "p1"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "engagement", second["component"])
	assert.Equal(t, "p1", second["post_id"])
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	FromContext(context.Background(), base).Info("plain")

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))
	FromContext(ctx, base).Info("traced")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Empty(t, entries[0].ContextMap())
	assert.Equal(t, traceID.String(), entries[1].ContextMap()["trace_id"])
	assert.Equal(t, spanID.String(), entries[1].ContextMap()["span_id"])
}
