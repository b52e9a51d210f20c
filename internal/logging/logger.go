// Package logging constructs the zap.Logger every recker component logs
// through, plus the canonical field/component names used to keep log
// lines consistent across the pipeline.
package logging

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const (
	ctxKeyRequestID   ctxKey = "request_id"
	ctxKeyFingerprint ctxKey = "fingerprint"
	ctxKeyComponent   ctxKey = "component"
)

// Component names stamped on every logger handed to a pipeline stage.
const (
	ComponentClient     = "client"
	ComponentScheduler  = "scheduler"
	ComponentRetry      = "retry"
	ComponentRedirect   = "redirect"
	ComponentDedup      = "dedup"
	ComponentCache      = "cache"
	ComponentCookieJar  = "cookiejar"
	ComponentAuth       = "auth"
	ComponentProgress   = "progress"
	ComponentTransport  = "transport"
	ComponentDecode     = "decode"
	ComponentStore      = "store"
)

// Canonical field names.
const (
	FieldRequestID   = "request_id"
	FieldMethod      = "method"
	FieldHost        = "host"
	FieldURL         = "url"
	FieldStatusCode  = "status_code"
	FieldDurationMs  = "duration_ms"
	FieldAttempt     = "attempt"
	FieldFingerprint = "fingerprint"
	FieldComponent   = "component"
	FieldReason      = "reason"
	FieldDelayMs     = "delay_ms"
	FieldHop         = "hop"
	FieldCacheState  = "cache_state"
)

// NewLogger builds a zap.Logger; level is debug/info/warn/error, format is
// json or console, and an empty filePath logs to stdout.
func NewLogger(level, format, filePath string) (*zap.Logger, error) {
	var lvl zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "info", "":
		lvl = zapcore.InfoLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
	}

	var encoder zapcore.Encoder
	if strings.ToLower(format) == "console" {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	var ws zapcore.WriteSyncer = zapcore.AddSync(os.Stdout)
	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		ws = zapcore.AddSync(f)
	}

	core := zapcore.NewCore(encoder, ws, lvl)
	return zap.New(core), nil
}

// NewComponentLogger returns NewLogger's result pre-tagged with a
// component field, the pattern every pipeline stage constructor uses.
func NewComponentLogger(base *zap.Logger, component string) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return base.With(zap.String(FieldComponent, component))
}

// WithContext attaches request-id/fingerprint fields carried on ctx.
func WithContext(logger *zap.Logger, ctx context.Context) *zap.Logger {
	fields := ExtractContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// ExtractContextFields extracts logging fields stashed on ctx.
func ExtractContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok && v != "" {
		fields = append(fields, zap.String(FieldRequestID, v))
	}
	if v, ok := ctx.Value(ctxKeyFingerprint).(string); ok && v != "" {
		fields = append(fields, zap.String(FieldFingerprint, v))
	}
	if v, ok := ctx.Value(ctxKeyComponent).(string); ok && v != "" {
		fields = append(fields, zap.String(FieldComponent, v))
	}
	return fields
}

// WithRequestID stashes a request id on ctx for later log enrichment.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// WithFingerprint stashes a dedup/cache fingerprint on ctx.
func WithFingerprint(ctx context.Context, fp string) context.Context {
	return context.WithValue(ctx, ctxKeyFingerprint, fp)
}

// GetRequestID extracts a request id stashed by WithRequestID.
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}
