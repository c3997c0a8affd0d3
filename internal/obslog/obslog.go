// Package obslog is a context-scoped structured logger. Every entry is
// stamped with correlation fields (orchestration id/name, activity
// name/id, ...) pulled from the context, mirrored to glog for local
// visibility, and shipped asynchronously to a keyed remote sink.
//
// Modeled on the teacher's go/sklog: package-level level functions
// delegating to a context-aware logger, safe to call before any sink is
// configured.
package obslog

import (
	"context"
	"fmt"

	"github.com/golang/glog"
)

type contextKey struct{}

// Fields is an ordered bag of correlation attributes stamped onto every
// entry emitted through a context carrying them.
type Fields map[string]string

// WithFields returns a context carrying fields merged on top of any
// fields already present on ctx (new keys win on collision).
func WithFields(ctx context.Context, fields Fields) context.Context {
	merged := Fields{}
	for k, v := range fieldsFromContext(ctx) {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return context.WithValue(ctx, contextKey{}, merged)
}

func fieldsFromContext(ctx context.Context) Fields {
	f, _ := ctx.Value(contextKey{}).(Fields)
	return f
}

// Sink receives every emitted entry after field normalization and
// truncation, along with the context it was logged from (so a sink can
// read additional context-scoped state, e.g. deadlines). nil Sink (the
// default) means entries are only mirrored to glog.
var Sink func(context.Context, Entry)

// Entry is one fully-normalized log record, ready for shipping.
type Entry struct {
	Level   string
	Message string
	Fields  map[string]string
}

const (
	maxPayloadBytes  = 4093
	truncationSuffix = "..."
)

func emit(ctx context.Context, level, format string, args []interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if len(msg) > maxPayloadBytes+len(truncationSuffix) {
		msg = msg[:maxPayloadBytes] + truncationSuffix
	}

	fields := normalizeOverrides(fieldsFromContext(ctx))
	pascal := make(map[string]string, len(fields))
	for k, v := range fields {
		pascal[toPascalCase(k)] = v
	}

	switch level {
	case "DEBUG":
		glog.V(1).Info(msg)
	case "INFO":
		glog.Info(msg)
	case "WARNING":
		glog.Warning(msg)
	case "ERROR":
		glog.Error(msg)
	}

	if Sink != nil {
		Sink(ctx, Entry{Level: level, Message: msg, Fields: pascal})
	}
}

// normalizeOverrides rewrites any "<field>_override" entry onto its base
// "<field>" key, dropping the "_override" suffix, then drops the
// remaining "_override" key. This mirrors the teacher's OverrideFilter
// trick for spoofing funcName/module on wrapped callables.
func normalizeOverrides(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	const suffix = "_override"
	for k, v := range fields {
		if len(k) > len(suffix) && k[len(k)-len(suffix):] == suffix {
			base := k[:len(k)-len(suffix)]
			out[base] = v
			delete(out, k)
		}
	}
	return out
}

func Debug(ctx context.Context, msg string)   { emit(ctx, "DEBUG", msg, nil) }
func Info(ctx context.Context, msg string)    { emit(ctx, "INFO", msg, nil) }
func Warning(ctx context.Context, msg string) { emit(ctx, "WARNING", msg, nil) }
func Error(ctx context.Context, msg string)   { emit(ctx, "ERROR", msg, nil) }

func Debugf(ctx context.Context, format string, args ...interface{})   { emit(ctx, "DEBUG", format, args) }
func Infof(ctx context.Context, format string, args ...interface{})    { emit(ctx, "INFO", format, args) }
func Warningf(ctx context.Context, format string, args ...interface{}) { emit(ctx, "WARNING", format, args) }
func Errorf(ctx context.Context, format string, args ...interface{})   { emit(ctx, "ERROR", format, args) }
