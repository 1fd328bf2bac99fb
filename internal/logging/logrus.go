package logging

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// WithRequestID stores a request identifier that every log line written with
// the returned context will carry.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the identifier stored by WithRequestID, if any.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// LogrusLogger adapts a logrus entry to Logger.
type LogrusLogger struct {
	entry *logrus.Entry
}

var _ Logger = (*LogrusLogger)(nil)

// New builds a logger writing to out. level is any logrus level name and
// format is "json" or "text".
func New(out io.Writer, level, format string) (*LogrusLogger, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	return &LogrusLogger{entry: logrus.NewEntry(l)}, nil
}

// NewFromLogrus wraps an existing logrus logger.
func NewFromLogrus(l *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

func (l *LogrusLogger) Debug(ctx context.Context, msg string, args ...any) {
	l.at(ctx, args).Debug(msg)
}

func (l *LogrusLogger) Info(ctx context.Context, msg string, args ...any) {
	l.at(ctx, args).Info(msg)
}

func (l *LogrusLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.at(ctx, args).Warn(msg)
}

func (l *LogrusLogger) Error(ctx context.Context, msg string, args ...any) {
	l.at(ctx, args).Error(msg)
}

func (l *LogrusLogger) With(args ...any) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(toFields(args))}
}

func (l *LogrusLogger) at(ctx context.Context, args []any) *logrus.Entry {
	entry := l.entry
	if ctx != nil {
		entry = entry.WithContext(ctx)
		if id := RequestID(ctx); id != "" {
			entry = entry.WithField("request_id", id)
		}
	}
	if len(args) == 0 {
		return entry
	}
	return entry.WithFields(toFields(args))
}

func toFields(args []any) logrus.Fields {
	fields := make(logrus.Fields, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		if i+1 == len(args) {
			fields["!BADKEY"] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		fields[key] = args[i+1]
	}
	return fields
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewFromLogrus(l)
}
