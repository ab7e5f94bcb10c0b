// Package logging configures logrus and carries request-scoped entries
// through a context.
package logging

import (
	"context"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

type ctxKey struct{}

// New returns a logger writing to out at level, as text or json.
func New(out io.Writer, level, format string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	logger := log.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)
	switch strings.ToLower(format) {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT: %q", format)
	}
	return logger, nil
}

// WithLogger stores l in ctx.
func WithLogger(ctx context.Context, l log.FieldLogger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or fallback, or the standard
// logger.
func FromContext(ctx context.Context, fallback log.FieldLogger) log.FieldLogger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(log.FieldLogger); ok {
			return l
		}
	}
	if fallback != nil {
		return fallback
	}
	return log.StandardLogger()
}
