//go:build debug_trace
// +build debug_trace

package logger

import (
	"context"

	"github.com/facebookincubator/go-belt/tool/logger"
)

// Tracef is just a shorthand for Logf(ctx, logger.LevelTrace, ...)
func Tracef(ctx context.Context, format string, args ...any) {
	logger.Tracef(ctx, format, args...)
}

// IsTraceEnabled reports whether the logger in the context would print a Tracef.
func IsTraceEnabled(ctx context.Context) bool {
	return logger.FromCtx(ctx).Level() >= logger.LevelTrace
}
