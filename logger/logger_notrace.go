//go:build !debug_trace
// +build !debug_trace

package logger

import (
	"context"
)

// Tracef is compiled out unless built with the "debug_trace" tag.
func Tracef(ctx context.Context, format string, args ...any) {}

// IsTraceEnabled reports whether Tracef does anything in this build.
func IsTraceEnabled(ctx context.Context) bool {
	return false
}
