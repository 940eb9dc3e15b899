package logger

import "context"

// Leveled adapts the context logger to the msg+key-value logger interface
// used by hashicorp/go-retryablehttp.
type Leveled struct {
	ctx context.Context
}

// NewLeveled returns a leveled logger bound to the logger stored in ctx.
//
//nolint:containedctx // The adapter exists to carry the context logger.
func NewLeveled(ctx context.Context) *Leveled {
	return &Leveled{ctx: ctx}
}

// Error writes msg at error level.
func (l *Leveled) Error(msg string, keysAndValues ...any) {
	ErrorKV(l.ctx, msg, keysAndValues...)
}

// Info writes msg at debug level; request traces are noise at info.
func (l *Leveled) Info(msg string, keysAndValues ...any) {
	DebugKV(l.ctx, msg, keysAndValues...)
}

// Debug writes msg at debug level.
func (l *Leveled) Debug(msg string, keysAndValues ...any) {
	DebugKV(l.ctx, msg, keysAndValues...)
}

// Warn writes msg at warning level.
func (l *Leveled) Warn(msg string, keysAndValues ...any) {
	WarnKV(l.ctx, msg, keysAndValues...)
}
