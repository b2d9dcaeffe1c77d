package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/UniQw/uniqm-go"
)

// Logging returns middleware that logs callback start and completion.
func Logging(logger *slog.Logger) uniqm.Middleware {
	return func(next uniqm.HandlerFunc) uniqm.HandlerFunc {
		return func(ctx context.Context, payload []byte) (any, error) {
			job, _ := uniqm.JobFromContext(ctx)
			logger.Info("job started",
				slog.String("job_id", job.ID),
				slog.String("queue", job.Queue),
				slog.String("action", job.Action),
			)

			start := time.Now()
			v, err := next(ctx, payload)
			elapsed := time.Since(start)

			if err != nil {
				logger.Error("job failed",
					slog.String("job_id", job.ID),
					slog.String("action", job.Action),
					slog.Duration("elapsed", elapsed),
					slog.String("error", err.Error()),
				)
			} else {
				logger.Info("job completed",
					slog.String("job_id", job.ID),
					slog.String("action", job.Action),
					slog.Duration("elapsed", elapsed),
				)
			}
			return v, err
		}
	}
}

// Recover returns middleware that turns a callback panic into an error and
// logs it with a stack trace.
func Recover(logger *slog.Logger) uniqm.Middleware {
	return func(next uniqm.HandlerFunc) uniqm.HandlerFunc {
		return func(ctx context.Context, payload []byte) (v any, retErr error) {
			defer func() {
				if r := recover(); r != nil {
					job, _ := uniqm.JobFromContext(ctx)
					logger.Error("job callback panicked",
						slog.String("job_id", job.ID),
						slog.String("action", job.Action),
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
					)
					v, retErr = nil, fmt.Errorf("panic in action %s: %v", job.Action, r)
				}
			}()
			return next(ctx, payload)
		}
	}
}
