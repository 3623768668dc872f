package httpserver

import (
	"context"
	"log/slog"
	"time"
)

// Option configures a Server.
type Option func(*settings)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *settings) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStopHook registers fn to run after the server stopped accepting
// requests and in-flight handlers returned. Hooks share the shutdown
// deadline.
func WithStopHook(fn func(ctx context.Context)) Option {
	return func(s *settings) {
		if fn != nil {
			s.stopHooks = append(s.stopHooks, fn)
		}
	}
}
