package trial

import (
	"log/slog"
	"time"
)

// Option configures the trial service.
type Option func(*service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for sweep and transition events.
func WithLogger(l *slog.Logger) Option {
	return func(s *service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTrialDuration overrides the length of new trials.
func WithTrialDuration(d time.Duration) Option {
	return func(s *service) {
		if d > 0 {
			s.trialDuration = d
		}
	}
}
