package features

import "log/slog"

const defaultSuggestionThreshold = 0.8

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSuggestionThreshold sets the usage ratio above which a limited
// feature is suggested for upgrade. Values outside (0, 1] are ignored.
func WithSuggestionThreshold(ratio float64) Option {
	return func(s *Service) {
		if ratio > 0 && ratio <= 1 {
			s.threshold = ratio
		}
	}
}
