package activity

import (
	"log/slog"
	"time"

	"github.com/collarlog/activity-service/internal/activityevents"
)

// Option configures a Service.
type Option func(*Service)

// WithPublisher publishes lifecycle events after successful writes.
func WithPublisher(p activityevents.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithClock overrides the time source used for sort keys and day starts.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the logger used for store and publish failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}
