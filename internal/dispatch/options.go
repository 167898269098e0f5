package dispatch

import (
	"log/slog"
	"time"
)

type options struct {
	logger   *slog.Logger
	now      func() time.Time
	selector Selector
}

// Option configures the dispatch components.
type Option func(*options)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source used for completion and audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSelector replaces the technician selection policy.
func WithSelector(s Selector) Option {
	return func(o *options) {
		if s != nil {
			o.selector = s
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   slog.Default(),
		now:      time.Now,
		selector: FirstAvailable{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
