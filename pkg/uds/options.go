package uds

import (
	"log/slog"
	"time"
)

// Observer is notified after every exchange, successful or not.
type Observer interface {
	ObserveExchange(service byte, elapsed time.Duration, err error)
}

type config struct {
	logger   *slog.Logger
	observer Observer
}

// Option configures a Session.
type Option func(*config)

// WithLogger sets the logger used for request/response tracing. The default is
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers an Observer, e.g. a metrics collector.
func WithObserver(o Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}
