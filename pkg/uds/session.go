package uds

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

// Transport carries whole request and response payloads. *isotp.Transport satisfies it.
type Transport interface {
	Write(ctx context.Context, payload []byte) error
	Read(ctx context.Context) ([]byte, error)
}

// Request is one diagnostic service request whose positive response decodes to T.
type Request[T any] interface {
	Service() byte
	Marshal() []byte

	// Unmarshal validates resp against the request and decodes it.
	Unmarshal(resp []byte) (T, error)
}

// Session runs diagnostic exchanges over a borrowed Transport. A Session must not be
// used for overlapping exchanges; sessions sharing one physical link must be serialised
// by the caller.
type Session struct {
	tp     Transport
	config config
}

func New(tp Transport, opts ...Option) *Session {
	if tp == nil {
		panic("transport cannot be nil")
	}

	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Session{tp: tp, config: cfg}
}

// Exchange writes req, waits delay, reads the response and decodes it with req.
// The delay is a plain wait before polling for the response, it is not acknowledged
// by the responder. Errors abort the exchange and are never retried.
func Exchange[T any](ctx context.Context, s *Session, req Request[T], delay time.Duration) (T, error) {
	var zero T
	start := time.Now()

	resp, err := s.roundTrip(ctx, req.Service(), req.Marshal(), delay)
	if err != nil {
		s.observe(req.Service(), start, err)
		return zero, err
	}

	v, err := req.Unmarshal(resp)
	s.observe(req.Service(), start, err)
	if err != nil {
		s.config.logger.Warn("uds response rejected",
			slog.String("service", ServiceName(req.Service())),
			slog.Any("error", err),
		)
		return zero, err
	}

	return v, nil
}

func (s *Session) roundTrip(ctx context.Context, service byte, payload []byte, delay time.Duration) ([]byte, error) {
	s.config.logger.Debug("uds request",
		slog.String("service", ServiceName(service)),
		slog.String("payload", hex.EncodeToString(payload)),
	)

	if err := s.tp.Write(ctx, payload); err != nil {
		return nil, fmt.Errorf("write %s request: %w", ServiceName(service), err)
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	resp, err := s.tp.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", ServiceName(service), err)
	}

	s.config.logger.Debug("uds response",
		slog.String("service", ServiceName(service)),
		slog.String("payload", hex.EncodeToString(resp)),
	)
	return resp, nil
}

func (s *Session) observe(service byte, start time.Time, err error) {
	if s.config.observer != nil {
		s.config.observer.ObserveExchange(service, time.Since(start), err)
	}
}
