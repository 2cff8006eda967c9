package isotp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultPollInterval is how long Read waits before polling the link again after it
// reported ErrNoFrame.
const DefaultPollInterval = 5 * time.Millisecond

// Link sends and receives single frames. Implementations guarantee per-frame integrity
// (checksums validated, corrupt frames dropped). Receive returns ErrNoFrame when no
// frame is available yet.
type Link interface {
	Send(ctx context.Context, f Frame) error
	Receive(ctx context.Context) (Frame, error)
}

// Transport moves whole messages over a Link. It is not safe for concurrent use and
// keeps no state between calls: every Read starts a fresh reassembly.
type Transport struct {
	Link Link

	// Address is the node address (NAD) written in outgoing frames and expected in
	// incoming ones.
	Address byte

	PollInterval time.Duration
}

// Write sends payload as one message. Oversized payloads fail with ErrPayloadTooLarge
// before anything reaches the link. Frames still queued on the link from an earlier,
// abandoned exchange are dropped first so they cannot answer this request.
func (t *Transport) Write(ctx context.Context, payload []byte) error {
	frames, err := Encode(t.Address, payload)
	if err != nil {
		return err
	}

	if err := t.drain(ctx); err != nil {
		return err
	}

	for i, f := range frames {
		slog.Debug("isotp send", slog.Int("frame", i), slog.String("bytes", f.String()))
		if err := t.Link.Send(ctx, f); err != nil {
			return fmt.Errorf("send frame %d/%d: %w", i+1, len(frames), err)
		}
	}

	return nil
}

// Read receives one message. It blocks until the message is complete, a protocol
// violation is seen, the link fails, or ctx is done.
func (t *Transport) Read(ctx context.Context) ([]byte, error) {
	r := NewReassembler()
	for {
		f, err := t.receive(ctx)
		if err != nil {
			return nil, err
		}
		slog.Debug("isotp receive", slog.String("bytes", f.String()), slog.String("state", r.State().String()))

		if t.Address != AddressWildcard && f.Address() != t.Address {
			return nil, &FramingError{
				State:  r.State(),
				PCI:    f.PCI(),
				Reason: fmt.Sprintf("unexpected node address 0x%02X, want 0x%02X", f.Address(), t.Address),
			}
		}

		done, err := r.Feed(f)
		if err != nil {
			return nil, err
		}
		if done {
			return r.Payload(), nil
		}
	}
}

// drain receives and discards frames until the link reports ErrNoFrame. At most one
// maximum-size message worth of frames is dropped per call.
func (t *Transport) drain(ctx context.Context) error {
	for i := 0; i < numFrames(MaxPayloadSize); i++ {
		f, err := t.Link.Receive(ctx)
		if errors.Is(err, ErrNoFrame) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("drain link: %w", err)
		}
		slog.Debug("isotp dropped stale frame", slog.String("bytes", f.String()))
	}
	return nil
}

func (t *Transport) receive(ctx context.Context) (Frame, error) {
	interval := t.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	for {
		f, err := t.Link.Receive(ctx)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, ErrNoFrame) {
			return Frame{}, fmt.Errorf("receive frame: %w", err)
		}

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-time.After(interval):
		}
	}
}
