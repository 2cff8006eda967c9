package lin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/seagrayinc/linuds/pkg/isotp"
)

type linkConfig struct {
	bitrate     uint32
	commanderID uint8
	responderID uint8
	skipSetup   bool
}

type LinkOption func(*linkConfig)

// WithBitrate overrides DefaultBitrate.
func WithBitrate(bitrate uint32) LinkOption {
	return func(c *linkConfig) {
		c.bitrate = bitrate
	}
}

// WithFrameIDs overrides the diagnostic request and response frame identifiers.
func WithFrameIDs(commander, responder uint8) LinkOption {
	return func(c *linkConfig) {
		c.commanderID = commander
		c.responderID = responder
	}
}

// WithoutSetup skips adapter configuration, for buses that are already set up.
func WithoutSetup() LinkOption {
	return func(c *linkConfig) {
		c.skipSetup = true
	}
}

// Link carries isotp frames over the diagnostic frame identifiers of a Bus.
type Link struct {
	bus    Bus
	config linkConfig
}

// NewLink configures bus as a commander at the chosen bitrate with a classic-checksum
// receive filter on the response identifier.
func NewLink(ctx context.Context, bus Bus, opts ...LinkOption) (*Link, error) {
	cfg := linkConfig{
		bitrate:     DefaultBitrate,
		commanderID: CommanderID,
		responderID: ResponderID,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.commanderID > MaxID || cfg.responderID > MaxID {
		return nil, fmt.Errorf("frame identifiers 0x%02X/0x%02X out of range", cfg.commanderID, cfg.responderID)
	}

	l := &Link{bus: bus, config: cfg}
	if cfg.skipSetup {
		return l, nil
	}

	if err := bus.SetMode(ctx, ModeCommander); err != nil {
		return nil, fmt.Errorf("set mode: %w", err)
	}
	if err := bus.SetRate(ctx, cfg.bitrate); err != nil {
		return nil, fmt.Errorf("set rate: %w", err)
	}
	if err := bus.SetFilter(ctx, cfg.responderID, isotp.FrameSize, ChecksumClassic); err != nil {
		return nil, fmt.Errorf("set filter: %w", err)
	}

	slog.Debug("lin link configured",
		slog.Any("bitrate", cfg.bitrate),
		slog.Any("commander_id", cfg.commanderID),
		slog.Any("responder_id", cfg.responderID),
	)
	return l, nil
}

func (l *Link) Send(ctx context.Context, f isotp.Frame) error {
	return l.bus.Write(ctx, Message{
		ID:       l.config.commanderID,
		Data:     f[:],
		Checksum: ChecksumClassic,
	})
}

func (l *Link) Receive(ctx context.Context) (isotp.Frame, error) {
	var f isotp.Frame

	msg, ok, err := l.bus.Read(ctx, l.config.responderID)
	if err != nil {
		return f, err
	}
	if !ok {
		return f, isotp.ErrNoFrame
	}
	if len(msg.Data) != isotp.FrameSize {
		return f, &isotp.FramingError{
			State:  isotp.StateAwaitingFirstOrSingle,
			Reason: fmt.Sprintf("lin frame carries %d bytes, want %d", len(msg.Data), isotp.FrameSize),
		}
	}

	copy(f[:], msg.Data)
	return f, nil
}
