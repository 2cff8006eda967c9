package uds

import (
	"context"
	"encoding/binary"
	"time"
)

// RoutineControlRequest starts, stops or queries the routine identified by ID.
type RoutineControlRequest struct {
	Kind RoutineKind
	ID   uint16
	Data []byte
}

func (r RoutineControlRequest) Service() byte {
	return ServiceRoutineControl
}

func (r RoutineControlRequest) Marshal() []byte {
	b := make([]byte, 0, 4+len(r.Data))
	b = append(b, ServiceRoutineControl, byte(r.Kind))
	b = binary.BigEndian.AppendUint16(b, r.ID)
	return append(b, r.Data...)
}

// Unmarshal expects [0x71][KIND][RID_H][RID_L][RESULT...] and returns RESULT.
func (r RoutineControlRequest) Unmarshal(resp []byte) ([]byte, error) {
	if err := checkHeader(ServiceRoutineControl, resp, 4); err != nil {
		return nil, err
	}
	if kind := RoutineKind(resp[1]); kind != r.Kind {
		return nil, unexpected(ServiceRoutineControl, resp, "sub-function 0x%02X, want 0x%02X", byte(kind), byte(r.Kind))
	}
	if id := binary.BigEndian.Uint16(resp[2:4]); id != r.ID {
		return nil, unexpected(ServiceRoutineControl, resp, "routine identifier 0x%04X, want 0x%04X", id, r.ID)
	}
	return append([]byte{}, resp[4:]...), nil
}

// RoutineControl runs the kind sub-function of routine id and returns the
// routine-specific status bytes.
func (s *Session) RoutineControl(ctx context.Context, kind RoutineKind, id uint16, data []byte, delay time.Duration) ([]byte, error) {
	return Exchange[[]byte](ctx, s, RoutineControlRequest{Kind: kind, ID: id, Data: data}, delay)
}

func (s *Session) RoutineStart(ctx context.Context, id uint16, data []byte, delay time.Duration) ([]byte, error) {
	return s.RoutineControl(ctx, RoutineStart, id, data, delay)
}

func (s *Session) RoutineStop(ctx context.Context, id uint16, data []byte, delay time.Duration) ([]byte, error) {
	return s.RoutineControl(ctx, RoutineStop, id, data, delay)
}

func (s *Session) RoutineRequestResults(ctx context.Context, id uint16, data []byte, delay time.Duration) ([]byte, error) {
	return s.RoutineControl(ctx, RoutineRequestResults, id, data, delay)
}
