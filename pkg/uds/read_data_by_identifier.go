package uds

import (
	"context"
	"encoding/binary"
	"time"
)

// ReadDataByIdentifierRequest reads the value stored under a data identifier (DID).
type ReadDataByIdentifierRequest struct {
	ID uint16
}

func (r ReadDataByIdentifierRequest) Service() byte {
	return ServiceReadDataByIdentifier
}

func (r ReadDataByIdentifierRequest) Marshal() []byte {
	return binary.BigEndian.AppendUint16([]byte{ServiceReadDataByIdentifier}, r.ID)
}

// Unmarshal expects [0x62][DID_H][DID_L][DATA...] and returns DATA.
func (r ReadDataByIdentifierRequest) Unmarshal(resp []byte) ([]byte, error) {
	if err := checkHeader(ServiceReadDataByIdentifier, resp, 3); err != nil {
		return nil, err
	}
	if id := binary.BigEndian.Uint16(resp[1:3]); id != r.ID {
		return nil, unexpected(ServiceReadDataByIdentifier, resp, "identifier 0x%04X, want 0x%04X", id, r.ID)
	}
	return append([]byte{}, resp[3:]...), nil
}

// ReadDataByIdentifier returns the value of DID id.
func (s *Session) ReadDataByIdentifier(ctx context.Context, id uint16, delay time.Duration) ([]byte, error) {
	return Exchange[[]byte](ctx, s, ReadDataByIdentifierRequest{ID: id}, delay)
}
