package uds

import (
	"context"
	"encoding/binary"
	"time"
)

// WriteDataByIdentifierRequest stores Data under a data identifier (DID).
type WriteDataByIdentifierRequest struct {
	ID   uint16
	Data []byte
}

func (r WriteDataByIdentifierRequest) Service() byte {
	return ServiceWriteDataByIdentifier
}

func (r WriteDataByIdentifierRequest) Marshal() []byte {
	b := make([]byte, 0, 3+len(r.Data))
	b = append(b, ServiceWriteDataByIdentifier)
	b = binary.BigEndian.AppendUint16(b, r.ID)
	return append(b, r.Data...)
}

// Unmarshal expects exactly [0x6E][DID_H][DID_L].
func (r WriteDataByIdentifierRequest) Unmarshal(resp []byte) (struct{}, error) {
	if err := checkHeader(ServiceWriteDataByIdentifier, resp, 3); err != nil {
		return struct{}{}, err
	}
	if len(resp) != 3 {
		return struct{}{}, unexpected(ServiceWriteDataByIdentifier, resp, "length %d, want 3", len(resp))
	}
	if id := binary.BigEndian.Uint16(resp[1:3]); id != r.ID {
		return struct{}{}, unexpected(ServiceWriteDataByIdentifier, resp, "identifier 0x%04X, want 0x%04X", id, r.ID)
	}
	return struct{}{}, nil
}

// WriteDataByIdentifier writes data to DID id.
func (s *Session) WriteDataByIdentifier(ctx context.Context, id uint16, data []byte, delay time.Duration) error {
	_, err := Exchange[struct{}](ctx, s, WriteDataByIdentifierRequest{ID: id, Data: data}, delay)
	return err
}
