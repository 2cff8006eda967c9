package hid

import "fmt"

// Stream adapts a report-based Device into a byte stream. Outgoing bytes are split
// into zero padded output reports; incoming reports are buffered until read.
type Stream struct {
	dev      Device
	reportID byte
	outLen   int
	pending  []byte
}

func NewStream(dev Device, reportID byte) (*Stream, error) {
	_, outLen := dev.ReportLens()
	if outLen <= 0 {
		return nil, fmt.Errorf("hid: device has no output report")
	}
	return &Stream{dev: dev, reportID: reportID, outLen: outLen}, nil
}

func (s *Stream) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		chunk := make([]byte, s.outLen)
		n := copy(chunk, p[written:])
		if err := s.dev.WriteReport(Report{ID: s.reportID, Data: chunk}); err != nil {
			return written, fmt.Errorf("hid write report: %w", err)
		}
		written += n
	}
	return written, nil
}

func (s *Stream) Read(p []byte) (int, error) {
	for len(s.pending) == 0 {
		r, err := s.dev.ReadReport()
		if err != nil {
			return 0, fmt.Errorf("hid read report: %w", err)
		}
		if r.ID != s.reportID {
			continue
		}
		s.pending = r.Data
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Discard drops the unread remainder of the last input report.
func (s *Stream) Discard() {
	s.pending = nil
}

func (s *Stream) Close() error {
	return s.dev.Close()
}
