package uds

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

// scriptedTransport records every written request and answers reads from a queue.
type scriptedTransport struct {
	written   [][]byte
	responses [][]byte
	writeErr  error
	readErr   error
	reads     int
}

func (s *scriptedTransport) Write(_ context.Context, payload []byte) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.written = append(s.written, append([]byte{}, payload...))
	return nil
}

func (s *scriptedTransport) Read(_ context.Context) ([]byte, error) {
	s.reads++
	if s.readErr != nil {
		return nil, s.readErr
	}
	if len(s.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r, nil
}

type recordingObserver struct {
	services []byte
	errs     []error
}

func (r *recordingObserver) ObserveExchange(service byte, _ time.Duration, err error) {
	r.services = append(r.services, service)
	r.errs = append(r.errs, err)
}

func TestReadDataByIdentifier(t *testing.T) {
	tp := &scriptedTransport{responses: [][]byte{{0x62, 0x12, 0x34, 0xAA, 0xBB}}}
	s := New(tp)

	got, err := s.ReadDataByIdentifier(context.Background(), 0x1234, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, []byte{0xAA, 0xBB}) {
		t.Fatalf("data = % X, want AA BB", got)
	}
	if len(tp.written) != 1 || !bytes.Equal(tp.written[0], []byte{0x22, 0x12, 0x34}) {
		t.Fatalf("request = % X, want 22 12 34", tp.written)
	}
}

func TestReadDataByIdentifierEmptyValue(t *testing.T) {
	tp := &scriptedTransport{responses: [][]byte{{0x62, 0xF1, 0x90}}}

	got, err := New(tp).ReadDataByIdentifier(context.Background(), 0xF190, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("data = % X, want empty", got)
	}
}

func TestReadDataByIdentifierRejected(t *testing.T) {
	tests := []struct {
		name    string
		resp    []byte
		wantNRC byte
	}{
		{name: "negative response", resp: []byte{0x7F, 0x22, 0x31}, wantNRC: NRCRequestOutOfRange},
		{name: "mismatched identifier", resp: []byte{0x62, 0x12, 0x35, 0xAA}},
		{name: "wrong sid", resp: []byte{0x6E, 0x12, 0x34}},
		{name: "too short", resp: []byte{0x62, 0x12}},
		{name: "empty", resp: []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := &scriptedTransport{responses: [][]byte{tt.resp}}

			_, err := New(tp).ReadDataByIdentifier(context.Background(), 0x1234, 0)
			if !errors.Is(err, ErrUnexpectedResponse) {
				t.Fatalf("err = %v, want ErrUnexpectedResponse", err)
			}

			var ure *UnexpectedResponseError
			if !errors.As(err, &ure) {
				t.Fatalf("err = %T, want *UnexpectedResponseError", err)
			}
			if ure.NRC != tt.wantNRC {
				t.Fatalf("NRC = 0x%02X, want 0x%02X", ure.NRC, tt.wantNRC)
			}
			if ure.Negative() != (tt.wantNRC != 0) {
				t.Fatalf("Negative() = %v", ure.Negative())
			}
		})
	}
}

func TestWriteDataByIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		resp    []byte
		wantErr bool
	}{
		{name: "accepted", resp: []byte{0x6E, 0x12, 0x34}},
		{name: "trailing byte", resp: []byte{0x6E, 0x12, 0x34, 0x00}, wantErr: true},
		{name: "too short", resp: []byte{0x6E, 0x12}, wantErr: true},
		{name: "mismatched identifier", resp: []byte{0x6E, 0x43, 0x21}, wantErr: true},
		{name: "negative response", resp: []byte{0x7F, 0x2E, 0x22}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := &scriptedTransport{responses: [][]byte{tt.resp}}

			err := New(tp).WriteDataByIdentifier(context.Background(), 0x1234, []byte{0x01, 0x02}, 0)
			if tt.wantErr {
				if !errors.Is(err, ErrUnexpectedResponse) {
					t.Fatalf("err = %v, want ErrUnexpectedResponse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(tp.written[0], []byte{0x2E, 0x12, 0x34, 0x01, 0x02}) {
				t.Fatalf("request = % X", tp.written[0])
			}
		})
	}
}

func TestRoutineControl(t *testing.T) {
	tp := &scriptedTransport{responses: [][]byte{{0x71, 0x01, 0x56, 0x78, 0x01}}}

	got, err := New(tp).RoutineStart(context.Background(), 0x5678, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, []byte{0x01}) {
		t.Fatalf("status = % X, want 01", got)
	}
	if !bytes.Equal(tp.written[0], []byte{0x31, 0x01, 0x56, 0x78}) {
		t.Fatalf("request = % X, want 31 01 56 78", tp.written[0])
	}
}

func TestRoutineControlKinds(t *testing.T) {
	s := func(resp []byte) (*Session, *scriptedTransport) {
		tp := &scriptedTransport{responses: [][]byte{resp}}
		return New(tp), tp
	}
	ctx := context.Background()

	stop, tp := s([]byte{0x71, 0x02, 0x00, 0x10})
	if _, err := stop.RoutineStop(ctx, 0x0010, []byte{0xEE}, 0); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !bytes.Equal(tp.written[0], []byte{0x31, 0x02, 0x00, 0x10, 0xEE}) {
		t.Fatalf("stop request = % X", tp.written[0])
	}

	results, _ := s([]byte{0x71, 0x03, 0x00, 0x10, 0x00, 0x2A})
	got, err := results.RoutineRequestResults(ctx, 0x0010, nil, 0)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if !bytes.Equal(got, []byte{0x00, 0x2A}) {
		t.Fatalf("results = % X", got)
	}
}

func TestRoutineControlRejected(t *testing.T) {
	tests := []struct {
		name string
		resp []byte
	}{
		{name: "mismatched sub-function", resp: []byte{0x71, 0x02, 0x56, 0x78}},
		{name: "mismatched routine", resp: []byte{0x71, 0x01, 0x56, 0x79}},
		{name: "too short", resp: []byte{0x71, 0x01, 0x56}},
		{name: "negative response", resp: []byte{0x7F, 0x31, 0x12}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := &scriptedTransport{responses: [][]byte{tt.resp}}
			_, err := New(tp).RoutineStart(context.Background(), 0x5678, nil, 0)
			if !errors.Is(err, ErrUnexpectedResponse) {
				t.Fatalf("err = %v, want ErrUnexpectedResponse", err)
			}
		})
	}
}

func TestTransportErrorsPropagate(t *testing.T) {
	writeErr := errors.New("bus off")
	tp := &scriptedTransport{writeErr: writeErr}

	_, err := New(tp).ReadDataByIdentifier(context.Background(), 0x1234, 0)
	if !errors.Is(err, writeErr) {
		t.Fatalf("err = %v, want %v", err, writeErr)
	}
	if tp.reads != 0 {
		t.Fatalf("read attempted after failed write")
	}

	readErr := errors.New("adapter gone")
	tp = &scriptedTransport{readErr: readErr}
	_, err = New(tp).ReadDataByIdentifier(context.Background(), 0x1234, 0)
	if !errors.Is(err, readErr) {
		t.Fatalf("err = %v, want %v", err, readErr)
	}
	if errors.Is(err, ErrUnexpectedResponse) {
		t.Fatalf("transport error reported as unexpected response")
	}
}

func TestDelayHonoursContext(t *testing.T) {
	tp := &scriptedTransport{responses: [][]byte{{0x62, 0x12, 0x34}}}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := New(tp).ReadDataByIdentifier(ctx, 0x1234, time.Hour)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("delay ignored the context")
	}
	if len(tp.written) != 1 {
		t.Fatalf("request not written before waiting")
	}
	if tp.reads != 0 {
		t.Fatalf("read attempted after cancellation")
	}
}

func TestDelayBeforeRead(t *testing.T) {
	tp := &scriptedTransport{responses: [][]byte{{0x62, 0x12, 0x34}}}

	start := time.Now()
	if _, err := New(tp).ReadDataByIdentifier(context.Background(), 0x1234, 20*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("returned after %v, want at least 20ms", elapsed)
	}
}

func TestObserver(t *testing.T) {
	tp := &scriptedTransport{responses: [][]byte{
		{0x62, 0x12, 0x34, 0x01},
		{0x7F, 0x2E, 0x31},
	}}
	obs := &recordingObserver{}
	s := New(tp, WithObserver(obs), WithLogger(nil))

	if _, err := s.ReadDataByIdentifier(context.Background(), 0x1234, 0); err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := s.WriteDataByIdentifier(context.Background(), 0x1234, []byte{0x01}, 0); err == nil {
		t.Fatalf("write: expected negative response")
	}

	if !bytes.Equal(obs.services, []byte{ServiceReadDataByIdentifier, ServiceWriteDataByIdentifier}) {
		t.Fatalf("observed services = % X", obs.services)
	}
	if obs.errs[0] != nil || !errors.Is(obs.errs[1], ErrUnexpectedResponse) {
		t.Fatalf("observed errors = %v", obs.errs)
	}
}

func TestParseRoutineKind(t *testing.T) {
	for _, k := range []RoutineKind{RoutineStart, RoutineStop, RoutineRequestResults} {
		got, err := ParseRoutineKind(k.String())
		if err != nil || got != k {
			t.Fatalf("ParseRoutineKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseRoutineKind("pause"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
