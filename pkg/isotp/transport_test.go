package isotp

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"
)

const testNAD = 0x0A

func testPayload(n int) []byte {
	rng := rand.New(rand.NewSource(int64(n)))
	b := make([]byte, n)
	rng.Read(b)
	return b
}

func TestRoundTrip(t *testing.T) {
	lengths := []int{0, 1, 5, 6, 7, 11, 12, 13, 95, 96, 101, 107, 255, 256, 257, 1000, 4094, 4095}
	for n := 0; n <= 120; n++ {
		lengths = append(lengths, n)
	}

	for _, n := range lengths {
		link := NewLoopback()
		tp := &Transport{Link: link, Address: testNAD}
		payload := testPayload(n)

		if err := tp.Write(context.Background(), payload); err != nil {
			t.Fatalf("len %d: write: %v", n, err)
		}
		got, err := tp.Read(context.Background())
		if err != nil {
			t.Fatalf("len %d: read: %v", n, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("len %d: payload mismatch:\ngot:  %x\nwant: %x", n, got, payload)
		}
		if link.Pending() != 0 {
			t.Fatalf("len %d: %d frames left unread", n, link.Pending())
		}
	}
}

func TestSingleFrameBoundary(t *testing.T) {
	frames, err := Encode(testNAD, []byte{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 1 {
		t.Fatalf("6 bytes: got %d frames, want 1", len(frames))
	}
	want := Frame{testNAD, 0x06, 1, 2, 3, 4, 5, 6}
	if frames[0] != want {
		t.Fatalf("6 bytes: got %s, want %s", frames[0], want)
	}

	frames, err = Encode(testNAD, []byte{1, 2, 3, 4, 5, 6, 7})
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 2 {
		t.Fatalf("7 bytes: got %d frames, want 2", len(frames))
	}
	wantFirst := Frame{testNAD, 0x10, 0x07, 1, 2, 3, 4, 5}
	wantNext := Frame{testNAD, 0x21, 6, 7, FillByte, FillByte, FillByte, FillByte}
	if frames[0] != wantFirst {
		t.Errorf("first frame: got %s, want %s", frames[0], wantFirst)
	}
	if frames[1] != wantNext {
		t.Errorf("consecutive frame: got %s, want %s", frames[1], wantNext)
	}
}

func TestEncodePadding(t *testing.T) {
	frames, err := Encode(testNAD, []byte{0x22, 0x12})
	if err != nil {
		t.Fatal(err)
	}
	want := Frame{testNAD, 0x02, 0x22, 0x12, 0xFF, 0xFF, 0xFF, 0xFF}
	if frames[0] != want {
		t.Fatalf("got %s, want %s", frames[0], want)
	}

	frames, err = Encode(testNAD, nil)
	if err != nil {
		t.Fatal(err)
	}
	if frames[0] != (Frame{testNAD, 0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}) {
		t.Fatalf("empty payload: got %s", frames[0])
	}
}

func TestEncodeLongLength(t *testing.T) {
	frames, err := Encode(testNAD, testPayload(MaxPayloadSize))
	if err != nil {
		t.Fatal(err)
	}
	if frames[0].PCI() != 0x1F || frames[0].Data()[0] != 0xFF {
		t.Fatalf("first frame length bytes: got %s", frames[0])
	}
	if want := 1 + (MaxPayloadSize-FirstFrameCapacity+5)/6; len(frames) != want {
		t.Fatalf("got %d frames, want %d", len(frames), want)
	}
}

func TestSequenceWraparound(t *testing.T) {
	// 5 bytes in the first frame plus 17 full consecutive frames.
	payload := testPayload(FirstFrameCapacity + 17*ConsecutiveFrameCapacity)
	frames, err := Encode(testNAD, payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 18 {
		t.Fatalf("got %d frames, want 18", len(frames))
	}
	for i, f := range frames[1:] {
		want := byte(0x20) | byte((i+1)%16)
		if f.PCI() != want {
			t.Fatalf("consecutive frame %d: pci 0x%02X, want 0x%02X", i+1, f.PCI(), want)
		}
	}

	link := NewLoopback()
	link.Push(frames...)
	tp := &Transport{Link: link, Address: testNAD}
	got, err := tp.Read(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("payload mismatch across wraparound")
	}
}

func TestSequenceErrors(t *testing.T) {
	frames, err := Encode(testNAD, testPayload(FirstFrameCapacity+17*ConsecutiveFrameCapacity))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		frames   []Frame
		expected byte
		got      byte
	}{
		{
			name:     "skipped frame",
			frames:   append(append([]Frame{}, frames[:3]...), frames[4:]...),
			expected: 3,
			got:      4,
		},
		{
			name:     "repeated frame",
			frames:   append(append([]Frame{}, frames[:3]...), frames[2:]...),
			expected: 3,
			got:      2,
		},
		{
			name:     "skip across wrap",
			frames:   append(append([]Frame{}, frames[:16]...), frames[17:]...),
			expected: 0,
			got:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := NewLoopback()
			link.Push(tt.frames...)
			tp := &Transport{Link: link, Address: testNAD}

			_, err := tp.Read(context.Background())
			var seqErr *SequenceError
			if !errors.As(err, &seqErr) {
				t.Fatalf("got %v, want SequenceError", err)
			}
			if seqErr.Expected != tt.expected || seqErr.Got != tt.got {
				t.Fatalf("got expected=%d got=%d, want expected=%d got=%d", seqErr.Expected, seqErr.Got, tt.expected, tt.got)
			}
			if !errors.Is(err, ErrSequence) {
				t.Fatal("errors.Is(err, ErrSequence) = false")
			}
		})
	}
}

func TestFramingErrors(t *testing.T) {
	tests := []struct {
		name   string
		frames []Frame
	}{
		{
			name:   "consecutive before first",
			frames: []Frame{{testNAD, 0x21, 1, 2, 3, 4, 5, 6}},
		},
		{
			name:   "unknown frame type",
			frames: []Frame{{testNAD, 0x30, 0, 0, 0, 0, 0, 0}},
		},
		{
			name:   "single frame too long",
			frames: []Frame{{testNAD, 0x07, 1, 2, 3, 4, 5, 6}},
		},
		{
			name:   "first frame with single frame length",
			frames: []Frame{{testNAD, 0x10, 0x05, 1, 2, 3, 4, 5}},
		},
		{
			name:   "first frame announcing six bytes",
			frames: []Frame{{testNAD, 0x10, 0x06, 1, 2, 3, 4, 5}, {testNAD, 0x21, 6, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}},
		},
		{
			name: "single frame inside multi-frame message",
			frames: []Frame{
				{testNAD, 0x10, 0x0A, 1, 2, 3, 4, 5},
				{testNAD, 0x02, 1, 2, 0xFF, 0xFF, 0xFF, 0xFF},
			},
		},
		{
			name:   "wrong node address",
			frames: []Frame{{testNAD + 1, 0x01, 0x62, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := NewLoopback()
			link.Push(tt.frames...)
			tp := &Transport{Link: link, Address: testNAD}

			_, err := tp.Read(context.Background())
			var framingErr *FramingError
			if !errors.As(err, &framingErr) {
				t.Fatalf("got %v, want FramingError", err)
			}
			if !errors.Is(err, ErrFraming) {
				t.Fatal("errors.Is(err, ErrFraming) = false")
			}
		})
	}
}

func TestWildcardAddress(t *testing.T) {
	link := NewLoopback()
	link.Push(Frame{0x13, 0x01, 0x62, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	tp := &Transport{Link: link, Address: AddressWildcard}

	got, err := tp.Read(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{0x62}) {
		t.Fatalf("got %x", got)
	}
}

func TestPaddingIgnored(t *testing.T) {
	link := NewLoopback()
	link.Push(Frame{testNAD, 0x03, 0x62, 0x12, 0x34, 0xAA, 0xBB, 0xCC})
	tp := &Transport{Link: link, Address: testNAD}

	got, err := tp.Read(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{0x62, 0x12, 0x34}) {
		t.Fatalf("got %x", got)
	}
}

func TestOversizeRejected(t *testing.T) {
	link := NewLoopback()
	tp := &Transport{Link: link, Address: testNAD}

	err := tp.Write(context.Background(), make([]byte, MaxPayloadSize+1))
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("got %v, want ErrPayloadTooLarge", err)
	}
	if link.Sent() != 0 {
		t.Fatalf("%d frames sent for an oversize payload", link.Sent())
	}
}

func TestReadWaitsForFrames(t *testing.T) {
	link := NewLoopback()
	tp := &Transport{Link: link, Address: testNAD, PollInterval: time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := tp.Read(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context.DeadlineExceeded", err)
	}
}

type failingLink struct{ err error }

func (l failingLink) Send(context.Context, Frame) error { return l.err }

func (l failingLink) Receive(context.Context) (Frame, error) { return Frame{}, l.err }

func TestLinkErrorsPropagate(t *testing.T) {
	linkErr := errors.New("bus off")
	tp := &Transport{Link: failingLink{err: linkErr}, Address: testNAD}

	if err := tp.Write(context.Background(), []byte{1}); !errors.Is(err, linkErr) {
		t.Fatalf("write: got %v", err)
	}
	if _, err := tp.Read(context.Background()); !errors.Is(err, linkErr) {
		t.Fatalf("read: got %v", err)
	}
}

func TestWriteDropsStaleFrames(t *testing.T) {
	link := NewLoopback()
	stale, err := Encode(testNAD, testPayload(20))
	if err != nil {
		t.Fatal(err)
	}
	link.Push(stale[:2]...)
	tp := &Transport{Link: link, Address: testNAD}

	want := []byte{0x22, 0xF1, 0x90}
	if err := tp.Write(context.Background(), want); err != nil {
		t.Fatal(err)
	}
	if link.Sent() != 1 || link.Pending() != 1 {
		t.Fatalf("sent=%d pending=%d, want 1 and 1", link.Sent(), link.Pending())
	}

	got, err := tp.Read(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % X, want % X", got, want)
	}
}
