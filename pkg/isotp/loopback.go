package isotp

import (
	"context"
	"sync"
)

// Loopback is a Link whose Receive returns the frames given to Send, in order.
type Loopback struct {
	mu     sync.Mutex
	frames []Frame
	sent   int
}

func NewLoopback() *Loopback {
	return &Loopback{}
}

func (l *Loopback) Send(_ context.Context, f Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames = append(l.frames, f)
	l.sent++
	return nil
}

func (l *Loopback) Receive(_ context.Context) (Frame, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.frames) == 0 {
		return Frame{}, ErrNoFrame
	}
	f := l.frames[0]
	l.frames = l.frames[1:]
	return f, nil
}

// Push queues a frame for Receive without counting it as sent.
func (l *Loopback) Push(frames ...Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames = append(l.frames, frames...)
}

// Sent is the number of frames passed to Send so far.
func (l *Loopback) Sent() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sent
}

// Pending is the number of frames waiting to be received.
func (l *Loopback) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.frames)
}
