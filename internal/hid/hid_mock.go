package hid

import (
	"errors"
	"sync"
)

var errNoReport = errors.New("hid: no input report queued")

// MockHID is an in-memory Device. Output reports are recorded and input reports are
// served in the order they were emitted.
type MockHID struct {
	mu      sync.Mutex
	in      []Report
	out     []Report
	inLen   int
	outLen  int
	OnWrite func(Report)
}

func NewMockHID(inLen, outLen int) *MockHID {
	return &MockHID{inLen: inLen, outLen: outLen}
}

func (m *MockHID) Close() error {
	return nil
}

func (m *MockHID) WriteReport(r Report) error {
	m.mu.Lock()
	m.out = append(m.out, Report{ID: r.ID, Data: append([]byte{}, r.Data...)})
	onWrite := m.OnWrite
	m.mu.Unlock()

	if onWrite != nil {
		onWrite(r)
	}
	return nil
}

func (m *MockHID) ReadReport() (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.in) == 0 {
		return Report{}, errNoReport
	}
	r := m.in[0]
	m.in = m.in[1:]
	return r, nil
}

func (m *MockHID) ReportLens() (int, int) {
	return m.inLen, m.outLen
}

// Emit queues an input report.
func (m *MockHID) Emit(r Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.in = append(m.in, Report{ID: r.ID, Data: r.Data})
}

// Written returns the output reports seen so far.
func (m *MockHID) Written() []Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Report{}, m.out...)
}
