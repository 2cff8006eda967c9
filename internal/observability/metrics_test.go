package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/seagrayinc/linuds/pkg/isotp"
	"github.com/seagrayinc/linuds/pkg/uds"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matches(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matches(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: OutcomeOK},
		{err: &uds.UnexpectedResponseError{Service: 0x22, NRC: uds.NRCRequestOutOfRange}, want: OutcomeNegative},
		{err: &uds.UnexpectedResponseError{Service: 0x22, Reason: "length"}, want: OutcomeUnexpected},
		{err: fmt.Errorf("read: %w", &isotp.SequenceError{Expected: 2, Got: 3}), want: OutcomeFraming},
		{err: fmt.Errorf("read: %w", context.DeadlineExceeded), want: OutcomeTimeout},
		{err: errors.New("usb gone"), want: OutcomeTransport},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Fatalf("Outcome(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestObserveExchange(t *testing.T) {
	m := NewMetrics()
	m.ObserveExchange(uds.ServiceReadDataByIdentifier, 10*time.Millisecond, nil)
	m.ObserveExchange(uds.ServiceReadDataByIdentifier, 10*time.Millisecond, nil)
	m.ObserveExchange(uds.ServiceRoutineControl, time.Millisecond, &uds.UnexpectedResponseError{Service: 0x31, NRC: uds.NRCRequestOutOfRange})

	ok := counterValue(t, m, "linuds_uds_exchanges_total", map[string]string{"service": "ReadDataByIdentifier", "outcome": OutcomeOK})
	if ok != 2 {
		t.Fatalf("ok exchanges = %v", ok)
	}
	neg := counterValue(t, m, "linuds_uds_negative_responses_total", map[string]string{"service": "RoutineControl", "nrc": "requestOutOfRange"})
	if neg != 1 {
		t.Fatalf("negative responses = %v", neg)
	}
}

func TestHandler(t *testing.T) {
	m := NewMetrics()
	m.ObserveExchange(uds.ServiceWriteDataByIdentifier, time.Millisecond, nil)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `linuds_uds_exchanges_total{outcome="ok",service="WriteDataByIdentifier"} 1`) {
		t.Fatalf("metrics body:\n%s", body)
	}
}
