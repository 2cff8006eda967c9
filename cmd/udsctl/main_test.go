package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/seagrayinc/linuds/internal/logging"
	"github.com/seagrayinc/linuds/pkg/uds"
)

func TestMain(m *testing.M) {
	logging.ConfigureTests()
	os.Exit(m.Run())
}

// run executes udsctl against the simulator with an isolated config path.
func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()

	if a == nil {
		a = newApp()
	}
	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})

	base := []string{"--config", writeConfig(t, "interface = \"sim\"\n[lin]\nnad = 0x0A\n"), "--timeout", "1s"}
	cmd.SetArgs(append(base, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "udsctl.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestReadCommand(t *testing.T) {
	out, err := run(t, nil, "-o", "json", "read", "F190", "0xF195")
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var rows []didValue
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].DID != "F190" || rows[0].Text != "WLN0UDS0000000042" {
		t.Fatalf("row 0 = %+v", rows[0])
	}
	if rows[1].DID != "F195" || rows[1].Value != "01-04" || rows[1].Text != "" {
		t.Fatalf("row 1 = %+v", rows[1])
	}
}

func TestReadUnknownDID(t *testing.T) {
	_, err := run(t, nil, "read", "1234")

	var ure *uds.UnexpectedResponseError
	if !errors.As(err, &ure) || ure.NRC != uds.NRCRequestOutOfRange {
		t.Fatalf("err = %v, want requestOutOfRange", err)
	}
}

func TestWriteThenReadShareSimulator(t *testing.T) {
	a := newApp()

	out, err := run(t, a, "-o", "yaml", "write", "0100", "00-2a")
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(out, "status: ok") {
		t.Fatalf("write output = %q", out)
	}

	out, err = run(t, a, "read", "0100")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(out, "00-2a") {
		t.Fatalf("read output = %q", out)
	}
}

func TestWriteRejectsBadValue(t *testing.T) {
	if _, err := run(t, nil, "write", "0100", "xyz"); err == nil {
		t.Fatalf("expected error for non-hex value")
	}
	if _, err := run(t, nil, "write", "F190", "--text", "VIN"); err == nil {
		t.Fatalf("expected negative response for read-only identifier")
	}
}

func TestRoutineCommands(t *testing.T) {
	a := newApp()

	out, err := run(t, a, "-o", "json", "routine", "start", "FF00")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	var res routineResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Routine != "FF00" || res.Kind != "start" || res.Result != "01" {
		t.Fatalf("start = %+v", res)
	}

	out, err = run(t, a, "-o", "json", "routine", "results", "FF00")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if !strings.Contains(out, `"result": "01-00-01"`) {
		t.Fatalf("results output = %q", out)
	}

	if _, err := run(t, a, "routine", "stop", "FF00"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := run(t, a, "routine", "stop", "FF00"); err == nil {
		t.Fatalf("expected requestSequenceError on second stop")
	}
}

func TestInfoCommand(t *testing.T) {
	out, err := run(t, nil, "info")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(out, "SIM-0001") || !strings.Contains(out, "lin: 1") || strings.Contains(out, "can:") {
		t.Fatalf("info output = %q", out)
	}
}

func TestWatchCommand(t *testing.T) {
	out, err := run(t, nil, "-o", "json", "watch", "F18C", "--count", "3", "--interval", "5ms", "--metrics", "")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	// the value never changes, so it is printed once
	if n := strings.Count(out, `"did": "F18C"`); n != 1 {
		t.Fatalf("printed %d events:\n%s", n, out)
	}
}

func TestFlagOverrides(t *testing.T) {
	if _, err := run(t, nil, "--interface", "can", "read", "F190"); err == nil {
		t.Fatalf("expected error for unknown interface")
	}
	if _, err := run(t, nil, "-o", "xml", "read", "F190"); err == nil {
		t.Fatalf("expected error for unknown output format")
	}
	if _, err := run(t, nil, "--nad", "0x80", "read", "F190"); err == nil {
		t.Fatalf("expected error for out of range node address")
	}

	// a different node address gets no answer before the timeout
	_, err := run(t, nil, "--nad", "0x0B", "--timeout", "20ms", "read", "F190")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestMissingConfigFile(t *testing.T) {
	cmd := newRootCmd(newApp())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "nope.toml"), "read", "F190"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
