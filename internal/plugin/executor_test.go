package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/proxiwatch/internal/trigger"
)

// writeScriptPlugin creates an executable shell plugin in a temp dir.
func writeScriptPlugin(t *testing.T, name, script string) *Plugin {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	scriptPath := filepath.Join(dir, name+".sh")
	if err := os.WriteFile(scriptPath, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	return &Plugin{
		Manifest: Manifest{
			Name:       name,
			Version:    "1.0.0",
			Executable: name + ".sh",
			Actions:    []string{"trigger"},
		},
		Path:       dir,
		Executable: scriptPath,
	}
}

func testRequest() *Request {
	return &Request{
		Action: "trigger",
		Event: trigger.Event{
			Time:        time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC),
			PersonCount: 3,
			CloseCount:  2,
		},
		Config: json.RawMessage(`{"path":"fires.log"}`),
	}
}

func TestExecutor_Execute(t *testing.T) {
	plugin := writeScriptPlugin(t, "ok", `echo '{"success":true,"data":{"message":"hello world"}}'
`)

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, testRequest())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if !response.Success {
		t.Errorf("expected success=true, got false")
	}
	if response.Error != "" {
		t.Errorf("expected empty error, got %q", response.Error)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data["message"] != "hello world" {
		t.Errorf("expected message 'hello world', got %v", data["message"])
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	plugin := writeScriptPlugin(t, "echo", `INPUT=$(cat)
echo "{\"success\":true,\"data\":{\"received\":$INPUT}}"
`)

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, testRequest())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var data struct {
		Received Request `json:"received"`
	}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}

	got := data.Received
	if got.Action != "trigger" {
		t.Errorf("action = %q, want trigger", got.Action)
	}
	if got.Event.PersonCount != 3 || got.Event.CloseCount != 2 {
		t.Errorf("event counts = %d/%d, want 3/2", got.Event.PersonCount, got.Event.CloseCount)
	}
	if !got.Event.Time.Equal(testRequest().Event.Time) {
		t.Errorf("event time = %v", got.Event.Time)
	}
	if string(got.Config) != `{"path":"fires.log"}` {
		t.Errorf("config = %s", got.Config)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	plugin := writeScriptPlugin(t, "slow", "exec sleep 5\n")

	start := time.Now()
	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), plugin, testRequest())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Execute() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestExecutor_Execute_ErrorResponse(t *testing.T) {
	plugin := writeScriptPlugin(t, "fail", `echo '{"success":false,"error":"relay offline"}'
`)

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, testRequest())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if response.Success {
		t.Error("expected success=false")
	}
	if response.Error != "relay offline" {
		t.Errorf("error = %q, want %q", response.Error, "relay offline")
	}
}

func TestExecutor_Execute_InvalidJSON(t *testing.T) {
	plugin := writeScriptPlugin(t, "garbage", "echo not json\n")

	_, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, testRequest())
	if err == nil || !strings.Contains(err.Error(), "failed to parse plugin response") {
		t.Errorf("Execute() error = %v, want parse error", err)
	}
}

func TestExecutor_Execute_NonZeroExit(t *testing.T) {
	plugin := writeScriptPlugin(t, "exit", "echo boom >&2\nexit 3\n")

	_, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, testRequest())
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error %q should include stderr", err)
	}
}

func TestNewExecutor(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{in: time.Second, want: time.Second},
		{in: 0, want: DefaultTimeout},
		{in: -time.Second, want: DefaultTimeout},
	}

	for _, tt := range tests {
		if got := NewExecutor(tt.in).Timeout(); got != tt.want {
			t.Errorf("NewExecutor(%v).Timeout() = %v, want %v", tt.in, got, tt.want)
		}
	}
}
