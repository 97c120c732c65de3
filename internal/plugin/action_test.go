package plugin

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/proxiwatch/internal/trigger"
)

// setupScriptManager writes a plugin whose executable is script and
// returns a manager that has discovered it.
func setupScriptManager(t *testing.T, name string, actions []string, script string) *Manager {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	root := t.TempDir()
	dir := writeManifest(t, root, name, Manifest{
		Name:       name,
		Executable: "run.sh",
		Actions:    actions,
	})
	if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	mgr := NewManager(root, nil)
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	return mgr
}

func TestNewTriggerAction_NotFound(t *testing.T) {
	mgr := NewManager(t.TempDir(), nil)

	_, err := NewTriggerAction(mgr, NewExecutor(time.Second), "missing", "trigger", nil)
	if !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "discovered: none") {
		t.Errorf("error %q should say nothing was discovered", err)
	}
}

func TestNewTriggerAction_NotFoundListsDiscovered(t *testing.T) {
	mgr := setupScriptManager(t, "notify", nil, "cat >/dev/null\n")

	_, err := NewTriggerAction(mgr, NewExecutor(time.Second), "relay", "trigger", nil)
	if !errors.Is(err, ErrPluginNotFound) {
		t.Fatalf("expected ErrPluginNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "discovered: notify") {
		t.Errorf("error %q should list the discovered plugins", err)
	}
}

func TestNewTriggerAction_Unsupported(t *testing.T) {
	mgr := setupScriptManager(t, "notify", []string{"log"}, "cat >/dev/null\n")

	_, err := NewTriggerAction(mgr, NewExecutor(time.Second), "notify", "bell", nil)
	if !errors.Is(err, ErrUnsupportedAction) {
		t.Errorf("expected ErrUnsupportedAction, got %v", err)
	}
}

func TestNewTriggerAction_Success(t *testing.T) {
	out := filepath.Join(t.TempDir(), "stdin.json")
	mgr := setupScriptManager(t, "notify", []string{"trigger"},
		"cat > "+out+"\necho '{\"success\":true}'\n")

	action, err := NewTriggerAction(mgr, NewExecutor(5*time.Second), "notify", "trigger", nil)
	if err != nil {
		t.Fatalf("NewTriggerAction() error = %v", err)
	}

	ev := trigger.Event{Time: time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC), PersonCount: 2, CloseCount: 1}
	if err := action(context.Background(), ev); err != nil {
		t.Fatalf("action() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("plugin did not receive request: %v", err)
	}
	for _, want := range []string{`"action":"trigger"`, `"person_count":2`, `"close_count":1`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("request %s missing %s", data, want)
		}
	}
}

func TestNewTriggerAction_RingsBell(t *testing.T) {
	mgr := setupScriptManager(t, "notify", []string{"bell"},
		"cat >/dev/null\necho '{\"success\":true,\"data\":{\"bell\":true}}'\n")

	var bell bytes.Buffer
	action, err := NewTriggerAction(mgr, NewExecutor(5*time.Second), "notify", "bell", nil, WithBell(&bell))
	if err != nil {
		t.Fatalf("NewTriggerAction() error = %v", err)
	}
	if err := action(context.Background(), trigger.Event{CloseCount: 1}); err != nil {
		t.Fatalf("action() error = %v", err)
	}
	if bell.String() != "\a" {
		t.Errorf("bell writer got %q, want %q", bell.String(), "\a")
	}
}

func TestNewTriggerAction_NoBellWithoutData(t *testing.T) {
	mgr := setupScriptManager(t, "notify", nil,
		"cat >/dev/null\necho '{\"success\":true,\"data\":{\"bell\":false}}'\n")

	var bell bytes.Buffer
	action, err := NewTriggerAction(mgr, NewExecutor(5*time.Second), "notify", "trigger", nil, WithBell(&bell))
	if err != nil {
		t.Fatalf("NewTriggerAction() error = %v", err)
	}
	if err := action(context.Background(), trigger.Event{}); err != nil {
		t.Fatalf("action() error = %v", err)
	}
	if bell.Len() != 0 {
		t.Errorf("unexpected bell output %q", bell.String())
	}
}

func TestNewTriggerAction_FailureResponse(t *testing.T) {
	mgr := setupScriptManager(t, "notify", nil,
		"cat >/dev/null\necho '{\"success\":false,\"error\":\"relay offline\"}'\n")

	action, err := NewTriggerAction(mgr, NewExecutor(5*time.Second), "notify", "trigger", nil)
	if err != nil {
		t.Fatalf("NewTriggerAction() error = %v", err)
	}

	err = action(context.Background(), trigger.Event{})
	if !errors.Is(err, ErrActionFailed) {
		t.Fatalf("expected ErrActionFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "relay offline") {
		t.Errorf("error %q should carry the plugin message", err)
	}
}

func TestLogAction(t *testing.T) {
	if err := LogAction(nil)(context.Background(), trigger.Event{PersonCount: 1, CloseCount: 1}); err != nil {
		t.Errorf("LogAction() error = %v", err)
	}
}
