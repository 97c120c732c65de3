package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ayusman/proxiwatch/internal/logging"
	"github.com/ayusman/proxiwatch/internal/trigger"
)

// ErrActionFailed is returned when a plugin reports success=false.
var ErrActionFailed = errors.New("plugin action failed")

// ErrUnsupportedAction is returned when a plugin does not list the action.
var ErrUnsupportedAction = errors.New("action not supported by plugin")

// ActionOption customizes NewTriggerAction.
type ActionOption func(*actionOptions)

type actionOptions struct {
	bell io.Writer
}

// WithBell sets where a requested terminal bell is written. Defaults to
// os.Stderr.
func WithBell(w io.Writer) ActionOption {
	return func(o *actionOptions) {
		o.bell = w
	}
}

// NewTriggerAction returns a trigger.Action that runs the named plugin action
// each time the trigger fires. The plugin is resolved once, here.
func NewTriggerAction(mgr *Manager, exec *Executor, pluginName, action string, logger logging.Logger, opts ...ActionOption) (trigger.Action, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := actionOptions{bell: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	p, err := mgr.Get(pluginName)
	if err != nil {
		return nil, fmt.Errorf("trigger plugin %q (discovered: %s): %w", pluginName, discovered(mgr), err)
	}
	if !p.Manifest.Supports(action) {
		return nil, fmt.Errorf("trigger plugin %q action %q: %w", pluginName, action, ErrUnsupportedAction)
	}
	logger.Infow("trigger plugin ready",
		"plugin", pluginName,
		"version", p.Manifest.Version,
		"action", action,
		"timeout", exec.Timeout(),
	)

	return func(ctx context.Context, ev trigger.Event) error {
		resp, err := exec.Execute(ctx, p, &Request{
			Action: action,
			Event:  ev,
			Config: p.Manifest.Config,
		})
		if err != nil {
			return fmt.Errorf("trigger plugin %q: %w", pluginName, err)
		}
		if !resp.Success {
			return fmt.Errorf("trigger plugin %q: %w: %s", pluginName, ErrActionFailed, resp.Error)
		}
		bell := resp.Bell()
		if bell {
			if _, err := io.WriteString(o.bell, "\a"); err != nil {
				logger.Warnw("ring bell", "plugin", pluginName, "error", err)
			}
		}
		logger.Infow("trigger action done", "plugin", pluginName, "action", action, "bell", bell)
		return nil
	}, nil
}

// discovered lists the names of mgr's plugins for error messages.
func discovered(mgr *Manager) string {
	plugins := mgr.List()
	if len(plugins) == 0 {
		return "none in " + mgr.PluginDir()
	}
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Manifest.Name
	}
	return strings.Join(names, ", ")
}

// LogAction is the action used when no plugin is configured.
func LogAction(logger logging.Logger) trigger.Action {
	if logger == nil {
		logger = logging.NewNop()
	}
	return func(_ context.Context, ev trigger.Event) error {
		logger.Infow("trigger fired",
			"persons", ev.PersonCount,
			"close", ev.CloseCount,
			"time", ev.Time,
		)
		return nil
	}
}
