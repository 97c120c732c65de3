// Package plugin runs external executables as trigger actions. A plugin is a
// directory holding a plugin.json manifest and an executable that reads one
// JSON Request on stdin and writes one JSON Response on stdout.
package plugin

import (
	"encoding/json"

	"github.com/samber/lo"

	"github.com/ayusman/proxiwatch/internal/trigger"
)

// ManifestFile is the manifest name looked up in each plugin directory.
const ManifestFile = "plugin.json"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Actions     []string        `json:"actions"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Supports reports whether the manifest lists action. A manifest with no
// actions accepts any action.
func (m Manifest) Supports(action string) bool {
	return len(m.Actions) == 0 || lo.Contains(m.Actions, action)
}

// Request is sent to a plugin when the trigger fires.
type Request struct {
	Action string          `json:"action"`
	Event  trigger.Event   `json:"event"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Response is the plugin's reply.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Bell reports whether the plugin asked the host to ring the terminal bell.
// A plugin's stderr is captured, so it cannot reach the terminal itself.
func (r *Response) Bell() bool {
	var data struct {
		Bell bool `json:"bell"`
	}
	if len(r.Data) == 0 || json.Unmarshal(r.Data, &data) != nil {
		return false
	}
	return data.Bell
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
