// Package main provides a notify plugin for proxiwatch. It appends fired
// trigger events to a log file or asks proxiwatch to ring the terminal bell.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// DefaultLogPath is used when the config has no path.
const DefaultLogPath = "proxiwatch-triggers.log"

// Event is the fired trigger as sent by proxiwatch.
type Event struct {
	Time        time.Time `json:"time"`
	PersonCount int       `json:"person_count"`
	CloseCount  int       `json:"close_count"`
}

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	Event  Event           `json:"event"`
	Config json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the plugin configuration from plugin.json.
type Config struct {
	Path string `json:"path"`
}

// BellData is the response data of the bell action. The plugin's own
// stderr is captured by proxiwatch, so the host rings the bell on its
// terminal when it sees this.
var BellData = json.RawMessage(`{"bell":true}`)

type actionHandler func(req Request, cfg Config) (json.RawMessage, error)

var actionHandlers = map[string]actionHandler{
	"trigger": appendLog,
	"log":     appendLog,
	"bell":    ringBell,
}

func main() {
	if err := run(os.Stdin, os.Stdout); err != nil {
		os.Exit(1)
	}
}

func run(in io.Reader, out io.Writer) error {
	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return writeResponse(out, nil, fmt.Errorf("failed to decode request: %w", err))
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		return writeResponse(out, nil, fmt.Errorf("unknown action: %s", req.Action))
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return writeResponse(out, nil, fmt.Errorf("invalid config: %w", err))
		}
	}
	if cfg.Path == "" {
		cfg.Path = DefaultLogPath
	}

	data, err := handler(req, cfg)
	if err != nil {
		return writeResponse(out, nil, fmt.Errorf("action %s failed: %w", req.Action, err))
	}
	return writeResponse(out, data, nil)
}

func writeResponse(out io.Writer, data json.RawMessage, err error) error {
	resp := Response{Success: err == nil, Data: data}
	if err != nil {
		resp.Error = err.Error()
	}
	return json.NewEncoder(out).Encode(resp)
}

// FormatEvent renders one log line for ev.
func FormatEvent(ev Event) string {
	return fmt.Sprintf("%s persons=%d close=%d\n", ev.Time.Format(time.RFC3339), ev.PersonCount, ev.CloseCount)
}

func appendLog(req Request, cfg Config) (json.RawMessage, error) {
	f, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(f, FormatEvent(req.Event)); err != nil {
		f.Close()
		return nil, err
	}
	return nil, f.Close()
}

func ringBell(Request, Config) (json.RawMessage, error) {
	return BellData, nil
}
