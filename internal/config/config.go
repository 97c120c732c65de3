// Package config holds the process configuration for proxiwatch.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/proxiwatch/internal/distance"
	"github.com/ayusman/proxiwatch/internal/logging"
	"github.com/ayusman/proxiwatch/internal/trigger"
)

// DefaultTriggerAction is the plugin action invoked when none is configured.
const DefaultTriggerAction = "trigger"

// Config is immutable once the loop starts.
//
// FocalLength, TriggerDistance and TriggerCount are optional. Leaving
// FocalLength or TriggerDistance unset makes every person count as close;
// leaving TriggerCount unset makes every frame fire, limited by Cooldown.
type Config struct {
	CameraID int
	ModelDir string
	Headless bool

	FocalLength     *float64
	KnownWidth      float64
	TriggerDistance *float64
	TriggerCount    *int
	Cooldown        time.Duration

	PluginDir     string
	TriggerPlugin string
	TriggerAction string

	EventDB string
	// EventRetention bounds how long journaled events are kept. Zero keeps
	// them forever.
	EventRetention time.Duration

	HTTPAddr string
	LogLevel string
}

// Default returns the configuration used when no flags are given.
func Default() Config {
	return Config{
		CameraID:      0,
		ModelDir:      ".",
		KnownWidth:    distance.KnownPersonWidth,
		Cooldown:      trigger.DefaultCooldown,
		TriggerAction: DefaultTriggerAction,
		LogLevel:      "info",
	}
}

// Validate checks value ranges and flag combinations.
func (c Config) Validate() error {
	if c.CameraID < 0 {
		return fmt.Errorf("camera id must not be negative, got %d", c.CameraID)
	}
	if c.FocalLength != nil && *c.FocalLength <= 0 {
		return fmt.Errorf("focal length must be positive, got %v", *c.FocalLength)
	}
	if c.KnownWidth <= 0 {
		return fmt.Errorf("known width must be positive, got %v", c.KnownWidth)
	}
	if c.TriggerDistance != nil && *c.TriggerDistance <= 0 {
		return fmt.Errorf("trigger distance must be positive, got %v", *c.TriggerDistance)
	}
	if c.TriggerCount != nil && *c.TriggerCount < 0 {
		return fmt.Errorf("trigger count must not be negative, got %d", *c.TriggerCount)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown must not be negative, got %s", c.Cooldown)
	}
	if c.EventRetention < 0 {
		return fmt.Errorf("event retention must not be negative, got %s", c.EventRetention)
	}
	if c.EventRetention > 0 && c.EventDB == "" {
		return errors.New("--event-retention requires --event-db")
	}
	if c.TriggerPlugin != "" && c.PluginDir == "" {
		return errors.New("--trigger-plugin requires --plugin-dir")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// DistanceEnabled reports whether distance estimates will be computed.
func (c Config) DistanceEnabled() bool {
	return c.Estimator().Enabled()
}

// FailOpen reports whether every detection will be treated as close because
// calibration or a trigger distance is missing.
func (c Config) FailOpen() bool {
	return !c.DistanceEnabled() || c.TriggerDistance == nil
}

// Estimator returns the distance estimator for this configuration.
func (c Config) Estimator() distance.Estimator {
	return distance.Estimator{KnownWidth: c.KnownWidth, FocalLength: c.FocalLength}
}

// Classifier returns the close-person classifier for this configuration.
func (c Config) Classifier() trigger.Classifier {
	return trigger.Classifier{TriggerDistance: c.TriggerDistance}
}

// TriggerConfig returns the policy parameters for this configuration.
func (c Config) TriggerConfig() trigger.Config {
	return trigger.Config{TriggerCount: c.TriggerCount, Cooldown: c.Cooldown}
}
