package config

import (
	"time"

	"github.com/urfave/cli/v2"
)

// Flag names.
const (
	FlagCamera          = "camera"
	FlagModelDir        = "model-dir"
	FlagHeadless        = "headless"
	FlagFocalLength     = "focal-length"
	FlagTriggerDistance = "trigger-distance"
	FlagTriggerCount    = "trigger-count"
	FlagCooldown        = "cooldown"
	FlagPluginDir       = "plugin-dir"
	FlagTriggerPlugin   = "trigger-plugin"
	FlagTriggerAction   = "trigger-action"
	FlagEventDB         = "event-db"
	FlagEventRetention  = "event-retention"
	FlagHTTPAddr        = "http-addr"
	FlagLogLevel        = "log-level"
)

func env(name string) []string {
	return []string{"PROXIWATCH_" + name}
}

// Flags returns the command line flags. Every flag can also be set through a
// PROXIWATCH_* environment variable.
func Flags() []cli.Flag {
	def := Default()
	return []cli.Flag{
		&cli.IntFlag{
			Name:    FlagCamera,
			Usage:   "video capture device id",
			Value:   def.CameraID,
			EnvVars: env("CAMERA"),
		},
		&cli.StringFlag{
			Name:    FlagModelDir,
			Usage:   "directory holding yolov3.weights, yolov3.cfg and coco.names",
			Value:   def.ModelDir,
			EnvVars: env("MODEL_DIR"),
		},
		&cli.BoolFlag{
			Name:    FlagHeadless,
			Usage:   "run without a display window",
			EnvVars: env("HEADLESS"),
		},
		&cli.Float64Flag{
			Name:    FlagFocalLength,
			Usage:   "camera focal length in pixels; enables distance estimation",
			EnvVars: env("FOCAL_LENGTH"),
		},
		&cli.Float64Flag{
			Name:    FlagTriggerDistance,
			Usage:   "distance in centimeters under which a person counts as close (unset: everyone is close)",
			EnvVars: env("TRIGGER_DISTANCE"),
		},
		&cli.IntFlag{
			Name:    FlagTriggerCount,
			Usage:   "minimum number of close people to fire the trigger (unset: every frame qualifies, limited by the cooldown)",
			EnvVars: env("TRIGGER_COUNT"),
		},
		&cli.Float64Flag{
			Name:    FlagCooldown,
			Usage:   "minimum seconds between trigger fires",
			Value:   def.Cooldown.Seconds(),
			EnvVars: env("COOLDOWN"),
		},
		&cli.StringFlag{
			Name:    FlagPluginDir,
			Usage:   "directory scanned for trigger plugins",
			EnvVars: env("PLUGIN_DIR"),
		},
		&cli.StringFlag{
			Name:    FlagTriggerPlugin,
			Usage:   "plugin executed when the trigger fires",
			EnvVars: env("TRIGGER_PLUGIN"),
		},
		&cli.StringFlag{
			Name:    FlagTriggerAction,
			Usage:   "plugin action name sent on fire",
			Value:   def.TriggerAction,
			EnvVars: env("TRIGGER_ACTION"),
		},
		&cli.StringFlag{
			Name:    FlagEventDB,
			Usage:   "SQLite file journaling fired trigger events (unset: disabled)",
			EnvVars: env("EVENT_DB"),
		},
		&cli.DurationFlag{
			Name:    FlagEventRetention,
			Usage:   "drop journaled events older than this, e.g. 168h (unset: keep all)",
			EnvVars: env("EVENT_RETENTION"),
		},
		&cli.StringFlag{
			Name:    FlagHTTPAddr,
			Usage:   "address for the live view server, e.g. :8080 (unset: disabled)",
			EnvVars: env("HTTP_ADDR"),
		},
		&cli.StringFlag{
			Name:    FlagLogLevel,
			Usage:   "debug, info, warn or error",
			Value:   def.LogLevel,
			EnvVars: env("LOG_LEVEL"),
		},
	}
}

// FromContext builds a validated Config from parsed flags. Optional values
// stay nil unless their flag was given.
func FromContext(c *cli.Context) (Config, error) {
	cfg := Default()

	cfg.CameraID = c.Int(FlagCamera)
	cfg.ModelDir = c.String(FlagModelDir)
	cfg.Headless = c.Bool(FlagHeadless)

	if c.IsSet(FlagFocalLength) {
		v := c.Float64(FlagFocalLength)
		cfg.FocalLength = &v
	}
	if c.IsSet(FlagTriggerDistance) {
		v := c.Float64(FlagTriggerDistance)
		cfg.TriggerDistance = &v
	}
	if c.IsSet(FlagTriggerCount) {
		v := c.Int(FlagTriggerCount)
		cfg.TriggerCount = &v
	}
	cfg.Cooldown = time.Duration(c.Float64(FlagCooldown) * float64(time.Second))

	cfg.PluginDir = c.String(FlagPluginDir)
	cfg.TriggerPlugin = c.String(FlagTriggerPlugin)
	cfg.TriggerAction = c.String(FlagTriggerAction)
	cfg.EventDB = c.String(FlagEventDB)
	cfg.EventRetention = c.Duration(FlagEventRetention)
	cfg.HTTPAddr = c.String(FlagHTTPAddr)
	cfg.LogLevel = c.String(FlagLogLevel)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
