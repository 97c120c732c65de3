package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/ayusman/proxiwatch/internal/app"
	"github.com/ayusman/proxiwatch/internal/capture"
	"github.com/ayusman/proxiwatch/internal/config"
	"github.com/ayusman/proxiwatch/internal/detector"
	"github.com/ayusman/proxiwatch/internal/logging"
	"github.com/ayusman/proxiwatch/internal/overlay"
	"github.com/ayusman/proxiwatch/internal/plugin"
	"github.com/ayusman/proxiwatch/internal/server"
	"github.com/ayusman/proxiwatch/internal/store"
	"github.com/ayusman/proxiwatch/internal/trigger"
)

func main() {
	if err := config.LoadEnvFile(config.DefaultEnvFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cliApp := &cli.App{
		Name:  "proxiwatch",
		Usage: "detect people on a webcam and fire an action when they come close",
		Flags: config.Flags(),
		Action: func(c *cli.Context) error {
			cfg, err := config.FromContext(c)
			if err != nil {
				return err
			}
			return run(c.Context, cfg)
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) (err error) {
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if err := detector.CheckArtifacts(cfg.ModelDir, logger); err != nil {
		for _, m := range detector.MissingArtifacts(err) {
			fmt.Fprintf(os.Stderr, "Missing %s\n  download with: %s\n", m.Path, m.Hint)
		}
		return fmt.Errorf("model directory %s is incomplete", cfg.ModelDir)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Everything opened before app.New succeeds is released here on failure.
	var cleanup []func() error
	defer func() {
		if err == nil {
			return
		}
		for i := len(cleanup) - 1; i >= 0; i-- {
			err = multierr.Append(err, cleanup[i]())
		}
	}()

	det, err := detector.NewYOLO(detector.DefaultConfig(cfg.ModelDir))
	if err != nil {
		return fmt.Errorf("load detector: %w", err)
	}
	cleanup = append(cleanup, det.Close)
	logger.Infow("detector loaded", "model_dir", cfg.ModelDir, "classes", len(det.Labels()))

	var st *store.Store
	if cfg.EventDB != "" {
		st, err = store.New(cfg.EventDB, logger)
		if err != nil {
			return fmt.Errorf("open event journal: %w", err)
		}
		cleanup = append(cleanup, st.Close)
	}

	action, err := triggerAction(cfg, logger)
	if err != nil {
		return err
	}

	var display overlay.Display
	if cfg.Headless {
		display = overlay.NewHeadless()
	} else {
		display = overlay.NewWindow()
	}

	var hub *server.Hub
	if cfg.HTTPAddr != "" {
		hub = server.NewHub()
	}

	a, err := app.New(app.Options{
		Config:   cfg,
		Camera:   capture.NewCamera(cfg.CameraID),
		Detector: det,
		Display:  display,
		Action:   action,
		Store:    st,
		Hub:      hub,
		Logger:   logger,
	})
	if err != nil {
		return multierr.Append(err, display.Close())
	}
	cleanup = nil

	srvErr := make(chan error, 1)
	srvCtx, stopServer := context.WithCancel(ctx)
	if hub != nil {
		srv := server.New(server.Config{Hub: hub, Store: st, Logger: logger})
		go func() {
			srvErr <- srv.Run(srvCtx, cfg.HTTPAddr)
		}()
	} else {
		srvErr <- nil
	}

	runErr := a.Run(ctx)
	stopServer()

	return multierr.Combine(runErr, <-srvErr, a.Close())
}

// triggerAction resolves the configured plugin action, or logs fires when no
// plugin is configured.
func triggerAction(cfg config.Config, logger logging.Logger) (trigger.Action, error) {
	if cfg.TriggerPlugin == "" {
		return plugin.LogAction(logger), nil
	}

	mgr := plugin.NewManager(cfg.PluginDir, logger)
	if err := mgr.Discover(); err != nil {
		return nil, fmt.Errorf("discover plugins: %w", err)
	}

	return plugin.NewTriggerAction(mgr, plugin.NewExecutor(plugin.DefaultTimeout), cfg.TriggerPlugin, cfg.TriggerAction, logger)
}
