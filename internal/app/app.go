// Package app ties the frame source, detector, trigger policy and overlay
// into a single-threaded detection session.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/ayusman/proxiwatch/internal/capture"
	"github.com/ayusman/proxiwatch/internal/config"
	"github.com/ayusman/proxiwatch/internal/detection"
	"github.com/ayusman/proxiwatch/internal/detector"
	"github.com/ayusman/proxiwatch/internal/distance"
	"github.com/ayusman/proxiwatch/internal/logging"
	"github.com/ayusman/proxiwatch/internal/overlay"
	"github.com/ayusman/proxiwatch/internal/plugin"
	"github.com/ayusman/proxiwatch/internal/server"
	"github.com/ayusman/proxiwatch/internal/store"
	"github.com/ayusman/proxiwatch/internal/trigger"
)

// Options are the collaborators of a session. Camera and Detector are
// required; the rest have defaults.
type Options struct {
	Config   config.Config
	Camera   capture.Camera
	Detector detector.Detector

	// Suppressor defaults to NMS with the standard thresholds.
	Suppressor detection.Suppressor
	// Display defaults to a headless display.
	Display overlay.Display
	// Action runs on every fire. It defaults to logging the event.
	Action trigger.Action
	// Store journals fired events when set.
	Store *store.Store
	// Hub receives annotated frames and results when set.
	Hub *server.Hub

	Clock  clock.Clock
	Logger logging.Logger
}

// App is one detection session. All per-session state, including the last
// trigger time, lives here; nothing is global.
type App struct {
	config     config.Config
	camera     capture.Camera
	detector   detector.Detector
	labels     []string
	suppressor detection.Suppressor
	estimator  distance.Estimator
	classifier trigger.Classifier
	policy     *trigger.Policy
	display    overlay.Display
	action     trigger.Action
	store      *store.Store
	hub        *server.Hub
	clock      clock.Clock
	logger     logging.Logger

	frames int
	fires  int
}

// New creates a session. The detector must already be loaded; its labels are
// read once here.
func New(opts Options) (*App, error) {
	if opts.Camera == nil {
		return nil, errors.New("app: camera is required")
	}
	if opts.Detector == nil {
		return nil, errors.New("app: detector is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Suppressor == nil {
		opts.Suppressor = detection.NewNMS()
	}
	if opts.Display == nil {
		opts.Display = overlay.NewHeadless()
	}
	if opts.Action == nil {
		opts.Action = plugin.LogAction(opts.Logger)
	}

	a := &App{
		config:     opts.Config,
		camera:     opts.Camera,
		detector:   opts.Detector,
		labels:     opts.Detector.Labels(),
		suppressor: opts.Suppressor,
		estimator:  opts.Config.Estimator(),
		classifier: opts.Config.Classifier(),
		display:    opts.Display,
		action:     opts.Action,
		store:      opts.Store,
		hub:        opts.Hub,
		clock:      opts.Clock,
		logger:     opts.Logger,
	}
	a.policy = trigger.NewPolicy(opts.Config.TriggerConfig(), a.fire, opts.Clock)

	if opts.Config.FailOpen() {
		a.logger.Warnw("distance gating disabled, every detected person counts as close",
			"distance_enabled", opts.Config.DistanceEnabled(),
			"trigger_distance_set", opts.Config.TriggerDistance != nil,
		)
	}

	return a, nil
}

// fire runs the configured action and journals the outcome.
func (a *App) fire(ctx context.Context, ev trigger.Event) error {
	a.fires++
	err := a.action(ctx, ev)

	if a.store != nil {
		rec := &store.TriggerEvent{
			FiredAt:     ev.Time,
			PersonCount: ev.PersonCount,
			CloseCount:  ev.CloseCount,
			Plugin:      a.config.TriggerPlugin,
		}
		if a.config.TriggerPlugin != "" {
			rec.Action = a.config.TriggerAction
		}
		if err != nil {
			rec.Error = err.Error()
		}
		if jerr := a.store.Events().Create(rec); jerr != nil {
			a.logger.Errorw("failed to journal trigger event", "error", jerr)
		}
		a.pruneJournal(ev.Time)
	}

	return err
}

// pruneJournal drops journaled events older than the configured retention.
func (a *App) pruneJournal(now time.Time) {
	if a.store == nil || a.config.EventRetention <= 0 {
		return
	}
	removed, err := a.store.Events().DeleteBefore(now.Add(-a.config.EventRetention))
	if err != nil {
		a.logger.Errorw("failed to prune event journal", "error", err)
		return
	}
	if removed > 0 {
		a.logger.Debugw("pruned event journal", "removed", removed, "retention", a.config.EventRetention)
	}
}

// Policy returns the session's trigger policy.
func (a *App) Policy() *trigger.Policy {
	return a.policy
}

// Frames returns how many frames were processed.
func (a *App) Frames() int {
	return a.frames
}

// Fires returns how many times the trigger fired.
func (a *App) Fires() int {
	return a.fires
}

// Run opens the camera and processes frames until the stream ends, the quit
// key is pressed or ctx is cancelled. Those exits return nil. The camera and
// display are released on every path.
func (a *App) Run(ctx context.Context) (err error) {
	if err := a.camera.Open(); err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.release())
	}()

	a.logger.Infow("detection loop started")
	start := a.clock.Now()
	a.pruneJournal(start)

	for {
		if ctx.Err() != nil {
			a.logger.Infow("detection loop cancelled")
			break
		}

		frame, rerr := a.camera.ReadFrame()
		if errors.Is(rerr, capture.ErrEndOfStream) {
			a.logger.Infow("end of stream", "reason", rerr)
			break
		}
		if rerr != nil {
			return rerr
		}

		result, perr := a.ProcessFrame(ctx, frame)
		if perr != nil {
			frame.Close()
			return perr
		}
		a.render(frame, result)
		frame.Close()

		if overlay.QuitRequested(a.display.PollKey()) {
			a.logger.Infow("quit key pressed")
			break
		}
	}

	a.logger.Infow("detection loop stopped",
		"frames", a.frames,
		"fires", a.fires,
		"elapsed", a.clock.Since(start).Round(time.Millisecond),
	)
	return nil
}

// release closes the camera and the display.
func (a *App) release() error {
	return multierr.Combine(
		a.camera.Close(),
		a.display.Close(),
	)
}

// Close releases every resource owned by the session, including the
// detector and the journal.
func (a *App) Close() error {
	err := multierr.Combine(
		a.release(),
		a.detector.Close(),
	)
	if a.store != nil {
		err = multierr.Append(err, a.store.Close())
	}
	return err
}
