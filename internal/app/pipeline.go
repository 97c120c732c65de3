package app

import (
	"context"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/proxiwatch/internal/detection"
	"github.com/ayusman/proxiwatch/internal/distance"
	"github.com/ayusman/proxiwatch/internal/overlay"
)

// FrameResult is the outcome of processing one frame. Distances and Close
// are parallel to Detections.
type FrameResult struct {
	Detections       []detection.Detection `json:"detections"`
	Distances        []distance.Estimate   `json:"distances"`
	Close            []bool                `json:"close"`
	PersonCount      int                   `json:"person_count"`
	ClosePersonCount int                   `json:"close_person_count"`
	Fired            bool                  `json:"fired"`
	Timestamp        time.Time             `json:"timestamp"`
}

// ProcessFrame runs detect, filter, suppress, estimate and trigger on one
// frame. Only a detector failure is returned as an error; action failures
// are logged and the frame still counts as fired.
func (a *App) ProcessFrame(ctx context.Context, frame *gocv.Mat) (FrameResult, error) {
	result := FrameResult{Timestamp: a.clock.Now()}

	candidates, err := a.detector.Detect(frame)
	if err != nil {
		return result, fmt.Errorf("detect: %w", err)
	}

	dets := detection.Filter(candidates, a.labels, frame.Cols(), frame.Rows())
	dets = detection.Apply(a.suppressor, dets)

	result.Detections = dets
	result.Distances = make([]distance.Estimate, len(dets))
	result.Close = make([]bool, len(dets))
	for i, d := range dets {
		est := a.estimator.Estimate(d.Box.Width)
		result.Distances[i] = est
		result.Close[i] = a.classifier.IsClose(est)
	}
	result.PersonCount = len(dets)
	result.ClosePersonCount = a.classifier.CountClose(result.Distances)

	fired, err := a.policy.Evaluate(ctx, result.PersonCount, result.ClosePersonCount)
	if err != nil {
		a.logger.Errorw("trigger action failed", "error", err)
	}
	result.Fired = fired

	a.frames++
	if fired {
		a.logger.Infow("trigger fired",
			"persons", result.PersonCount,
			"close", result.ClosePersonCount,
		)
	} else {
		a.logger.Debugw("frame processed",
			"persons", result.PersonCount,
			"close", result.ClosePersonCount,
		)
	}

	return result, nil
}

// Annotation converts r to what the overlay draws.
func (a *App) Annotation(r FrameResult) overlay.Annotation {
	return overlay.Annotation{
		Detections:       r.Detections,
		Distances:        r.Distances,
		Close:            r.Close,
		HighlightClose:   a.config.TriggerDistance != nil,
		PersonCount:      r.PersonCount,
		ClosePersonCount: r.ClosePersonCount,
		Fired:            r.Fired,
		Timestamp:        r.Timestamp,
	}
}

// render draws the overlay, shows the frame and publishes it to live viewers.
// Frames are only encoded while a stream client watches.
func (a *App) render(frame *gocv.Mat, r FrameResult) {
	overlay.Draw(frame, a.Annotation(r))
	a.display.Show(frame)

	if a.hub == nil {
		return
	}
	if a.hub.Watched() {
		if err := a.hub.PublishFrame(frame); err != nil {
			a.logger.Warnw("failed to publish frame", "error", err)
		}
	}
	if err := a.hub.PublishResult(r); err != nil {
		a.logger.Warnw("failed to publish result", "error", err)
	}
}
