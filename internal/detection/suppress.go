package detection

import (
	"image"
	"sort"

	"gocv.io/x/gocv"
)

// Default non-max suppression thresholds.
const (
	NMSScoreThreshold = 0.5
	NMSIoUThreshold   = 0.4
)

// Suppressor removes overlapping duplicate boxes. It returns the indices of
// the boxes to keep.
type Suppressor interface {
	Suppress(boxes []image.Rectangle, scores []float32) []int
}

// NMS suppresses with OpenCV's greedy non-max suppression.
type NMS struct {
	ScoreThreshold float32
	IoUThreshold   float32
}

// NewNMS returns an NMS with the default thresholds.
func NewNMS() NMS {
	return NMS{
		ScoreThreshold: NMSScoreThreshold,
		IoUThreshold:   NMSIoUThreshold,
	}
}

// Suppress implements Suppressor.
func (n NMS) Suppress(boxes []image.Rectangle, scores []float32) []int {
	if len(boxes) == 0 {
		return nil
	}
	return gocv.NMSBoxes(boxes, scores, n.ScoreThreshold, n.IoUThreshold)
}

// Apply runs s over detections and returns the survivors in their original
// order.
func Apply(s Suppressor, detections []Detection) []Detection {
	if len(detections) == 0 {
		return nil
	}

	boxes := make([]image.Rectangle, len(detections))
	scores := make([]float32, len(detections))
	for i, d := range detections {
		boxes[i] = d.Box.Rect()
		scores[i] = float32(d.Confidence)
	}

	keep := s.Suppress(boxes, scores)
	sort.Ints(keep)

	out := make([]Detection, 0, len(keep))
	last := -1
	for _, idx := range keep {
		if idx < 0 || idx >= len(detections) || idx == last {
			continue
		}
		out = append(out, detections[idx])
		last = idx
	}
	return out
}

// SuppressorFunc adapts a plain function to the Suppressor interface.
type SuppressorFunc func(boxes []image.Rectangle, scores []float32) []int

// Suppress implements Suppressor.
func (f SuppressorFunc) Suppress(boxes []image.Rectangle, scores []float32) []int {
	return f(boxes, scores)
}

// KeepAll is a Suppressor that keeps every box.
var KeepAll = SuppressorFunc(func(boxes []image.Rectangle, _ []float32) []int {
	keep := make([]int, len(boxes))
	for i := range keep {
		keep[i] = i
	}
	return keep
})
