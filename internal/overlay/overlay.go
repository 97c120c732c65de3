// Package overlay draws detections and the heads-up display onto frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/proxiwatch/internal/detection"
	"github.com/ayusman/proxiwatch/internal/distance"
)

// TimeLayout is the HUD clock format.
const TimeLayout = "2006-01-02 15:04:05"

var (
	Green = color.RGBA{G: 255}
	Red   = color.RGBA{R: 255}
	White = color.RGBA{R: 255, G: 255, B: 255}
)

const (
	boxThickness = 2
	hudScale     = 0.7
	hudThickness = 2
	labelScale   = 0.5
	labelThick   = 1
	hudX         = 10
	hudLineY     = 30
)

// Annotation is everything drawn on one frame.
type Annotation struct {
	Detections []detection.Detection
	// Distances and Close are parallel to Detections. Either may be nil.
	Distances []distance.Estimate
	Close     []bool
	// HighlightClose draws close detections in red. It is only meaningful
	// when a trigger distance is configured.
	HighlightClose   bool
	PersonCount      int
	ClosePersonCount int
	Fired            bool
	Timestamp        time.Time
}

// Label returns the text drawn above a detection, e.g. "person 0.87 ~123 cm".
func Label(d detection.Detection, est distance.Estimate) string {
	label := fmt.Sprintf("%s %.2f", d.Label, d.Confidence)
	if est.OK {
		label += fmt.Sprintf(" ~%.0f cm", est.Centimeters)
	}
	return label
}

// HUDLines returns the status lines drawn in the top-left corner.
func HUDLines(a Annotation) []string {
	lines := []string{
		"Time: " + a.Timestamp.Format(TimeLayout),
		fmt.Sprintf("Persons detected: %d", a.PersonCount),
		fmt.Sprintf("Close: %d", a.ClosePersonCount),
	}
	if a.Fired {
		lines = append(lines, "TRIGGERED")
	}
	return lines
}

// BoxColor returns the rectangle color for detection i.
func BoxColor(a Annotation, i int) color.RGBA {
	if a.HighlightClose && i < len(a.Close) && a.Close[i] {
		return Red
	}
	return Green
}

// Draw renders a onto frame in place.
func Draw(frame *gocv.Mat, a Annotation) {
	for i, d := range a.Detections {
		c := BoxColor(a, i)
		gocv.Rectangle(frame, d.Box.Rect(), c, boxThickness)

		var est distance.Estimate
		if i < len(a.Distances) {
			est = a.Distances[i]
		}
		y := d.Box.Y - 5
		if y < 10 {
			y = d.Box.Y + 15
		}
		gocv.PutText(frame, Label(d, est), image.Pt(d.Box.X, y), gocv.FontHersheySimplex, labelScale, c, labelThick)
	}

	for i, line := range HUDLines(a) {
		c := White
		if line == "TRIGGERED" {
			c = Red
		}
		pt := image.Pt(hudX, hudLineY*(i+1))
		gocv.PutText(frame, line, pt, gocv.FontHersheySimplex, hudScale, c, hudThickness)
	}
}
