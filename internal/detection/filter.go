// Package detection turns raw detector output into pixel-space person
// detections and removes duplicates.
package detection

import (
	"image"

	"github.com/ayusman/proxiwatch/internal/detector"
)

// Filter constants.
const (
	// ConfidenceThreshold is the exclusive lower bound on the top class score.
	ConfidenceThreshold = 0.5
	// PersonLabel is the only class kept.
	PersonLabel = "person"
)

// Box is a bounding box in pixel space with its top-left corner at X, Y.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Detection is one person sighting in a single frame.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Filter keeps candidates whose best class is "person" with a score above
// ConfidenceThreshold and converts their normalized center/size box to pixel
// coordinates for a frameWidth x frameHeight frame. Rejected candidates are
// dropped silently.
func Filter(candidates []detector.Candidate, labels []string, frameWidth, frameHeight int) []Detection {
	var out []Detection
	for _, c := range candidates {
		class, score := argmax(c.Scores)
		if class < 0 || score <= ConfidenceThreshold {
			continue
		}
		if class >= len(labels) || labels[class] != PersonLabel {
			continue
		}

		out = append(out, Detection{
			Label:      labels[class],
			Confidence: float64(score),
			Box:        toPixels(c, frameWidth, frameHeight),
		})
	}
	return out
}

// toPixels truncates at every step so boxes land on the same pixels as the
// integer arithmetic used by OpenCV drawing.
func toPixels(c detector.Candidate, frameWidth, frameHeight int) Box {
	centerX := int(c.CenterX * float32(frameWidth))
	centerY := int(c.CenterY * float32(frameHeight))
	w := int(c.Width * float32(frameWidth))
	h := int(c.Height * float32(frameHeight))

	return Box{
		X:      int(float64(centerX) - float64(w)/2),
		Y:      int(float64(centerY) - float64(h)/2),
		Width:  w,
		Height: h,
	}
}

// argmax returns the index and value of the largest score, or -1 for an
// empty distribution. Ties resolve to the lowest index.
func argmax(scores []float32) (int, float32) {
	best := -1
	var max float32
	for i, s := range scores {
		if best < 0 || s > max {
			best = i
			max = s
		}
	}
	return best, max
}
