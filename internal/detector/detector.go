// Package detector wraps the pre-trained object detection model.
package detector

import (
	"path/filepath"

	"gocv.io/x/gocv"
)

// Candidate is one raw detector output vector: a bounding box normalized to
// [0,1] followed by the class score distribution.
type Candidate struct {
	CenterX float32
	CenterY float32
	Width   float32
	Height  float32
	Scores  []float32
}

// Detector defines the interface for object detection implementations.
type Detector interface {
	// Detect runs inference on a frame and returns every raw candidate.
	// No thresholding is applied here.
	Detect(frame *gocv.Mat) ([]Candidate, error)

	// Labels returns the class names indexed by class id.
	Labels() []string

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for the YOLO detector.
type Config struct {
	// WeightsPath is the darknet weights file.
	WeightsPath string

	// ConfigPath is the darknet network definition.
	ConfigPath string

	// LabelsPath is the newline separated class names file.
	LabelsPath string

	// InputSize is the square network input size in pixels (default: 416).
	InputSize int

	// ScaleFactor multiplies pixel values before inference (default: 1/255).
	ScaleFactor float64
}

// DefaultConfig returns a Config pointing at the standard artifact names
// inside dir.
func DefaultConfig(dir string) Config {
	return Config{
		WeightsPath: filepath.Join(dir, WeightsFile),
		ConfigPath:  filepath.Join(dir, NetConfigFile),
		LabelsPath:  filepath.Join(dir, LabelsFile),
		InputSize:   416,
		ScaleFactor: 0.00392,
	}
}
