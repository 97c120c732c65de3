package detector

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// boxFields is the number of leading values in a YOLOv3 output row before the
// class scores: center x, center y, width, height, objectness.
const boxFields = 5

// YOLODetector runs a darknet YOLOv3 network through the OpenCV DNN module.
type YOLODetector struct {
	config       Config
	net          gocv.Net
	outputLayers []string
	labels       []string
	mu           sync.Mutex
}

// NewYOLO loads the network and the class labels. It is the only place the
// model is read from disk.
func NewYOLO(config Config) (*YOLODetector, error) {
	labels, err := LoadLabels(config.LabelsPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(config.WeightsPath, config.ConfigPath)
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("failed to load network from %s and %s", config.WeightsPath, config.ConfigPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	names := net.GetLayerNames()
	var outputs []string
	for _, id := range net.GetUnconnectedOutLayers() {
		// Layer ids are 1-based.
		if id >= 1 && id <= len(names) {
			outputs = append(outputs, names[id-1])
		}
	}
	if len(outputs) == 0 {
		net.Close()
		return nil, errors.New("network has no output layers")
	}

	if config.InputSize <= 0 {
		config.InputSize = 416
	}
	if config.ScaleFactor <= 0 {
		config.ScaleFactor = 0.00392
	}

	return &YOLODetector{
		config:       config,
		net:          net,
		outputLayers: outputs,
		labels:       labels,
	}, nil
}

// Detect runs a forward pass and returns every candidate row of every output
// layer.
func (d *YOLODetector) Detect(frame *gocv.Mat) ([]Candidate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	size := image.Pt(d.config.InputSize, d.config.InputSize)
	blob := gocv.BlobFromImage(*frame, d.config.ScaleFactor, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	outs := d.net.ForwardLayers(d.outputLayers)
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()

	var candidates []Candidate
	for _, out := range outs {
		candidates = append(candidates, parseOutput(out)...)
	}
	return candidates, nil
}

// parseOutput converts one output layer into candidates. Each row holds the
// box fields followed by one score per class.
func parseOutput(out gocv.Mat) []Candidate {
	rows, cols := out.Rows(), out.Cols()
	if cols <= boxFields {
		return nil
	}

	candidates := make([]Candidate, 0, rows)
	for i := 0; i < rows; i++ {
		scores := make([]float32, cols-boxFields)
		for j := range scores {
			scores[j] = out.GetFloatAt(i, boxFields+j)
		}
		candidates = append(candidates, Candidate{
			CenterX: out.GetFloatAt(i, 0),
			CenterY: out.GetFloatAt(i, 1),
			Width:   out.GetFloatAt(i, 2),
			Height:  out.GetFloatAt(i, 3),
			Scores:  scores,
		})
	}
	return candidates
}

// Labels returns the class names loaded at construction.
func (d *YOLODetector) Labels() []string {
	return d.labels
}

// Close releases the network.
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
