package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	candidates []Candidate
	labels     []string
	err        error
	calls      int
	closed     bool
}

// NewMockDetector creates a new MockDetector with the given class labels.
func NewMockDetector(labels []string) *MockDetector {
	return &MockDetector{labels: labels}
}

// SetCandidates sets the candidates that will be returned by Detect.
func (m *MockDetector) SetCandidates(candidates []Candidate) {
	m.candidates = candidates
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured candidates or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Candidate, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.candidates, nil
}

// Labels returns the configured labels.
func (m *MockDetector) Labels() []string {
	return m.labels
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	return m.closed
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.closed = true
	return nil
}

// ClassCandidate returns a candidate whose score distribution has score at
// class and zero elsewhere.
func ClassCandidate(class, numClasses int, score, cx, cy, w, h float32) Candidate {
	scores := make([]float32, numClasses)
	if class >= 0 && class < numClasses {
		scores[class] = score
	}
	return Candidate{
		CenterX: cx,
		CenterY: cy,
		Width:   w,
		Height:  h,
		Scores:  scores,
	}
}

// TestLabels is a short label table with "person" at index 0, matching the
// COCO ordering for the first few classes.
func TestLabels() []string {
	return []string{"person", "bicycle", "car", "motorbike", "aeroplane"}
}
