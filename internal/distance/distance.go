// Package distance estimates how far a person is from the camera using the
// pinhole-camera relation between a known real-world width and the width of
// its bounding box in pixels.
//
// This is a heuristic approximation, not a calibrated measurement. It assumes
// every person has the same shoulder width and faces the camera squarely, so
// people turned sideways read as farther away than they are.
package distance

// KnownPersonWidth is the assumed average human shoulder width in centimeters.
const KnownPersonWidth = 40.0

// Distance returns knownWidth * focalLength / pixelWidth.
// The result is undefined (ok is false) when no focal length is configured or
// the observed width is not positive; no division is attempted in that case.
func Distance(knownWidth float64, focalLength *float64, pixelWidth float64) (float64, bool) {
	if focalLength == nil || pixelWidth <= 0 {
		return 0, false
	}
	return knownWidth * *focalLength / pixelWidth, true
}

// Estimate is the per-detection result of an Estimator.
type Estimate struct {
	Centimeters float64 `json:"centimeters"`
	OK          bool    `json:"ok"`
}

// Estimator binds the calibration constants used by Distance.
type Estimator struct {
	KnownWidth  float64
	FocalLength *float64
}

// Enabled reports whether a focal length has been supplied.
func (e Estimator) Enabled() bool {
	return e.FocalLength != nil
}

// Estimate returns the estimated distance for a box pixelWidth wide.
func (e Estimator) Estimate(pixelWidth int) Estimate {
	d, ok := Distance(e.KnownWidth, e.FocalLength, float64(pixelWidth))
	return Estimate{Centimeters: d, OK: ok}
}
