package measurement

import "github.com/john-rocky/ObjectMeasurement/modules/arframe"

// Detector returns the single best detection for a frame, or nil when nothing
// was found. Inference itself lives outside this module.
type Detector interface {
	Detect(frame arframe.Frame) (*DetectionBox, error)
}

// StaticDetector reports the same box for every frame.
type StaticDetector struct {
	Box DetectionBox
}

// Detect implements Detector.
func (d StaticDetector) Detect(arframe.Frame) (*DetectionBox, error) {
	box := d.Box
	return &box, nil
}
