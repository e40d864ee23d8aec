// Package measurement turns a 2D detection box plus the camera pose and a depth
// sample into a world-space measurement of the detected object.
//
// Pipeline per frame:
//
//	PoseSampler   frame -> DepthSample at the viewport center
//	Unprojector   pose + distance -> screen depth, screen pixel -> world point
//	Engine        DetectionBox -> four corners -> edge midpoints -> width/height (cm)
//
// Coordinate conventions:
//   - DetectionBox is normalized to [0,1] with a bottom-left origin (y up), the
//     way vision detectors report boxes.
//   - Viewport pixels have a top-left origin (y down). ToViewport is the single
//     place the vertical flip happens: pixelY = height * (1 - normalizedY).
//   - World and camera space follow the OpenGL convention: camera looks down -Z.
//
// All internal math is float32 meters. Centimeters appear only in Result, after
// flooring to one decimal.
//
// The engine does no I/O and never blocks; it is safe to call from a frame
// callback. Errors (ErrNoDetection, ErrNoDepth, ErrDegenerate) describe transient
// per-frame absence and the caller is expected to hide the overlay and move on.
package measurement
