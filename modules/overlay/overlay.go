// Package overlay converts measurement results into renderer-ready geometry:
// corner markers, the two measurement segments and their labels.
//
// The renderer owns all visual state. Each frame either presents a fresh
// Overlay or hides the previous one.
package overlay

import (
	"fmt"

	"github.com/golang/geo/r3"

	"github.com/john-rocky/ObjectMeasurement/modules/measurement"
)

// Segment is a straight line between two world points, with the placement
// values a renderer needs for a cylinder or label.
type Segment struct {
	From, To  r3.Vector
	Midpoint  r3.Vector
	Length    float64   // meters
	Direction r3.Vector // unit vector From -> To, zero when From == To
	Label     string
}

// NewSegment builds the segment between from and to.
func NewSegment(from, to r3.Vector, label string) Segment {
	d := to.Sub(from)
	s := Segment{
		From:     from,
		To:       to,
		Midpoint: from.Add(to).Mul(0.5),
		Length:   d.Norm(),
		Label:    label,
	}
	if s.Length > 0 {
		s.Direction = d.Normalize()
	}
	return s
}

// Marker is a point annotation.
type Marker struct {
	Position r3.Vector
	Name     string
}

// Overlay is the geometry for one measurement.
type Overlay struct {
	Title   string
	Corners [4]Marker
	Width   Segment // left midpoint -> right midpoint
	Height  Segment // top midpoint -> bottom midpoint
}

var cornerNames = [4]string{
	measurement.TopLeft:     "top-left",
	measurement.TopRight:    "top-right",
	measurement.BottomRight: "bottom-right",
	measurement.BottomLeft:  "bottom-left",
}

// Build derives the overlay for res.
func Build(res measurement.Result) Overlay {
	o := Overlay{
		Title:  title(res),
		Width:  NewSegment(res.Midpoints.Left, res.Midpoints.Right, "W "+res.WidthLabel()),
		Height: NewSegment(res.Midpoints.Top, res.Midpoints.Bottom, "H "+res.HeightLabel()),
	}
	for i, c := range res.Corners {
		o.Corners[i] = Marker{Position: c, Name: cornerNames[i]}
	}
	return o
}

func title(res measurement.Result) string {
	if res.Label == "" {
		return fmt.Sprintf("%.1f x %.1f cm", res.WidthCM, res.HeightCM)
	}
	return fmt.Sprintf("%s %.1f x %.1f cm", res.Label, res.WidthCM, res.HeightCM)
}

// Renderer draws overlays. Implemented by the host scene graph.
type Renderer interface {
	Render(o Overlay)
	Hide()
}

// Present renders res when err is nil and hides the overlay otherwise.
// Returns whether something was rendered.
func Present(r Renderer, res measurement.Result, err error) bool {
	if err != nil {
		r.Hide()
		return false
	}
	r.Render(Build(res))
	return true
}
