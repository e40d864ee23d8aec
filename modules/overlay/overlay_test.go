package overlay

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/john-rocky/ObjectMeasurement/modules/measurement"
)

func TestNewSegment(t *testing.T) {
	s := NewSegment(r3.Vector{X: -0.5, Z: -1}, r3.Vector{X: 0.5, Z: -1}, "W")

	if math.Abs(s.Length-1) > 1e-9 {
		t.Errorf("Length = %v, want 1", s.Length)
	}
	if s.Midpoint != (r3.Vector{Z: -1}) {
		t.Errorf("Midpoint = %v, want (0,0,-1)", s.Midpoint)
	}
	if s.Direction != (r3.Vector{X: 1}) {
		t.Errorf("Direction = %v, want (1,0,0)", s.Direction)
	}
}

func TestNewSegmentDegenerate(t *testing.T) {
	p := r3.Vector{X: 1, Y: 2, Z: 3}
	s := NewSegment(p, p, "")
	if s.Length != 0 || s.Direction != (r3.Vector{}) {
		t.Errorf("zero-length segment = %+v", s)
	}
}

func TestBuild(t *testing.T) {
	res := measurement.Result{
		Label:    "book",
		WidthCM:  23.4,
		HeightCM: 15.2,
		Midpoints: measurement.Midpoints{
			Left:   r3.Vector{X: -0.117, Z: -1},
			Right:  r3.Vector{X: 0.117, Z: -1},
			Top:    r3.Vector{Y: 0.076, Z: -1},
			Bottom: r3.Vector{Y: -0.076, Z: -1},
		},
	}
	res.Corners[measurement.TopLeft] = r3.Vector{X: -0.117, Y: 0.076, Z: -1}

	o := Build(res)
	if o.Title != "book 23.4 x 15.2 cm" {
		t.Errorf("Title = %q", o.Title)
	}
	if o.Width.Label != "W 23.4 cm" || o.Height.Label != "H 15.2 cm" {
		t.Errorf("labels = %q, %q", o.Width.Label, o.Height.Label)
	}
	if o.Corners[measurement.TopLeft].Name != "top-left" {
		t.Errorf("corner name = %q", o.Corners[measurement.TopLeft].Name)
	}
	if math.Abs(o.Width.Length-0.234) > 1e-9 {
		t.Errorf("width length = %v", o.Width.Length)
	}
}

type recordingRenderer struct {
	rendered []Overlay
	hidden   int
}

func (r *recordingRenderer) Render(o Overlay) { r.rendered = append(r.rendered, o) }
func (r *recordingRenderer) Hide()            { r.hidden++ }

func TestPresent(t *testing.T) {
	r := &recordingRenderer{}

	if !Present(r, measurement.Result{WidthCM: 1}, nil) {
		t.Error("Present should render a valid result")
	}
	if Present(r, measurement.Result{}, errors.New("no depth")) {
		t.Error("Present should hide on error")
	}
	if len(r.rendered) != 1 || r.hidden != 1 {
		t.Errorf("rendered=%d hidden=%d, want 1/1", len(r.rendered), r.hidden)
	}
}
