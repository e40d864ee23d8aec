package recorder

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// watermarkTop is the distance of the watermark from the top edge, in pixels.
const watermarkTop = 88

// PixelBufferRecycler copies live images into pooled buffers.
//
// Rotation and aspect policy are fixed at construction and applied in a single
// affine transform, so every pixel is written once.
type PixelBufferRecycler struct {
	rotation  Rotation
	aspect    AspectMode
	watermark image.Image
	scaler    draw.Interpolator
}

// NewPixelBufferRecycler returns a recycler. watermark may be nil.
func NewPixelBufferRecycler(rotation Rotation, aspect AspectMode, watermark image.Image, scaler draw.Interpolator) (*PixelBufferRecycler, error) {
	if !rotation.Valid() {
		return nil, fmt.Errorf("recorder: invalid rotation %d", rotation)
	}
	if scaler == nil {
		scaler = draw.ApproxBiLinear
	}
	return &PixelBufferRecycler{
		rotation:  rotation,
		aspect:    aspect,
		watermark: watermark,
		scaler:    scaler,
	}, nil
}

// WriteInto renders src into buf.
func (r *PixelBufferRecycler) WriteInto(buf *PixelBuffer, src image.Image) error {
	if src == nil {
		return fmt.Errorf("recorder: nil source image")
	}
	sb := src.Bounds()
	if sb.Empty() {
		return fmt.Errorf("recorder: empty source image")
	}

	dst := buf.Image
	if r.aspect == AspectFit {
		draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
	}

	r.scaler.Transform(dst, r.transform(sb, dst.Bounds()), src, sb, draw.Src, nil)

	if r.watermark != nil {
		r.drawWatermark(dst)
	}
	return nil
}

// transform maps source pixel coordinates to destination coordinates: rotate
// clockwise about the source origin, then scale and center.
func (r *PixelBufferRecycler) transform(sb, db image.Rectangle) f64.Aff3 {
	sw, sh := float64(sb.Dx()), float64(sb.Dy())
	dw, dh := float64(db.Dx()), float64(db.Dy())

	rw, rh := sw, sh
	if r.rotation == Rotate90 || r.rotation == Rotate270 {
		rw, rh = sh, sw
	}

	sx, sy := dw/rw, dh/rh
	s := math.Max(sx, sy)
	if r.aspect == AspectFit {
		s = math.Min(sx, sy)
	}
	tx := (dw-rw*s)/2 + float64(db.Min.X)
	ty := (dh-rh*s)/2 + float64(db.Min.Y)

	var m f64.Aff3
	switch r.rotation {
	case Rotate90:
		m = f64.Aff3{0, -s, s*sh + tx, s, 0, ty}
	case Rotate180:
		m = f64.Aff3{-s, 0, s*sw + tx, 0, -s, s*sh + ty}
	case Rotate270:
		m = f64.Aff3{0, s, tx, -s, 0, s*sw + ty}
	default:
		m = f64.Aff3{s, 0, tx, 0, s, ty}
	}

	// Source bounds need not start at the origin.
	mx, my := float64(sb.Min.X), float64(sb.Min.Y)
	m[2] -= m[0]*mx + m[1]*my
	m[5] -= m[3]*mx + m[4]*my
	return m
}

func (r *PixelBufferRecycler) drawWatermark(dst *image.RGBA) {
	wb := r.watermark.Bounds()
	db := dst.Bounds()

	x := db.Min.X + (db.Dx()-wb.Dx())/2
	y := db.Min.Y + watermarkTop
	rect := image.Rect(x, y, x+wb.Dx(), y+wb.Dy())

	draw.Draw(dst, rect, r.watermark, wb.Min, draw.Over)
}
