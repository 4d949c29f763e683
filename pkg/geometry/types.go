// Package geometry provides the small value types shared by the matcher,
// the tracker and the command line tools.
package geometry

import (
	"fmt"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Pt is shorthand for Point2D{X: x, Y: y}.
func Pt(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

func (p Point2D) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", p.X, p.Y)
}

// Rect represents a rectangle with floating-point coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SquareAround returns the square of the given half side centered on c.
func SquareAround(c Point2D, half float64) Rect {
	return Rect{X: c.X - half, Y: c.Y - half, Width: 2 * half, Height: 2 * half}
}

// Range is a closed 1D interval [Min, Max]. A range with Min == Max is fixed.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Span returns the closed interval [lo, hi].
func Span(lo, hi float64) Range {
	return Range{Min: lo, Max: hi}
}

// Fixed returns the degenerate range [v, v].
func Fixed(v float64) Range {
	return Range{Min: v, Max: v}
}

// Around returns [c-r, c+r].
func Around(c, r float64) Range {
	return Range{Min: c - r, Max: c + r}
}

// IsFixed reports whether the range is a single value.
func (r Range) IsFixed() bool {
	return r.Min == r.Max
}

// Extent returns Max-Min.
func (r Range) Extent() float64 {
	return r.Max - r.Min
}

// Mid returns the middle of the range.
func (r Range) Mid() float64 {
	return (r.Min + r.Max) / 2
}

// Contains returns true if v lies in [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Clamp returns v limited to [Min, Max].
func (r Range) Clamp(v float64) float64 {
	return math.Max(r.Min, math.Min(r.Max, v))
}

// Intersect returns the overlap of r and other. When they do not overlap
// the result collapses onto the bound of other nearest to r, so Min <= Max
// always holds.
func (r Range) Intersect(other Range) Range {
	lo := other.Clamp(r.Min)
	hi := other.Clamp(r.Max)
	if lo > hi {
		lo = hi
	}
	return Range{Min: lo, Max: hi}
}

// Normalized returns r, except that a reversed range collapses onto Min.
func (r Range) Normalized() Range {
	if r.Min > r.Max {
		return Fixed(r.Min)
	}
	return r
}

func (r Range) String() string {
	if r.IsFixed() {
		return fmt.Sprintf("[%.3f]", r.Min)
	}
	return fmt.Sprintf("[%.3f, %.3f]", r.Min, r.Max)
}

// AffineTransform represents a 2x3 affine transformation matrix.
// [a b tx]
// [c d ty]
type AffineTransform struct {
	A, B, TX float64
	C, D, TY float64
}

// Translation returns a translation transform.
func Translation(tx, ty float64) AffineTransform {
	return AffineTransform{A: 1, D: 1, TX: tx, TY: ty}
}

// Scale returns a scaling transform.
func Scale(sx, sy float64) AffineTransform {
	return AffineTransform{A: sx, D: sy}
}

// Rotation returns a rotation by deg degrees around the origin, using the
// image convention (y down) where positive angles turn counter-clockwise on
// screen. This is the same sense as OpenCV's getRotationMatrix2D.
func Rotation(deg float64) AffineTransform {
	s, c := math.Sincos(deg * math.Pi / 180)
	return AffineTransform{A: c, B: s, C: -s, D: c}
}

// Apply applies the transform to a point.
func (t AffineTransform) Apply(p Point2D) Point2D {
	return Point2D{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
	}
}

// Compose returns this transform composed with another (this * other), so
// other is applied first.
func (t AffineTransform) Compose(other AffineTransform) AffineTransform {
	return AffineTransform{
		A:  t.A*other.A + t.B*other.C,
		B:  t.A*other.B + t.B*other.D,
		TX: t.A*other.TX + t.B*other.TY + t.TX,
		C:  t.C*other.A + t.D*other.C,
		D:  t.C*other.B + t.D*other.D,
		TY: t.C*other.TX + t.D*other.TY + t.TY,
	}
}

// Inverse returns the inverse transform, if it exists.
func (t AffineTransform) Inverse() (AffineTransform, bool) {
	det := t.A*t.D - t.B*t.C
	if math.Abs(det) < 1e-10 {
		return AffineTransform{}, false
	}

	invDet := 1.0 / det
	return AffineTransform{
		A:  t.D * invDet,
		B:  -t.B * invDet,
		TX: (t.B*t.TY - t.D*t.TX) * invDet,
		C:  -t.C * invDet,
		D:  t.A * invDet,
		TY: (t.C*t.TX - t.A*t.TY) * invDet,
	}, true
}

// ToMatrix returns the transform as a [2][3]float64 array.
func (t AffineTransform) ToMatrix() [2][3]float64 {
	return [2][3]float64{
		{t.A, t.B, t.TX},
		{t.C, t.D, t.TY},
	}
}

// NormalizeDegrees maps an angle into [-180, 180).
func NormalizeDegrees(deg float64) float64 {
	d := math.Mod(deg+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}
