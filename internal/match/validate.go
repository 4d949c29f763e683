package match

import (
	"image"

	"camtrack/pkg/geometry"
)

func validateImages(search, template *Image, ref geometry.Point2D) error {
	if search.Empty() {
		return invalidInput("empty search image")
	}
	if template.Empty() {
		return invalidInput("empty template")
	}
	if search.Channels() != template.Channels() {
		return invalidInput("search image has %d channels, template has %d", search.Channels(), template.Channels())
	}
	ts := template.Size()
	if !geometry.Span(0, float64(ts.X-1)).Contains(ref.X) || !geometry.Span(0, float64(ts.Y-1)).Contains(ref.Y) {
		return invalidInput("reference point %v outside %dx%d template", ref, ts.X, ts.Y)
	}
	return nil
}

func validatePrecision(p Precision) error {
	if !(p.X > 0) || !(p.Y > 0) || !(p.Rot >= 0) {
		return invalidInput("precision %v must be positive", p)
	}
	return nil
}

// normalizeWindow repairs a caller window instead of rejecting it: a
// reversed range collapses onto its minimum, X and Y are clamped to the
// image, and the rotation range is shifted so that it starts in
// [-180, 180) and spans at most one turn. A full turn is [-180, 180];
// RotationAngles samples it without repeating -180 at 180.
func normalizeWindow(win Window, imageSize image.Point, opts Options) Window {
	fix := func(axis string, r geometry.Range) geometry.Range {
		if r.Min > r.Max {
			opts.Logger.Debug("reversed window range fixed at its minimum", "axis", axis, "range", r.String())
		}
		return r.Normalized()
	}
	out := Window{
		X:   fix("x", win.X).Intersect(geometry.Span(0, float64(imageSize.X-1))),
		Y:   fix("y", win.Y).Intersect(geometry.Span(0, float64(imageSize.Y-1))),
		Rot: fix("rot", win.Rot),
	}
	if out.Rot.Extent() >= 360 {
		out.Rot = geometry.Span(-180, 180)
	} else {
		shift := geometry.NormalizeDegrees(out.Rot.Min) - out.Rot.Min
		out.Rot = geometry.Span(out.Rot.Min+shift, out.Rot.Max+shift)
	}
	return out
}
