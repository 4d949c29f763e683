package match

import (
	"image"
	"math"

	"camtrack/pkg/geometry"
)

// Crop is the result of SafeCrop.
type Crop struct {
	Rect image.Rectangle
	// Ref is the target point relative to Rect.Min.
	Ref geometry.Point2D
	// FullImage is set when the requested patch did not fit and the whole
	// image was returned instead.
	FullImage bool
}

// SafeCrop places a patchSize rectangle inside an image of imageSize so
// that point sits at the patch center, or at preferredRef when given. The
// rectangle is shifted by the minimum amount needed to stay inside the
// image, and Ref is recomputed for the shifted rectangle.
//
// A patch larger than the image yields the full image with Ref equal to
// point. SafeCrop never fails.
func SafeCrop(imageSize image.Point, point geometry.Point2D, patchSize image.Point, preferredRef *geometry.Point2D) Crop {
	if patchSize.X > imageSize.X || patchSize.Y > imageSize.Y {
		return Crop{
			Rect:      image.Rectangle{Max: imageSize},
			Ref:       point,
			FullImage: true,
		}
	}

	ref := geometry.Pt(float64(patchSize.X-1)/2, float64(patchSize.Y-1)/2)
	if preferredRef != nil {
		ref = *preferredRef
	}

	x0 := clampInt(int(math.Round(point.X-ref.X)), 0, imageSize.X-patchSize.X)
	y0 := clampInt(int(math.Round(point.Y-ref.Y)), 0, imageSize.Y-patchSize.Y)

	return Crop{
		Rect: image.Rect(x0, y0, x0+patchSize.X, y0+patchSize.Y),
		Ref:  geometry.Pt(point.X-float64(x0), point.Y-float64(y0)),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
