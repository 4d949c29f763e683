package match

import (
	"image"
	"math"

	"camtrack/pkg/geometry"

	"gonum.org/v1/gonum/floats"
)

// minHalfSide is the smallest usable half side, in template pixels, of
// the rotation-safe square.
const minHalfSide = 2.0

// ReducedRatio returns the factor by which a square must shrink so that,
// rotated about its center by deg degrees, it still fits inside the
// unrotated square. The ratio repeats every 90 degrees and is symmetric
// inside each quadrant, so the angle is folded into [0, 45] first.
func ReducedRatio(deg float64) float64 {
	theta := math.Acos(math.Cos(4*deg*math.Pi/180)) / 4
	return 1 / (math.Cos(theta) + math.Sin(theta))
}

// RotationAngles samples rot at a spacing no larger than step, both ends
// included. A range covering a full turn is sampled half-open, since its
// two ends are the same orientation. A fixed range or a non-positive step
// yields the single angle rot.Min.
func RotationAngles(rot geometry.Range, step float64) []float64 {
	if rot.IsFixed() || step <= 0 {
		return []float64{rot.Min}
	}
	n := int(math.Ceil(rot.Extent()/step-1e-9)) + 1
	if n < 2 {
		n = 2
	}
	if rot.Extent() >= 360 {
		n = max(n, 3)
		return floats.Span(make([]float64, n), rot.Min, rot.Min+360)[:n-1]
	}
	return floats.Span(make([]float64, n), rot.Min, rot.Max)
}

// RotationPlan is the rotation-safe square cut from a template.
type RotationPlan struct {
	// Square is centered on the reference point, in template coordinates.
	Square       geometry.Rect
	HalfSide     float64
	ReducedRatio float64
	// Rotate is false when every planned angle is zero, in which case the
	// template is only resampled.
	Rotate bool
}

// PlanRotationCrop computes the largest square around ref that can be
// rotated through every angle in angles without sampling outside the
// template. The square is also shrunk when the search image is too small
// to hold it; positions near the search image border are still searched,
// reading replicated edge pixels outside the image.
func PlanRotationCrop(templateSize image.Point, ref geometry.Point2D, angles []float64, searchSize image.Point) (RotationPlan, error) {
	plan := RotationPlan{ReducedRatio: 1}

	ratios := make([]float64, 0, len(angles))
	for _, a := range angles {
		if a != 0 {
			plan.Rotate = true
		}
		ratios = append(ratios, ReducedRatio(a))
	}
	if plan.Rotate {
		plan.ReducedRatio = floats.Min(ratios)
	}

	templHalf := math.Min(
		math.Min(ref.X, float64(templateSize.X-1)-ref.X),
		math.Min(ref.Y, float64(templateSize.Y-1)-ref.Y),
	)
	searchHalf := float64(min(searchSize.X, searchSize.Y)-1) / 2
	plan.HalfSide = math.Min(templHalf*plan.ReducedRatio, searchHalf)
	if plan.HalfSide < minHalfSide {
		return plan, searchFailure("rotation-safe half side %.2f below %.0f px (template margin %.2f, search image %v)",
			plan.HalfSide, minHalfSide, templHalf, searchSize)
	}
	plan.Square = geometry.SquareAround(ref, plan.HalfSide)
	return plan, nil
}
