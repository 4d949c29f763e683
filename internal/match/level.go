package match

import (
	"image"
	"math"
	"sync"
	"time"

	"camtrack/pkg/geometry"

	"gocv.io/x/gocv"
)

// cubicPad is the extra border kept around the template square so the
// bicubic kernel never reads replicated edge pixels.
const cubicPad = 2

// MatchLevel runs one pyramid level: every candidate angle of win.Rot,
// sampled at prec.Rot, is tried against the search region covering win.X
// and win.Y sampled at prec.X and prec.Y. It returns the best scoring
// angle; ties keep the first angle tried.
func MatchLevel(search, template *Image, ref geometry.Point2D, win Window, prec Precision, opts Options) (MatchResult, error) {
	opts = opts.withDefaults()
	if err := validateImages(search, template, ref); err != nil {
		return MatchResult{}, err
	}
	if err := validatePrecision(prec); err != nil {
		return MatchResult{}, err
	}
	win = normalizeWindow(win, search.Size(), opts)
	return matchLevel(search, template, ref, win, prec, opts)
}

type angleResult struct {
	x, y   float64
	score  float64
	timing Timing
	err    error
}

func matchLevel(search, template *Image, ref geometry.Point2D, win Window, prec Precision, opts Options) (MatchResult, error) {
	start := time.Now()
	var timing Timing

	size := search.Size()
	angles := RotationAngles(win.Rot, prec.Rot)
	plan, err := PlanRotationCrop(template.Size(), ref, angles, size)
	if err != nil {
		return MatchResult{}, err
	}
	half := plan.HalfSide

	// Canonical resolution: the template square maps onto nx by ny working
	// pixels and the search region is sampled at the same scale.
	nx := canonicalSide(half, prec.X, opts)
	ny := canonicalSide(half, prec.Y, opts)
	scaleX := float64(nx-1) / (2 * half)
	scaleY := float64(ny-1) / (2 * half)

	startX, countX := samplePositions(win.X, scaleX)
	startY, countY := samplePositions(win.Y, scaleY)
	regionSize := image.Pt(countX-1+nx, countY-1+ny)
	origin := geometry.Pt(startX-half, startY-half)

	// toCells maps a reference point position in the search image to its
	// cell in the correlation surface.
	toCells := geometry.Scale(scaleX, scaleY).Compose(geometry.Translation(-startX, -startY))
	fromCells, ok := toCells.Inverse()
	if !ok {
		return MatchResult{}, searchFailure("degenerate canonical scale %.4g x %.4g", scaleX, scaleY)
	}

	t0 := time.Now()
	region, err := remapScaled(search.mat, origin, scaleX, scaleY, regionSize)
	timing.Resample += time.Since(t0)
	if err != nil {
		return MatchResult{}, err
	}
	defer region.Close()

	tsize := template.Size()
	side := int(math.Ceil(2*half)) + 1 + 2*cubicPad
	crop := SafeCrop(tsize, ref, image.Pt(min(side, tsize.X), min(side, tsize.Y)), nil)
	square := template.mat.Region(crop.Rect)
	defer square.Close()

	opts.Logger.Debug("match level",
		"window", win.String(),
		"precision", prec.String(),
		"angles", len(angles),
		"half_side", half,
		"reduced_ratio", plan.ReducedRatio,
		"canonical", image.Pt(nx, ny).String(),
		"region", regionSize.String())

	evaluate := func(angle float64) angleResult {
		var ar angleResult
		var tmpl gocv.Mat
		if plan.Rotate {
			// Template offset d from the reference lands at Rotation(angle)*d
			// in the search image; scale it to working pixels around (half, half).
			xform := geometry.Translation(half*scaleX, half*scaleY).
				Compose(geometry.Scale(scaleX, scaleY)).
				Compose(geometry.Rotation(angle)).
				Compose(geometry.Translation(-crop.Ref.X, -crop.Ref.Y))
			t := time.Now()
			tmpl, ar.err = warpAffine(square, xform, image.Pt(nx, ny))
			ar.timing.Rotate += time.Since(t)
		} else {
			t := time.Now()
			tmpl, ar.err = remapScaled(square, crop.Ref.Sub(geometry.Pt(half, half)), scaleX, scaleY, image.Pt(nx, ny))
			ar.timing.Resample += time.Since(t)
		}
		if ar.err != nil {
			return ar
		}
		defer tmpl.Close()

		t := time.Now()
		corr := gocv.NewMat()
		defer corr.Close()
		mask := gocv.NewMat()
		defer mask.Close()
		gocv.MatchTemplate(region, tmpl, &corr, opts.Method.templateMatchMode(), mask)
		if corr.Empty() {
			ar.err = searchFailure("correlation of %v template over %v region produced no output",
				image.Pt(nx, ny), regionSize)
			return ar
		}
		_, maxVal, _, maxLoc := gocv.MinMaxLoc(corr)
		dx, dy := refinePeak(corr, maxLoc)
		ar.timing.Correlate += time.Since(t)

		ar.score = float64(maxVal)
		p := fromCells.Apply(geometry.Pt(float64(maxLoc.X)+dx, float64(maxLoc.Y)+dy))
		ar.x = win.X.Clamp(p.X)
		ar.y = win.Y.Clamp(p.Y)
		return ar
	}

	results := evaluateAngles(angles, opts.Parallel, evaluate)
	for _, r := range results {
		timing.Add(r.timing)
	}
	best, err := bestAngle(results)
	if err != nil {
		return MatchResult{}, err
	}

	res := MatchResult{
		X:        results[best].x,
		Y:        results[best].y,
		Rotation: angles[best],
		Score:    results[best].score,
		Levels:   1,
	}
	// Fixed dimensions were never searched.
	if win.X.IsFixed() {
		res.X = win.X.Min
	}
	if win.Y.IsFixed() {
		res.Y = win.Y.Min
	}
	if win.Rot.IsFixed() {
		res.Rotation = win.Rot.Min
	}
	timing.Total = time.Since(start)
	res.Timing = timing
	return res, nil
}

// evaluateAngles runs evaluate for every angle, concurrently when parallel
// is set. Results are indexed like angles whatever order they finish in.
func evaluateAngles(angles []float64, parallel bool, evaluate func(float64) angleResult) []angleResult {
	results := make([]angleResult, len(angles))
	if !parallel || len(angles) < 2 {
		for i, a := range angles {
			results[i] = evaluate(a)
		}
		return results
	}
	var wg sync.WaitGroup
	for i, a := range angles {
		wg.Add(1)
		go func(i int, a float64) {
			defer wg.Done()
			results[i] = evaluate(a)
		}(i, a)
	}
	wg.Wait()
	return results
}

// bestAngle returns the index of the highest score. Equal scores keep the
// earlier angle; NaN scores never win.
func bestAngle(results []angleResult) (int, error) {
	best := -1
	for i, r := range results {
		if r.err != nil {
			return -1, r.err
		}
		if math.IsNaN(r.score) {
			continue
		}
		if best < 0 || r.score > results[best].score {
			best = i
		}
	}
	if best < 0 {
		return -1, searchFailure("correlation undefined at every angle (flat template or region?)")
	}
	return best, nil
}

// canonicalSide returns the working size of a template square of the given
// half side sampled every step pixels.
func canonicalSide(half, step float64, opts Options) int {
	n := int(math.Round(2*half/step)) + 1
	return clampInt(n, opts.MinCanonical, opts.MaxCanonical)
}

// samplePositions returns the first candidate position and the number of
// candidates for one axis sampled every 1/scale pixels. A searched axis
// always gets at least three candidates, centered on the range, so the
// peak can be refined even when the range is narrower than one step.
func samplePositions(r geometry.Range, scale float64) (start float64, count int) {
	if r.IsFixed() {
		return r.Min, 1
	}
	count = int(math.Floor(r.Extent()*scale+1e-9)) + 1
	if count >= 3 {
		return r.Min, count
	}
	return r.Mid() - 1/scale, 3
}
