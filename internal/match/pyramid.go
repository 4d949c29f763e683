package match

import (
	"image"
	"math"

	"camtrack/pkg/geometry"

	"github.com/pkg/errors"
)

// Narrowing factors: after each level the translation windows shrink to
// the estimate ± 3 steps and the rotation window to ± 2 steps.
const (
	translationNarrowing = 3
	rotationNarrowing    = 2
)

// MatchPyramid locates template's reference point ref inside search,
// allowing an in-plane rotation, to within target precision on every
// searched axis.
//
// Each level runs MatchLevel over the current window, then narrows the
// window around the estimate and halves the sampling step of every axis
// still coarser than its target. The window only ever shrinks. The first
// level samples at opts.InitialPrecision, or at 1/32 of the template size
// when unset.
//
// The returned Timing is the sum over all levels.
func MatchPyramid(search, template *Image, ref geometry.Point2D, win Window, target Precision, opts Options) (MatchResult, error) {
	opts = opts.withDefaults()
	if err := validateImages(search, template, ref); err != nil {
		return MatchResult{}, err
	}
	if err := validatePrecision(target); err != nil {
		return MatchResult{}, err
	}
	win = normalizeWindow(win, search.Size(), opts)
	if !win.Rot.IsFixed() && target.Rot <= 0 {
		return MatchResult{}, invalidInput("rotation target precision must be positive for rotation window %v", win.Rot)
	}

	prec := initialPrecision(template.Size(), target, opts.InitialPrecision)

	var (
		res    MatchResult
		total  Timing
		levels int
	)
	for {
		lr, err := matchLevel(search, template, ref, win, prec, opts)
		if err != nil {
			return MatchResult{}, errors.WithMessagef(err, "pyramid level %d (window %v, precision %v)", levels, win, prec)
		}
		total.Add(lr.Timing)
		res = lr
		if opts.OnLevel != nil {
			opts.OnLevel(Level{Index: levels, Window: win, Precision: prec, Result: lr})
		}
		levels++

		if converged(win, prec, target) {
			break
		}
		if levels >= maxPyramidLevels {
			opts.Logger.Warn("pyramid level limit reached", "levels", levels, "precision", prec.String(), "target", target.String())
			break
		}
		win = narrow(win, lr, prec)
		prec = halve(prec, target, win)
	}

	res.Timing = total
	res.Levels = levels
	res.Rotation = geometry.NormalizeDegrees(res.Rotation)
	opts.Logger.Debug("pyramid done", "result", res.String())
	return res, nil
}

func converged(win Window, prec, target Precision) bool {
	return (win.X.IsFixed() || prec.X <= target.X) &&
		(win.Y.IsFixed() || prec.Y <= target.Y) &&
		(win.Rot.IsFixed() || prec.Rot <= target.Rot)
}

func narrow(win Window, res MatchResult, prec Precision) Window {
	return Window{
		X:   geometry.Around(res.X, translationNarrowing*prec.X).Intersect(win.X),
		Y:   geometry.Around(res.Y, translationNarrowing*prec.Y).Intersect(win.Y),
		Rot: geometry.Around(res.Rotation, rotationNarrowing*prec.Rot).Intersect(win.Rot),
	}
}

func halve(prec, target Precision, win Window) Precision {
	if !win.X.IsFixed() && prec.X > target.X {
		prec.X /= 2
	}
	if !win.Y.IsFixed() && prec.Y > target.Y {
		prec.Y /= 2
	}
	if !win.Rot.IsFixed() && prec.Rot > target.Rot {
		prec.Rot /= 2
	}
	return prec
}

// initialPrecision picks the first level's sampling: 1/32 of the template
// size for X and Y, and for rotation the angle that moves a point at the
// template's half extent by one X step. Fields of override that are set
// win, and nothing starts finer than target.
func initialPrecision(templateSize image.Point, target, override Precision) Precision {
	w, h := float64(templateSize.X), float64(templateSize.Y)
	p := Precision{X: w / 32, Y: h / 32}
	p.Rot = (w / 32) / (math.Min(w, h) / 2) * 180 / math.Pi

	if override.X > 0 {
		p.X = override.X
	}
	if override.Y > 0 {
		p.Y = override.Y
	}
	if override.Rot > 0 {
		p.Rot = override.Rot
	}
	p.X = math.Max(p.X, target.X)
	p.Y = math.Max(p.Y, target.Y)
	p.Rot = math.Max(p.Rot, target.Rot)
	return p
}
