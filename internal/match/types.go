package match

import (
	"fmt"
	"log/slog"
	"time"

	"camtrack/pkg/geometry"

	"gocv.io/x/gocv"
)

// Window bounds the candidate positions of the reference point in the
// search image (X, Y, pixels) and the candidate template rotations (Rot,
// degrees). A fixed range is never searched.
type Window struct {
	X   geometry.Range
	Y   geometry.Range
	Rot geometry.Range
}

func (w Window) String() string {
	return fmt.Sprintf("x%s y%s rot%s", w.X, w.Y, w.Rot)
}

// Precision is the sampling step per axis at one pyramid level, and the
// convergence tolerance when used as a target.
type Precision struct {
	X   float64
	Y   float64
	Rot float64
}

func (p Precision) String() string {
	return fmt.Sprintf("(%.4g, %.4g, %.4g°)", p.X, p.Y, p.Rot)
}

// Method selects the correlation score. Both methods peak at 1.
type Method int

const (
	// CCorrNormed is normalized cross-correlation (OpenCV TM_CCORR_NORMED).
	CCorrNormed Method = iota
	// CCoeffNormed is the zero-mean variant (OpenCV TM_CCOEFF_NORMED).
	CCoeffNormed
)

func (m Method) templateMatchMode() gocv.TemplateMatchMode {
	if m == CCoeffNormed {
		return gocv.TmCcoeffNormed
	}
	return gocv.TmCcorrNormed
}

func (m Method) String() string {
	switch m {
	case CCorrNormed:
		return "ccorr_normed"
	case CCoeffNormed:
		return "ccoeff_normed"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod converts a method name as used in job files.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "ccorr_normed":
		return CCorrNormed, nil
	case "ccoeff_normed":
		return CCoeffNormed, nil
	default:
		return 0, invalidInput("unknown correlation method %q", s)
	}
}

// Timing breaks down where a match spent its time. Total is wall time.
// The stage durations are summed over every angle; with Options.Parallel
// the angles overlap, so the stages may add up to more than Total.
type Timing struct {
	Total     time.Duration
	Resample  time.Duration // search region and unrotated template remaps
	Rotate    time.Duration // rotate+crop+rescale warps of the template
	Correlate time.Duration // MatchTemplate and peak location
}

// Add accumulates other into t.
func (t *Timing) Add(other Timing) {
	t.Total += other.Total
	t.Resample += other.Resample
	t.Rotate += other.Rotate
	t.Correlate += other.Correlate
}

// MatchResult is the best estimate of where the template's reference point
// lies in the search image.
type MatchResult struct {
	X        float64 // reference point in search image coordinates
	Y        float64
	Rotation float64 // degrees, counter-clockwise on screen
	Score    float64 // correlation at the reported location
	Timing   Timing
	Levels   int // pyramid levels run; 1 for MatchLevel
}

// Point returns the matched position.
func (r MatchResult) Point() geometry.Point2D {
	return geometry.Pt(r.X, r.Y)
}

func (r MatchResult) String() string {
	return fmt.Sprintf("(%.3f, %.3f) rot=%.3f° score=%.4f levels=%d %v",
		r.X, r.Y, r.Rotation, r.Score, r.Levels, r.Timing.Total)
}

// Level describes one pyramid level after it ran.
type Level struct {
	Index     int
	Window    Window
	Precision Precision
	Result    MatchResult
}

// Options tunes the matcher. The zero value is usable.
type Options struct {
	Method Method

	// InitialPrecision overrides the first pyramid level's sampling step.
	// Zero fields fall back to the template-derived defaults.
	InitialPrecision Precision

	// MinCanonical and MaxCanonical bound the side, in working pixels, of
	// the rescaled template. Zero means the defaults.
	MinCanonical int
	MaxCanonical int

	// Parallel evaluates the candidate angles of a level concurrently.
	Parallel bool

	// Logger receives debug and warning events. Nil discards them.
	Logger *slog.Logger

	// OnLevel, if set, is called after every pyramid level.
	OnLevel func(Level)
}

const (
	defaultMinCanonical = 8
	defaultMaxCanonical = 256
	maxPyramidLevels    = 64
)

func (o Options) withDefaults() Options {
	if o.MinCanonical <= 0 {
		o.MinCanonical = defaultMinCanonical
	}
	if o.MaxCanonical <= 0 {
		o.MaxCanonical = defaultMaxCanonical
	}
	if o.MaxCanonical < o.MinCanonical {
		o.MaxCanonical = o.MinCanonical
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}
