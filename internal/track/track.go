// Package track follows many points from a reference frame into a later
// frame, running one pyramid match per point on a pool of workers.
package track

import (
	"context"
	"image"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"camtrack/internal/match"
	"camtrack/pkg/geometry"

	"github.com/pkg/errors"
)

// Target is a point to follow.
type Target struct {
	ID string
	// Ref is the point's position in the reference frame.
	Ref geometry.Point2D
	// Guess is the expected position in the current frame. When nil the
	// reference position is used.
	Guess *geometry.Point2D
}

func (t Target) guess() geometry.Point2D {
	if t.Guess != nil {
		return *t.Guess
	}
	return t.Ref
}

// Settings controls how each point is matched.
type Settings struct {
	// PatchSize is the template cut from the reference frame around each point.
	PatchSize image.Point
	// PreferredRef anchors every template at the same offset instead of
	// centering it on the point.
	PreferredRef *geometry.Point2D
	// SearchRadius is the translation window half size around the guess.
	SearchRadius float64
	// RotationRange is the rotation window half size, in degrees. Zero
	// disables rotation search.
	RotationRange float64
	Precision     match.Precision
	// Workers bounds the number of points matched concurrently. Zero means
	// one per CPU.
	Workers int
	Match   match.Options
}

// Result is the outcome for one target. Err is set when that point could
// not be matched; other points are unaffected.
type Result struct {
	Target       Target
	Match        match.MatchResult
	Displacement geometry.Point2D // current position minus reference position
	Err          error
}

// Tracker matches targets between two frames.
type Tracker struct {
	settings Settings
	logger   *slog.Logger
}

// New returns a Tracker. A nil logger discards log output.
func New(settings Settings, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if settings.Workers <= 0 {
		settings.Workers = runtime.NumCPU()
	}
	return &Tracker{settings: settings, logger: logger}
}

// Track matches every target of ref inside cur. Results come back in the
// order of targets. The images are only read, so they may be shared with
// other goroutines. Cancelling ctx stops workers from starting new points;
// the points not started report ctx's error and Track returns it.
func (t *Tracker) Track(ctx context.Context, ref, cur *match.Image, targets []Target) ([]Result, error) {
	if ref.Empty() || cur.Empty() {
		return nil, errors.Wrap(match.ErrInvalidInput, "empty reference or current frame")
	}

	start := time.Now()
	results := make([]Result, len(targets))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < min(t.settings.Workers, len(targets)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					results[i] = Result{Target: targets[i], Err: err}
					continue
				}
				results[i] = t.trackOne(ref, cur, targets[i])
			}
		}()
	}
	for i := range targets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	t.logger.Info("tracked points",
		"points", len(targets),
		"failed", failed,
		"workers", t.settings.Workers,
		"elapsed", time.Since(start))

	return results, ctx.Err()
}

func (t *Tracker) trackOne(ref, cur *match.Image, target Target) Result {
	res := Result{Target: target}
	log := t.logger.With("target", target.ID)

	crop := match.SafeCrop(ref.Size(), target.Ref, t.settings.PatchSize, t.settings.PreferredRef)
	if crop.FullImage {
		log.Warn("patch larger than reference frame, using the whole frame",
			"patch", t.settings.PatchSize.String(),
			"frame", ref.Size().String())
	}
	tmpl, err := ref.Sub(crop.Rect)
	if err != nil {
		res.Err = errors.WithMessagef(err, "target %s", target.ID)
		return res
	}
	defer tmpl.Close()

	guess := target.guess()
	win := match.Window{
		X:   geometry.Around(guess.X, t.settings.SearchRadius),
		Y:   geometry.Around(guess.Y, t.settings.SearchRadius),
		Rot: geometry.Around(0, t.settings.RotationRange),
	}

	opts := t.settings.Match
	opts.Logger = log
	m, err := match.MatchPyramid(cur, tmpl, crop.Ref, win, t.settings.Precision, opts)
	if err != nil {
		log.Warn("match failed", "err", err)
		res.Err = errors.WithMessagef(err, "target %s", target.ID)
		return res
	}

	res.Match = m
	res.Displacement = m.Point().Sub(target.Ref)
	log.Debug("matched", "result", m.String())
	return res
}
