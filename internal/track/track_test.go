package track

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"

	"camtrack/internal/match"
	"camtrack/pkg/geometry"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var centers = []geometry.Point2D{
	geometry.Pt(50, 60),
	geometry.Pt(120, 80),
	geometry.Pt(90, 150),
}

// renderFrame draws dark 16x16 squares centered on each point over a light
// background, with anti-aliased edges.
func renderFrame(t *testing.T, pts []geometry.Point2D) *match.Image {
	t.Helper()
	const (
		w, h = 200, 200
		half = 8.0
		ss   = 4
	)
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			inside := 0
			for sy := 0; sy < ss; sy++ {
				for sx := 0; sx < ss; sx++ {
					px := float64(x) - 0.5 + (float64(sx)+0.5)/ss
					py := float64(y) - 0.5 + (float64(sy)+0.5)/ss
					for _, c := range pts {
						if math.Abs(px-c.X) <= half && math.Abs(py-c.Y) <= half {
							inside++
							break
						}
					}
				}
			}
			v := 200 * (1 - float64(inside)/(ss*ss))
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(v * 257))})
		}
	}
	m, err := match.FromGoImage(img)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func shifted(pts []geometry.Point2D, d geometry.Point2D) []geometry.Point2D {
	out := make([]geometry.Point2D, len(pts))
	for i, p := range pts {
		out[i] = geometry.Pt(p.X+d.X, p.Y+d.Y)
	}
	return out
}

func testSettings() Settings {
	return Settings{
		PatchSize:    image.Pt(41, 41),
		SearchRadius: 6,
		Precision:    match.Precision{X: 0.1, Y: 0.1, Rot: 1},
		Workers:      2,
	}
}

func targetsFor(pts []geometry.Point2D) []Target {
	ids := []string{"a", "b", "c", "d"}
	out := make([]Target, len(pts))
	for i, p := range pts {
		out[i] = Target{ID: ids[i], Ref: p}
	}
	return out
}

func TestTrack_RecoversShift(t *testing.T) {
	shift := geometry.Pt(2.5, -1.5)
	ref := renderFrame(t, centers)
	cur := renderFrame(t, shifted(centers, shift))

	results, err := New(testSettings(), nil).Track(context.Background(), ref, cur, targetsFor(centers))
	require.NoError(t, err)
	require.Len(t, results, len(centers))

	for i, r := range results {
		require.NoError(t, r.Err, "target %s", r.Target.ID)
		assert.Equal(t, centers[i], r.Target.Ref, "results keep target order")
		assert.InDelta(t, shift.X, r.Displacement.X, 0.2, "target %s", r.Target.ID)
		assert.InDelta(t, shift.Y, r.Displacement.Y, 0.2, "target %s", r.Target.ID)
		assert.Greater(t, r.Match.Score, 0.95)
	}

	s := Summarize(results)
	assert.Equal(t, 3, s.Points)
	assert.Equal(t, 0, s.Failed)
	assert.InDelta(t, math.Hypot(shift.X, shift.Y), s.MeanDisplace, 0.2)
	assert.LessOrEqual(t, s.MeanDisplace, s.MaxDisplace)
}

func TestTrack_GuessMovesWindow(t *testing.T) {
	shift := geometry.Pt(15, 10)
	ref := renderFrame(t, centers[:1])
	cur := renderFrame(t, shifted(centers[:1], shift))

	guess := geometry.Pt(centers[0].X+14, centers[0].Y+9)
	targets := []Target{{ID: "a", Ref: centers[0], Guess: &guess}}

	results, err := New(testSettings(), nil).Track(context.Background(), ref, cur, targets)
	require.NoError(t, err)
	require.NoError(t, results[0].Err)
	assert.InDelta(t, shift.X, results[0].Displacement.X, 0.2)
	assert.InDelta(t, shift.Y, results[0].Displacement.Y, 0.2)
}

func TestTrack_NearFrameBorder(t *testing.T) {
	// The square sits 4 px from the left edge, so the patch is clamped
	// against the frame and the search runs up to the border.
	pts := []geometry.Point2D{geometry.Pt(12, 100)}
	shift := geometry.Pt(-2.5, 1.5)
	ref := renderFrame(t, pts)
	cur := renderFrame(t, shifted(pts, shift))

	results, err := New(testSettings(), nil).Track(context.Background(), ref, cur, targetsFor(pts))
	require.NoError(t, err)
	require.NoError(t, results[0].Err)
	assert.InDelta(t, shift.X, results[0].Displacement.X, 0.2)
	assert.InDelta(t, shift.Y, results[0].Displacement.Y, 0.2)
}

func TestTrack_IsolatesFailures(t *testing.T) {
	// The first point lies outside the reference frame.
	pts := append([]geometry.Point2D{geometry.Pt(-30, 50)}, centers...)
	ref := renderFrame(t, centers)
	cur := renderFrame(t, centers)

	results, err := New(testSettings(), nil).Track(context.Background(), ref, cur, targetsFor(pts))
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.True(t, errors.Is(results[0].Err, match.ErrInvalidInput), "got %v", results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "target a")
	for _, r := range results[1:] {
		assert.NoError(t, r.Err)
	}

	s := Summarize(results)
	assert.Equal(t, 1, s.Failed)
	assert.InDelta(t, 0, s.MeanDisplace, 0.2)
}

func TestTrack_Cancelled(t *testing.T) {
	ref := renderFrame(t, centers)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := New(testSettings(), nil).Track(ctx, ref, ref, targetsFor(centers))
	assert.True(t, errors.Is(err, context.Canceled))
	for _, r := range results {
		assert.True(t, errors.Is(r.Err, context.Canceled))
	}
}

func TestTrack_EmptyFrame(t *testing.T) {
	ref := renderFrame(t, centers)
	_, err := New(testSettings(), nil).Track(context.Background(), ref, nil, targetsFor(centers))
	assert.True(t, errors.Is(err, match.ErrInvalidInput))
}

func TestSummarize_AllFailed(t *testing.T) {
	s := Summarize([]Result{{Err: errors.New("x")}, {Err: errors.New("y")}})
	assert.Equal(t, Summary{Points: 2, Failed: 2}, s)
}
