package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeIntersect(t *testing.T) {
	tests := []struct {
		name     string
		r, other Range
		want     Range
	}{
		{"inside", Span(2, 4), Span(0, 10), Span(2, 4)},
		{"overlap low", Span(-5, 3), Span(0, 10), Span(0, 3)},
		{"overlap high", Span(8, 12), Span(0, 10), Span(8, 10)},
		{"disjoint above", Span(12, 14), Span(0, 10), Fixed(10)},
		{"disjoint below", Span(-4, -2), Span(0, 10), Fixed(0)},
		{"fixed", Fixed(5), Span(0, 10), Fixed(5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.r.Intersect(tt.other)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, got.Min, got.Max)
			assert.True(t, got.Min >= tt.other.Min && got.Max <= tt.other.Max)
		})
	}
}

func TestRangeContains(t *testing.T) {
	r := Span(0, 10)
	assert.True(t, r.Contains(0))
	assert.True(t, r.Contains(10))
	assert.False(t, r.Contains(-0.1))
	assert.False(t, r.Contains(math.NaN()))
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 5, Pt(1, 2).Distance(Pt(4, 6)), 1e-12)
}

func TestToMatrix(t *testing.T) {
	m := Translation(3, -2).Compose(Scale(2, 4)).ToMatrix()
	assert.Equal(t, [2][3]float64{{2, 0, 3}, {0, 4, -2}}, m)
}

func TestRangeNormalized(t *testing.T) {
	assert.Equal(t, Fixed(3), Span(3, 1).Normalized())
	assert.Equal(t, Span(1, 3), Span(1, 3).Normalized())
}

func TestRotationMatchesInverse(t *testing.T) {
	r := Rotation(30).Compose(Translation(-10, 4))
	inv, ok := r.Inverse()
	assert.True(t, ok)

	p := Pt(7.5, -2.25)
	back := inv.Apply(r.Apply(p))
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)
}

func TestRotationIsCounterClockwiseOnScreen(t *testing.T) {
	// +x axis turned by 90 degrees must point up, i.e. towards -y.
	p := Rotation(90).Apply(Pt(1, 0))
	assert.InDelta(t, 0, p.X, 1e-12)
	assert.InDelta(t, -1, p.Y, 1e-12)
}

func TestNormalizeDegrees(t *testing.T) {
	tests := map[float64]float64{
		0:    0,
		180:  -180,
		-180: -180,
		190:  -170,
		-190: 170,
		720:  0,
		359:  -1,
	}
	for in, want := range tests {
		assert.InDelta(t, want, NormalizeDegrees(in), 1e-9, "input %v", in)
	}
	assert.False(t, math.IsNaN(NormalizeDegrees(1e9)))
}
