package match

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

func TestParabolicOffset(t *testing.T) {
	tests := []struct {
		name    string
		l, c, r float64
		want    float64
	}{
		{"symmetric", 0.5, 1, 0.5, 0},
		{"leans right", 0.5, 1, 0.8, 0.5 * (0.5 - 0.2) / 0.7},
		{"leans left", 0.9, 1, 0.2, 0.5 * (0.1 - 0.8) / 0.9},
		{"flat", 1, 1, 1, 0},
		{"exact parabola", 1 - 1.3*1.3, 1 - 0.3*0.3, 1 - 0.7*0.7, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parabolicOffset(tt.l, tt.c, tt.r)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.LessOrEqual(t, got, 0.5)
			assert.GreaterOrEqual(t, got, -0.5)
		})
	}
}

func surface(t *testing.T, rows [][]float32) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(len(rows), len(rows[0]), gocv.MatTypeCV32F)
	for y, row := range rows {
		for x, v := range row {
			m.SetFloatAt(y, x, v)
		}
	}
	return m
}

func TestRefinePeak_Interior(t *testing.T) {
	m := surface(t, [][]float32{
		{0.1, 0.2, 0.1},
		{0.5, 1.0, 0.8},
		{0.1, 0.6, 0.1},
	})
	defer m.Close()

	dx, dy := refinePeak(m, image.Pt(1, 1))
	assert.InDelta(t, 0.5*(0.5-0.2)/0.7, dx, 1e-6)
	assert.InDelta(t, 0.5*(0.8-0.4)/1.2, dy, 1e-6)
}

func TestRefinePeak_BorderAxesUntouched(t *testing.T) {
	m := surface(t, [][]float32{
		{1.0, 0.9, 0.1},
		{0.2, 0.3, 0.1},
	})
	defer m.Close()

	dx, dy := refinePeak(m, image.Pt(0, 0))
	assert.Zero(t, dx)
	assert.Zero(t, dy)

	single := surface(t, [][]float32{{0.3, 1.0, 0.6}})
	defer single.Close()
	dx, dy = refinePeak(single, image.Pt(1, 0))
	assert.NotZero(t, dx)
	assert.Zero(t, dy)
}
