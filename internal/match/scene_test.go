package match

import (
	"math"
	"testing"

	"camtrack/pkg/geometry"

	"github.com/stretchr/testify/require"
)

const (
	background = 200.0
	squareHalf = 25.0
	supersample = 8
)

// renderSquare draws a black square of side 2*squareHalf centered on c and
// rotated by deg degrees (counter-clockwise on screen) over a uniform
// background. Each pixel holds the area it shares with the square,
// estimated by supersampling.
func renderSquare(t *testing.T, w, h int, c geometry.Point2D, deg float64) *Image {
	t.Helper()
	toSquare := geometry.Rotation(-deg)
	pix := make([]float32, w*h)
	reach := squareHalf*math.Sqrt2 + 1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float32(background)
			if math.Abs(float64(x)-c.X) <= reach && math.Abs(float64(y)-c.Y) <= reach {
				inside := 0
				for sy := 0; sy < supersample; sy++ {
					for sx := 0; sx < supersample; sx++ {
						p := geometry.Pt(
							float64(x)-0.5+(float64(sx)+0.5)/supersample-c.X,
							float64(y)-0.5+(float64(sy)+0.5)/supersample-c.Y,
						)
						q := toSquare.Apply(p)
						if math.Abs(q.X) <= squareHalf && math.Abs(q.Y) <= squareHalf {
							inside++
						}
					}
				}
				v = float32(background * (1 - float64(inside)/(supersample*supersample)))
			}
			pix[y*w+x] = v
		}
	}
	m, err := matFromFloats(h, w, pix)
	require.NoError(t, err)
	img := &Image{mat: m}
	t.Cleanup(func() { img.Close() })
	return img
}

// squareTemplate is an 81x81 patch with the square centered on (40, 40).
func squareTemplate(t *testing.T) (*Image, geometry.Point2D) {
	return renderSquare(t, 81, 81, geometry.Pt(40, 40), 0), geometry.Pt(40, 40)
}
