package match

import (
	"image"

	"gocv.io/x/gocv"
)

// parabolicOffset fits a parabola through a peak value c and its two
// neighbours l and r and returns the vertex offset from the peak, in
// samples. dl and dr are the drops from the peak to each neighbour.
func parabolicOffset(l, c, r float64) float64 {
	dl, dr := c-l, c-r
	if dl+dr <= 0 {
		return 0
	}
	return 0.5 * (dl - dr) / (dl + dr)
}

// refinePeak returns the sub-sample offsets of a correlation maximum.
// Each axis is refined independently, and only when the peak is not on
// the border of the correlation surface along that axis.
func refinePeak(corr gocv.Mat, peak image.Point) (dx, dy float64) {
	at := func(x, y int) float64 {
		return float64(corr.GetFloatAt(y, x))
	}
	c := at(peak.X, peak.Y)
	if peak.X > 0 && peak.X < corr.Cols()-1 {
		dx = parabolicOffset(at(peak.X-1, peak.Y), c, at(peak.X+1, peak.Y))
	}
	if peak.Y > 0 && peak.Y < corr.Rows()-1 {
		dy = parabolicOffset(at(peak.X, peak.Y-1), c, at(peak.X, peak.Y+1))
	}
	return dx, dy
}
