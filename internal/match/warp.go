package match

import (
	"image"
	"image/color"

	"camtrack/pkg/geometry"

	"gocv.io/x/gocv"
)

// remapScaled samples src on an axis-aligned grid: output pixel (i, j)
// reads src at (origin.X + i/scaleX, origin.Y + j/scaleY) with bicubic
// interpolation. Fractional origins are honored exactly, which a plain
// resize of an integer crop would not do.
func remapScaled(src gocv.Mat, origin geometry.Point2D, scaleX, scaleY float64, size image.Point) (gocv.Mat, error) {
	if size.X <= 0 || size.Y <= 0 {
		return gocv.NewMat(), searchFailure("remap to empty size %v", size)
	}

	xs := make([]float32, size.X*size.Y)
	ys := make([]float32, size.X*size.Y)
	for j := 0; j < size.Y; j++ {
		sy := float32(origin.Y + float64(j)/scaleY)
		row := j * size.X
		for i := 0; i < size.X; i++ {
			xs[row+i] = float32(origin.X + float64(i)/scaleX)
			ys[row+i] = sy
		}
	}

	mapX, err := matFromFloats(size.Y, size.X, xs)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer mapX.Close()
	mapY, err := matFromFloats(size.Y, size.X, ys)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer mapY.Close()

	dst := gocv.NewMat()
	gocv.Remap(src, &dst, &mapX, &mapY, gocv.InterpolationCubic, gocv.BorderReplicate, color.RGBA{})
	if dst.Empty() {
		dst.Close()
		return gocv.NewMat(), searchFailure("remap of %dx%d source produced no output", src.Cols(), src.Rows())
	}
	return dst, nil
}

// warpAffine applies a forward (source to destination) affine transform
// with bicubic interpolation, producing an image of the given size.
func warpAffine(src gocv.Mat, transform geometry.AffineTransform, size image.Point) (gocv.Mat, error) {
	transformMat := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer transformMat.Close()
	for r, row := range transform.ToMatrix() {
		for c, v := range row {
			transformMat.SetDoubleAt(r, c, v)
		}
	}

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(src, &dst, transformMat, size,
		gocv.InterpolationCubic, gocv.BorderReplicate, color.RGBA{})
	if dst.Empty() {
		dst.Close()
		return gocv.NewMat(), searchFailure("warp of %dx%d template produced no output", src.Cols(), src.Rows())
	}
	return dst, nil
}
