package match

import (
	"image"
	"runtime"
	"sync"
	"unsafe"

	"gocv.io/x/gocv"
)

// Image is a read-only view over a CV_32F matrix. The matcher never writes
// to it, so one Image may be shared by any number of concurrent matches.
type Image struct {
	mat gocv.Mat
}

// NewImage copies m into a new CV_32F Image with the same channel count.
func NewImage(m gocv.Mat) (*Image, error) {
	if m.Empty() {
		return nil, invalidInput("empty matrix")
	}
	dst := gocv.NewMat()
	m.ConvertTo(&dst, gocv.MatTypeCV32F)
	if dst.Empty() {
		dst.Close()
		return nil, searchFailure("converting %dx%d matrix to float", m.Cols(), m.Rows())
	}
	return &Image{mat: dst}, nil
}

// FromGoImage converts img to a single-channel luminance Image on a 0..255
// scale. 16-bit sources keep their full precision.
func FromGoImage(img image.Image) (*Image, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return nil, invalidInput("empty image %v", bounds)
	}

	pix := make([]float32, width*height)

	// Parallelize by horizontal stripes
	numWorkers := runtime.NumCPU()
	rowsPerWorker := (height + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		startY := w * rowsPerWorker
		endY := min(startY+rowsPerWorker, height)
		if startY >= height {
			break
		}

		wg.Add(1)
		go func(yStart, yEnd int) {
			defer wg.Done()
			for y := yStart; y < yEnd; y++ {
				row := pix[y*width : (y+1)*width]
				for x := range row {
					row[x] = luminance(img, x+bounds.Min.X, y+bounds.Min.Y)
				}
			}
		}(startY, endY)
	}
	wg.Wait()

	m, err := matFromFloats(height, width, pix)
	if err != nil {
		return nil, err
	}
	return &Image{mat: m}, nil
}

func luminance(img image.Image, x, y int) float32 {
	switch src := img.(type) {
	case *image.Gray:
		return float32(src.GrayAt(x, y).Y)
	case *image.Gray16:
		return float32(src.Gray16At(x, y).Y) / 257
	}
	r, g, b, _ := img.At(x, y).RGBA()
	return float32(0.299*float64(r)+0.587*float64(g)+0.114*float64(b)) / 257
}

// Size returns the image width and height.
func (im *Image) Size() image.Point {
	return image.Pt(im.mat.Cols(), im.mat.Rows())
}

// Channels returns the number of channels per pixel.
func (im *Image) Channels() int {
	return im.mat.Channels()
}

// Empty reports whether the image has no pixels.
func (im *Image) Empty() bool {
	return im == nil || im.mat.Empty()
}

// Mat exposes the underlying matrix. Callers must treat it as read-only.
func (im *Image) Mat() gocv.Mat {
	return im.mat
}

// Sub returns a view of r that shares pixels with im. r must lie inside
// the image. The view must be closed independently of im.
func (im *Image) Sub(r image.Rectangle) (*Image, error) {
	if !r.In(image.Rectangle{Max: im.Size()}) || r.Empty() {
		return nil, invalidInput("region %v outside %v image", r, im.Size())
	}
	return &Image{mat: im.mat.Region(r)}, nil
}

// Close releases the matrix.
func (im *Image) Close() error {
	if im == nil {
		return nil
	}
	return im.mat.Close()
}

// matFromFloats builds a CV_32FC1 matrix that owns a copy of data.
func matFromFloats(rows, cols int, data []float32) (gocv.Mat, error) {
	if len(data) != rows*cols || len(data) == 0 {
		return gocv.NewMat(), searchFailure("matrix data has %d values for %dx%d", len(data), cols, rows)
	}
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
	ref, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV32F, raw)
	if err != nil {
		return gocv.NewMat(), searchFailure("building %dx%d matrix: %v", cols, rows, err)
	}
	// NewMatFromBytes does not copy; clone so the result does not alias Go memory.
	m := ref.Clone()
	ref.Close()
	runtime.KeepAlive(data)
	return m, nil
}
