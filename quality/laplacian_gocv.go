//go:build gocv

package quality

import (
	"image"

	"github.com/nvr-ai/go-plantdx/images"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// laplacianVariance computes the interior Laplacian variance with OpenCV. A kernel size of 1
// selects the 3x3 4-neighbour aperture, and only the interior region is measured so the
// result matches the pure Go kernel.
func laplacianVariance(g images.PixelGrid) (float64, error) {
	if err := checkKernelInput(g); err != nil {
		return 0, err
	}
	w, h := g.Width, g.Height

	src, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8U, g.Pix)
	if err != nil {
		return 0, errors.Wrap(err, "wrap grid in an OpenCV matrix")
	}
	defer src.Close()

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(src, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	interior := lap.Region(image.Rect(1, 1, w-1, h-1))
	defer interior.Close()

	mean := gocv.NewMat()
	defer mean.Close()
	stddev := gocv.NewMat()
	defer stddev.Close()
	gocv.MeanStdDev(interior, &mean, &stddev)

	sd := stddev.GetDoubleAt(0, 0)
	return sd * sd, nil
}
