//go:build !gocv

package quality

import "github.com/nvr-ai/go-plantdx/images"

// laplacianVariance returns the population variance of the 4-neighbour Laplacian
// (centre -4) over the interior pixels of a single channel grid of at least 3x3.
func laplacianVariance(g images.PixelGrid) (float64, error) {
	if err := checkKernelInput(g); err != nil {
		return 0, err
	}
	w, h := g.Width, g.Height

	responses := make([]float64, 0, (w-2)*(h-2))
	var sum float64
	for y := 1; y < h-1; y++ {
		row := y * w
		for x := 1; x < w-1; x++ {
			i := row + x
			v := -4*float64(g.Pix[i]) +
				float64(g.Pix[i-1]) + float64(g.Pix[i+1]) +
				float64(g.Pix[i-w]) + float64(g.Pix[i+w])
			responses = append(responses, v)
			sum += v
		}
	}

	mean := sum / float64(len(responses))
	var acc float64
	for _, v := range responses {
		d := v - mean
		acc += d * d
	}
	return acc / float64(len(responses)), nil
}
