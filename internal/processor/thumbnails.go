package processor

import (
	"image"
	"math"

	"github.com/disintegration/gift"
)

// FitDimensions scales w×h to fit inside bound×bound keeping the aspect
// ratio. Sources smaller than bound are scaled up.
func FitDimensions(w, h, bound int) (int, int) {
	ratio := math.Min(float64(bound)/float64(w), float64(bound)/float64(h))

	nw := max(int(math.Round(float64(w)*ratio)), 1)
	nh := max(int(math.Round(float64(h)*ratio)), 1)

	return nw, nh
}

// Thumbnail resamples src with a Lanczos-3 filter so its long edge is size.
func Thumbnail(src image.Image, size int) *image.NRGBA {
	return resize(src, size, gift.LanczosResampling)
}

func resize(src image.Image, bound int, resampling gift.Resampling) *image.NRGBA {
	b := src.Bounds()
	w, h := FitDimensions(b.Dx(), b.Dy(), bound)

	g := gift.New(gift.Resize(w, h, resampling))
	dst := image.NewNRGBA(g.Bounds(b))
	g.Draw(dst, src)

	return dst
}
