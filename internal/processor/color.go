package processor

import (
	"fmt"
	"image"

	"github.com/disintegration/gift"
)

const colorSampleSize = 300

// AverageColor returns the placeholder color of src as six lowercase hex
// digits. The value is a mean of per-row means with integer division at
// both stages, which is not the same as a flat mean over all pixels.
func AverageColor(src image.Image) string {
	return averageRows(resize(src, colorSampleSize, gift.BoxResampling))
}

func averageRows(img *image.NRGBA) string {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return "000000"
	}

	var r, g, b uint64
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]

		var rr, rg, rb uint64
		for x := 0; x < len(row); x += 4 {
			rr += uint64(row[x])
			rg += uint64(row[x+1])
			rb += uint64(row[x+2])
		}

		r += rr / uint64(w)
		g += rg / uint64(w)
		b += rb / uint64(w)
	}

	r /= uint64(h)
	g /= uint64(h)
	b /= uint64(h)

	return fmt.Sprintf("%06x", r<<16|g<<8|b)
}
