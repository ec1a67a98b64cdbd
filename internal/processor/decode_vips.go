//go:build vips

package processor

import (
	"errors"

	"github.com/h2non/bimg"
)

// With libvips available, HEIF, AVIF, JPEG 2000 and the like are converted to
// PNG before decoding. PNG output keeps the embedded ICC profile.
func init() {
	transcode = func(buf []byte) ([]byte, error) {
		if !bimg.IsTypeNameSupported(bimg.DetermineImageTypeName(buf)) {
			return nil, errors.New("unsupported by libvips")
		}
		return bimg.NewImage(buf).Convert(bimg.PNG)
	}
}
