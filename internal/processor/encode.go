package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

const Quality = 80

// EncodeJPEG encodes img at Quality and embeds profile when it is non-empty.
func EncodeJPEG(img image.Image, profile []byte) ([]byte, error) {
	buf := new(bytes.Buffer)

	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	if len(profile) == 0 {
		return buf.Bytes(), nil
	}

	out, err := embedICC(buf.Bytes(), profile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	return out, nil
}
