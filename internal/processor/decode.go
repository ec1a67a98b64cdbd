package processor

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ImageTypes = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/tiff": "tiff",
	"image/bmp":  "bmp",
}

// DefaultMaxAlloc bounds the decoded bitmap of a single upload.
const DefaultMaxAlloc int64 = 512 << 20

// transcode, when set, turns formats Go cannot decode into PNG.
var transcode func(buf []byte) ([]byte, error)

// Decode decodes buf with DefaultMaxAlloc as the bitmap limit.
func Decode(buf []byte) (*Source, error) {
	return DecodeWithLimit(buf, DefaultMaxAlloc)
}

// DecodeWithLimit rejects images whose declared dimensions would need more
// than maxAlloc bytes as RGBA before decoding any pixel data.
func DecodeWithLimit(buf []byte, maxAlloc int64) (*Source, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	mtype := mimetype.Detect(buf)
	format, ok := ImageTypes[mtype.String()]
	if !ok {
		if transcode == nil {
			return nil, fmt.Errorf("%w: unsupported format %s", ErrDecode, mtype.String())
		}

		converted, err := transcode(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: transcode %s: %w", ErrDecode, mtype.String(), err)
		}
		buf, format = converted, "png"
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, format, err)
	}
	if need := int64(cfg.Width) * int64(cfg.Height) * 4; need > maxAlloc {
		return nil, fmt.Errorf("%w: %dx%d needs %d bytes, limit %d", ErrDecode, cfg.Width, cfg.Height, need, maxAlloc)
	}

	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, format, err)
	}

	profile, err := extractICC(format, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: color profile: %w", ErrDecode, err)
	}

	return &Source{Image: img, Profile: profile, Format: format}, nil
}
