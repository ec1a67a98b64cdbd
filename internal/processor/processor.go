package processor

import (
	"errors"
	"fmt"
	"image"
)

var (
	ErrDecode = errors.New("unable to decode image")
	ErrEncode = errors.New("unable to encode image")
)

// Sizes are the long-edge targets of the variant ladder, smallest first.
var Sizes = [4]int{256, 512, 2048, 3000}

// Encoded is one resized, JPEG-encoded variant.
type Encoded struct {
	Width  int
	Height int
	Data   []byte
}

type Result struct {
	AvgColor string
	Variants []Encoded
}

// Largest returns the last, biggest variant of the ladder.
func (r *Result) Largest() Encoded {
	return r.Variants[len(r.Variants)-1]
}

type ImageProcessor struct {
	sizes    []int
	maxAlloc int64
}

type Option func(*ImageProcessor)

// WithMaxAlloc caps the decoded bitmap size in bytes. Non-positive values
// keep DefaultMaxAlloc.
func WithMaxAlloc(n int64) Option {
	return func(p *ImageProcessor) {
		if n > 0 {
			p.maxAlloc = n
		}
	}
}

func NewImageProcessor(opts ...Option) *ImageProcessor {
	p := &ImageProcessor{sizes: Sizes[:], maxAlloc: DefaultMaxAlloc}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process decodes buf and produces the full variant ladder plus the average
// color. Every variant is resized from the decoded source, never from a
// previous rung.
func (p *ImageProcessor) Process(buf []byte) (*Result, error) {
	src, err := DecodeWithLimit(buf, p.maxAlloc)
	if err != nil {
		return nil, err
	}

	res := &Result{
		AvgColor: AverageColor(src.Image),
		Variants: make([]Encoded, 0, len(p.sizes)),
	}

	for _, size := range p.sizes {
		thumb := Thumbnail(src.Image, size)

		data, err := EncodeJPEG(thumb, src.Profile)
		if err != nil {
			return nil, fmt.Errorf("variant %d: %w", size, err)
		}

		res.Variants = append(res.Variants, Encoded{
			Width:  thumb.Bounds().Dx(),
			Height: thumb.Bounds().Dy(),
			Data:   data,
		})
	}

	return res, nil
}

// Source is a decoded upload with its optional embedded color profile.
type Source struct {
	Image   image.Image
	Profile []byte
	Format  string
}
