// Package imagesvc ties the ingestion pipeline, the in-process variant cache,
// the metadata store and the durable object store together.
package imagesvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/xbanchon/image-variant-service/internal/imagecache"
	"github.com/xbanchon/image-variant-service/internal/processor"
	"github.com/xbanchon/image-variant-service/internal/store"
	"go.uber.org/zap"
)

var ErrMetadata = errors.New("image metadata could not be stored")

type Processor interface {
	Process(buf []byte) (*processor.Result, error)
}

// Metadata is the slice of the metadata store the service needs.
type Metadata interface {
	Create(ctx context.Context, avgColor string, dims []store.Dimensions) ([]store.ImageID, error)
	GetByID(ctx context.Context, imageID int64) (*store.Image, error)
}

// Objects is the durable blob store.
type Objects interface {
	Get(ctx context.Context, id store.ImageID) ([]byte, error)
	Put(ctx context.Context, id store.ImageID, data []byte) error
}

type Service struct {
	processor Processor
	metadata  Metadata
	objects   Objects
	cache     *imagecache.Cache
	tasks     imagecache.Scheduler
	logger    *zap.SugaredLogger
}

func New(
	proc Processor,
	metadata Metadata,
	objects Objects,
	cache *imagecache.Cache,
	tasks imagecache.Scheduler,
	logger *zap.SugaredLogger,
) *Service {
	return &Service{
		processor: proc,
		metadata:  metadata,
		objects:   objects,
		cache:     cache,
		tasks:     tasks,
		logger:    logger,
	}
}

// Upload turns buf into the variant ladder, records its metadata and returns
// the id of the largest variant. Cache priming and durable writes happen in
// the background after the id is allocated; their failures are only logged.
//
// Errors wrap processor.ErrDecode, processor.ErrEncode or ErrMetadata.
func (s *Service) Upload(ctx context.Context, buf []byte) (store.ImageID, error) {
	res, err := s.processor.Process(buf)
	if err != nil {
		return store.ImageID{}, err
	}

	dims := make([]store.Dimensions, len(res.Variants))
	for i, v := range res.Variants {
		dims[i] = store.Dimensions{Width: v.Width, Height: v.Height}
	}

	ids, err := s.metadata.Create(ctx, res.AvgColor, dims)
	if err != nil {
		return store.ImageID{}, fmt.Errorf("%w: %w", ErrMetadata, err)
	}
	if len(ids) != len(res.Variants) {
		return store.ImageID{}, fmt.Errorf("%w: got %d ids for %d variants", ErrMetadata, len(ids), len(res.Variants))
	}

	largestID, largest := ids[len(ids)-1], res.Largest()

	s.logger.Infow("image uploaded",
		"image_id", largestID.Image,
		"avg_color", res.AvgColor,
		"width", largest.Width,
		"height", largest.Height,
	)

	s.prime(largestID, largest.Data)

	for i := range ids {
		id, data := ids[i], res.Variants[i].Data
		s.tasks.Go("imagesvc.write-back", func(ctx context.Context) error {
			if err := s.objects.Put(ctx, id, data); err != nil {
				return fmt.Errorf("put %s: %w", id, err)
			}
			return nil
		})
	}

	return largestID, nil
}

// Get returns the bytes of one variant. Cache misses are served from the
// durable store and copied into the cache in the background. Any durable
// store failure is reported as store.ErrNotFound.
func (s *Service) Get(ctx context.Context, id store.ImageID) ([]byte, error) {
	if data, ok := s.cache.Get(id); ok {
		return data, nil
	}

	data, err := s.objects.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warnw("image get error", "id", id.String(), "error", err)
		}
		return nil, store.ErrNotFound
	}

	s.prime(id, data)

	return data, nil
}

// Describe returns the metadata record of an image.
func (s *Service) Describe(ctx context.Context, imageID int64) (*store.Image, error) {
	return s.metadata.GetByID(ctx, imageID)
}

func (s *Service) prime(id store.ImageID, data []byte) {
	if !s.cache.Fits(len(data)) {
		s.logger.Infow("image too large for cache", "id", id.String(), "bytes", len(data))
		return
	}

	s.tasks.Go("imagecache.put", func(ctx context.Context) error {
		return s.cache.Put(id, data)
	})
}
