package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xbanchon/image-variant-service/internal/store"
)

type ImageStore struct {
	rdb *redis.Client
}

const ImageExpTime = 15 * time.Minute

func cacheKey(imageID int64) string {
	return fmt.Sprintf("image-%d", imageID)
}

// Get returns nil without error on a cache miss.
func (s *ImageStore) Get(ctx context.Context, imageID int64) (*store.Image, error) {
	data, err := s.rdb.Get(ctx, cacheKey(imageID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, err
	}

	var image store.Image
	if err := json.Unmarshal(data, &image); err != nil {
		return nil, err
	}

	return &image, nil
}

func (s *ImageStore) Set(ctx context.Context, image *store.Image) error {
	data, err := json.Marshal(image)
	if err != nil {
		return err
	}

	return s.rdb.SetEx(ctx, cacheKey(image.ID), data, ImageExpTime).Err()
}

func (s *ImageStore) Delete(ctx context.Context, imageID int64) {
	s.rdb.Del(ctx, cacheKey(imageID))
}
