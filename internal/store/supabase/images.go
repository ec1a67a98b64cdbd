package supabase

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	sc "github.com/supabase-community/storage-go"
	"github.com/xbanchon/image-variant-service/internal/store"
)

const (
	contentType  = "image/jpeg"
	cacheControl = "public, max-age=604800, immutable"
)

// ImageBucket holds mu around every client call. The storage client keeps
// per-call headers in one shared map.
type ImageBucket struct {
	bucketID string

	mu sync.Mutex
	sc *sc.Client
}

// Init creates the bucket unless it already exists.
func (b *ImageBucket) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.sc.GetBucket(b.bucketID); err == nil {
		return nil
	}

	_, err := b.sc.CreateBucket(b.bucketID, sc.BucketOptions{
		Public:           false,
		AllowedMimeTypes: []string{contentType},
	})
	if err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("%w: create bucket %s: %w", store.ErrTransport, b.bucketID, err)
	}

	return nil
}

func (b *ImageBucket) Get(ctx context.Context, id store.ImageID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	buf, err := b.sc.DownloadFile(b.bucketID, store.ObjectKey(id))
	b.mu.Unlock()
	if err != nil {
		if isNotFound(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: download %s: %w", store.ErrTransport, store.ObjectKey(id), err)
	}

	if len(buf) == 0 {
		return nil, store.ErrNotFound
	}

	return buf, nil
}

func (b *ImageBucket) Put(ctx context.Context, id store.ImageID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ct := contentType
	cc := cacheControl
	upsert := true

	b.mu.Lock()
	_, err := b.sc.UploadFile(b.bucketID, store.ObjectKey(id), bytes.NewReader(data), sc.FileOptions{
		ContentType:  &ct,
		CacheControl: &cc,
		Upsert:       &upsert,
	})
	b.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: upload %s: %w", store.ErrTransport, store.ObjectKey(id), err)
	}

	return nil
}

// The storage API reports failures as JSON bodies, so classification is done
// on the message text.
func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "404")
}

func isAlreadyExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate")
}
