package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/xbanchon/image-variant-service/internal/store"
)

const (
	contentType  = "image/jpeg"
	cacheControl = "public, max-age=604800, immutable"
)

// Bucket implements store.Objects on top of a MinIO client.
type Bucket struct {
	client *minio.Client
	bucket string
	region string
}

// New creates a bucket-backed store. It does not touch the network; call
// Init before use.
func New(cfg Config) (*Bucket, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
	}

	return &Bucket{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
	}, nil
}

// Init creates the bucket if it is absent. Safe to call repeatedly.
func (b *Bucket) Init(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return translate(err)
	}
	if exists {
		return nil
	}

	err = b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{Region: b.region})
	if err != nil {
		code := minio.ToErrorResponse(err).Code
		if code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
			return nil
		}
		return translate(err)
	}

	return nil
}

func (b *Bucket) Get(ctx context.Context, id store.ImageID) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, store.ObjectKey(id), minio.GetObjectOptions{})
	if err != nil {
		return nil, translate(err)
	}
	defer func() {
		_ = obj.Close()
	}()

	// GetObject is lazy; errors such as NoSuchKey surface on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translate(err)
	}

	return data, nil
}

func (b *Bucket) Put(ctx context.Context, id store.ImageID, data []byte) error {
	_, err := b.client.PutObject(
		ctx,
		b.bucket,
		store.ObjectKey(id),
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  contentType,
			CacheControl: cacheControl,
		},
	)
	if err != nil {
		return translate(err)
	}

	return nil
}

// translate maps MinIO error responses onto the store error set.
func translate(err error) error {
	if err == nil {
		return nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return store.ErrNotFound
	}

	return fmt.Errorf("%w: minio: %w", store.ErrTransport, err)
}
