package minio

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/xbanchon/image-variant-service/internal/store"
)

// setupTestMinIO creates a MinIO container and returns an uninitialized Bucket.
func setupTestMinIO(t *testing.T) *Bucket {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
	}

	minioC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start MinIO container")
	t.Cleanup(func() {
		_ = minioC.Terminate(ctx)
	})

	endpoint, err := minioC.Endpoint(ctx, "")
	require.NoError(t, err, "failed to get container endpoint")

	b, err := New(Config{
		Endpoint:  endpoint,
		Bucket:    "image-variants",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)

	return b
}

func TestIntegration_Bucket(t *testing.T) {
	b := setupTestMinIO(t)
	ctx := context.Background()

	require.NoError(t, b.Init(ctx), "first init creates the bucket")
	require.NoError(t, b.Init(ctx), "second init is a no-op")

	id := store.ImageID{Image: 3, Variant: 11}

	t.Run("missing object", func(t *testing.T) {
		_, err := b.Get(ctx, id)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		data := []byte("\xff\xd8 not really a jpeg \xff\xd9")
		require.NoError(t, b.Put(ctx, id, data))

		got, err := b.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, data, got)

		info, err := b.client.StatObject(ctx, b.bucket, store.ObjectKey(id), minio.StatObjectOptions{})
		require.NoError(t, err)
		assert.Equal(t, contentType, info.ContentType)
	})

	t.Run("put overwrites", func(t *testing.T) {
		require.NoError(t, b.Put(ctx, id, []byte("second")))

		got, err := b.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), got)
	})
}
