package supabase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xbanchon/image-variant-service/internal/store"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound bool
		exists   bool
	}{
		{name: "object missing", err: errors.New(`{"statusCode":"404","error":"not_found","message":"Object not found"}`), notFound: true},
		{name: "bucket exists", err: errors.New("The resource already exists"), exists: true},
		{name: "duplicate", err: errors.New(`{"error":"Duplicate","message":"duplicate key"}`), exists: true},
		{name: "network", err: errors.New("dial tcp: connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, isNotFound(tt.err))
			assert.Equal(t, tt.exists, isAlreadyExists(tt.err))
		})
	}
}

func TestCancelledContext(t *testing.T) {
	b := NewSupabaseStorage(nil, "")
	assert.Equal(t, DefaultBucket, b.bucketID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	id := store.ImageID{Image: 1, Variant: 2}
	assert.ErrorIs(t, b.Init(ctx), context.Canceled)
	assert.ErrorIs(t, b.Put(ctx, id, []byte{1}), context.Canceled)
	_, err := b.Get(ctx, id)
	assert.ErrorIs(t, err, context.Canceled)
}
