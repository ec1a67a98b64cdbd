package supabase

import (
	sc "github.com/supabase-community/storage-go"
)

const DefaultBucket = "image-variants"

// NewSupabaseStorage returns a durable variant store backed by bucket.
func NewSupabaseStorage(client *sc.Client, bucket string) *ImageBucket {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &ImageBucket{bucketID: bucket, sc: client}
}
