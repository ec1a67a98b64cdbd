// Package minio stores encoded variants in a MinIO/S3-compatible bucket.
package minio

import (
	"fmt"

	"github.com/minio/minio-go/v7"
)

// Config holds object store connection settings.
type Config struct {
	// Endpoint is the S3 server address (e.g., "localhost:9000")
	Endpoint string

	// Bucket is the bucket holding variant objects
	Bucket string

	// AccessKey is the access key ID for authentication
	AccessKey string

	// SecretKey is the secret access key for authentication
	SecretKey string

	// Region is used when the bucket has to be created
	Region string

	// UseSSL enables HTTPS connections
	UseSSL bool

	// Client is an optional pre-configured MinIO client
	// If provided, Endpoint/AccessKey/SecretKey are ignored
	Client *minio.Client
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}

	if c.Client != nil {
		return nil
	}

	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when client is not provided")
	}
	if c.AccessKey == "" {
		return fmt.Errorf("access key is required when client is not provided")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret key is required when client is not provided")
	}

	return nil
}
