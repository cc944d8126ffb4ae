/*
Package storage provides access to an S3-compatible object store.

The relay uses it to keep the user table as a single JSON object.
*/
package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by GetObject when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// ObjectStore defines the public interface for the object storage service.
type ObjectStore interface {
	// GetObject returns the full content stored under key.
	GetObject(ctx context.Context, key string) ([]byte, error)

	// PutObject replaces the content stored under key.
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// NewObjectStore is the factory function for ObjectStore.
func NewObjectStore(ctx context.Context, cfg ServiceConfig) (ObjectStore, error) {
	// Currently, only S3 compatible implementations are supported.
	return newS3Client(ctx, cfg)
}
