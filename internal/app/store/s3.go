package store

import (
	"context"
	"errors"
	"fmt"

	"relaychat/internal/app/storage"
	"relaychat/internal/app/user"
)

// S3 keeps the user table as one JSON object in an object store.
type S3 struct {
	objects storage.ObjectStore
	key     string
}

// NewS3 returns an S3 store writing the table under key.
func NewS3(objects storage.ObjectStore, key string) *S3 {
	return &S3{objects: objects, key: key}
}

// Load fetches the table. A missing object is an empty table.
func (s *S3) Load(ctx context.Context) ([]user.Record, error) {
	data, err := s.objects.GetObject(ctx, s.key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user table: %w", err)
	}
	return decodeRecords(data)
}

// Save uploads the table, replacing the previous object.
func (s *S3) Save(ctx context.Context, records []user.Record) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	return s.objects.PutObject(ctx, s.key, data, "application/json")
}
