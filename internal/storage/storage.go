// Package storage persists profile photos in an object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxPhotoBytes bounds a single profile photo upload.
const maxPhotoBytes = 8 << 20

// ErrUnsupportedType is returned for uploads that are not images.
var ErrUnsupportedType = errors.New("unsupported content type")

// ErrPhotoTooLarge is returned when an upload exceeds the size limit.
var ErrPhotoTooLarge = errors.New("photo too large")

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// PhotoStore keeps one profile photo per user in the configured bucket.
type PhotoStore struct {
	backend ObjectStorage
}

func NewPhotoStore(backend ObjectStorage) *PhotoStore {
	return &PhotoStore{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *PhotoStore) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// PutPhoto stores the user's profile photo, replacing any previous one.
func (s *PhotoStore) PutPhoto(ctx context.Context, userID string, r io.Reader, size int64, contentType string) error {
	if !strings.HasPrefix(contentType, "image/") {
		return ErrUnsupportedType
	}
	if size > maxPhotoBytes {
		return ErrPhotoTooLarge
	}
	return s.backend.Put(ctx, photoKey(userID), r, size, contentType)
}

// GetPhoto opens a reader for the user's stored profile photo.
func (s *PhotoStore) GetPhoto(ctx context.Context, userID string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, photoKey(userID))
}

// DeletePhoto removes the user's stored profile photo.
func (s *PhotoStore) DeletePhoto(ctx context.Context, userID string) error {
	return s.backend.Delete(ctx, photoKey(userID))
}

func photoKey(userID string) string {
	return fmt.Sprintf("avatars/%s", userID)
}
