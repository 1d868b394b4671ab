package object

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidKey is returned for keys escaping the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// Store reads and writes the template assets by key.
type Store interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, contentType string, r io.Reader) (int64, error)
}

// ReadAll loads the object stored under key.
func ReadAll(ctx context.Context, store Store, key string) ([]byte, error) {
	rc, err := store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}
