package local

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cv-mapper/internal/shared/storage/object"
)

func TestPutThenReadAll(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	n, err := store.Put(ctx, "templates/cv.docx", "application/octet-stream", strings.NewReader("docx bytes"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if n != int64(len("docx bytes")) {
		t.Fatalf("unexpected size %d", n)
	}

	data, err := object.ReadAll(ctx, store, "templates/cv.docx")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "docx bytes" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	for _, key := range []string{"../secret", "/etc/passwd", "", "a/../../b"} {
		if _, err := store.Open(context.Background(), key); !errors.Is(err, object.ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestReadAllMissingKey(t *testing.T) {
	store := New(t.TempDir())
	if _, err := object.ReadAll(context.Background(), store, "img.png"); err == nil {
		t.Fatalf("expected error for missing asset")
	}
}
