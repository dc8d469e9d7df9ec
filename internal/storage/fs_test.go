package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFSStorePutGet(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Put(ctx, "photos/S001.png", strings.NewReader("png-bytes"), "image/png")
	if err != nil || key != "photos/S001.png" {
		t.Fatalf("put: %q %v", key, err)
	}
	rc, err := s.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "png-bytes" {
		t.Fatalf("got %q", b)
	}
	if u, _ := s.SignedURL(ctx, key); !strings.HasPrefix(u, "file://") {
		t.Fatalf("url %q", u)
	}
}

func TestFSStoreMissingAndInvalidKeys(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFSStore(t.TempDir())
	if _, err := s.Get(ctx, "nope.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := s.Put(ctx, "../escape", strings.NewReader("x"), ""); err == nil {
		t.Fatal("traversal accepted")
	}
	if _, err := s.Put(ctx, "", strings.NewReader("x"), ""); err == nil {
		t.Fatal("empty key accepted")
	}
}
