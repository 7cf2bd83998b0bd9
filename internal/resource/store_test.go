package resource

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ragstore/internal/config"
	"ragstore/internal/domain"
	"ragstore/internal/hashid"
	"ragstore/internal/repository/memory"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := &config.Config{
		ResourceManagement: true,
		Parser:             "mineru",
		ParserOutputDir:    t.TempDir(),
		ParseMethod:        "auto",
	}
	logger := slog.New(slog.DiscardHandler)
	store := NewStore(cfg, memory.NewFactory(logger), logger)
	if err := store.InitializeStorage(context.Background()); err != nil {
		t.Fatalf("InitializeStorage: %v", err)
	}
	return store
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestStoreInputFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	path := writeTempFile(t, "greeting.txt", "hello world")

	if err := store.StoreInputFile(ctx, path); err != nil {
		t.Fatalf("StoreInputFile: %v", err)
	}

	id := hashid.Compute("hello world", hashid.TagDocument)
	if !strings.HasPrefix(id, "doc_") {
		t.Fatalf("id = %q, want doc_ prefix", id)
	}

	record, err := store.GetResource(ctx, CollectionDocuments, id)
	if err != nil {
		t.Fatalf("GetResource: %v", err)
	}
	if record["file_content"] != "hello world" {
		t.Errorf("file_content = %v, want hello world", record["file_content"])
	}
	if record["file_name"] != "greeting" {
		t.Errorf("file_name = %v, want greeting", record["file_name"])
	}
	if record["file_type"] != "txt" {
		t.Errorf("file_type = %v, want txt", record["file_type"])
	}
}

func TestStoreInputFileIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	path := writeTempFile(t, "doc.txt", "unchanged content")

	if err := store.StoreInputFile(ctx, path); err != nil {
		t.Fatalf("first StoreInputFile: %v", err)
	}
	if err := store.StoreInputFile(ctx, path); err != nil {
		t.Fatalf("second StoreInputFile: %v", err)
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[CollectionDocuments] != 1 {
		t.Errorf("document count = %d, want 1 (content-addressed upsert)", counts[CollectionDocuments])
	}
}

func TestStoreInputFileMissing(t *testing.T) {
	store := newTestStore(t)

	err := store.StoreInputFile(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	if err == nil {
		t.Error("expected error for missing input file")
	}
}

func TestStoreParsedContentList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	path := writeTempFile(t, "doc.txt", "X")

	if err := store.StoreParsedContentList(ctx, path, []any{"a", "b"}); err != nil {
		t.Fatalf("StoreParsedContentList: %v", err)
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[CollectionContent] != 2 {
		t.Errorf("content count = %d, want 2", counts[CollectionContent])
	}

	wantDocID := hashid.Compute("X", hashid.TagDocument)
	for _, item := range []any{"a", "b"} {
		id, err := hashid.ComputeJSON(item, hashid.TagParsedContent)
		if err != nil {
			t.Fatalf("ComputeJSON: %v", err)
		}
		record, err := store.GetResource(ctx, CollectionContent, id)
		if err != nil {
			t.Fatalf("GetResource(%v): %v", item, err)
		}
		if record["doc_id"] != wantDocID {
			t.Errorf("doc_id = %v, want %v", record["doc_id"], wantDocID)
		}
	}
}

func TestStoreParsedImagesMissingDir(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	path := writeTempFile(t, "doc.txt", "X")

	before, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}

	missing := filepath.Join(t.TempDir(), "no-such-images")
	if err := store.StoreParsedImages(ctx, path, missing); err != nil {
		t.Fatalf("StoreParsedImages should not fail on a missing directory: %v", err)
	}

	after, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if before[CollectionImages] != after[CollectionImages] {
		t.Errorf("image count changed: %d -> %d", before[CollectionImages], after[CollectionImages])
	}
}

func TestStoreParsedImages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	path := writeTempFile(t, "doc.txt", "X")

	imagesDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(imagesDir, "fig1.png"), []byte{0x89, 0x50, 0x4e, 0x47}, 0644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	if err := os.WriteFile(filepath.Join(imagesDir, "fig2.png"), []byte("second"), 0644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	// Subdirectories are not images and must be skipped
	if err := os.MkdirAll(filepath.Join(imagesDir, "nested"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := store.StoreParsedImages(ctx, path, imagesDir); err != nil {
		t.Fatalf("StoreParsedImages: %v", err)
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[CollectionImages] != 2 {
		t.Errorf("image count = %d, want 2", counts[CollectionImages])
	}
}

func TestStoreParsedMarkdownRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	path := writeTempFile(t, "doc.txt", "X")

	markdown := "# Title\n\nbody text\n"
	if err := store.StoreParsedMarkdown(ctx, path, markdown); err != nil {
		t.Fatalf("StoreParsedMarkdown: %v", err)
	}

	id := hashid.Compute(markdown, hashid.TagParsedMarkdown)
	record, err := store.GetResource(ctx, CollectionMarkdown, id)
	if err != nil {
		t.Fatalf("GetResource: %v", err)
	}
	if record["markdown_content"] != markdown {
		t.Errorf("markdown round-trip mismatch: %q", record["markdown_content"])
	}
	if record["doc_id"] != hashid.Compute("X", hashid.TagDocument) {
		t.Errorf("doc_id = %v", record["doc_id"])
	}
}

func TestDisabledStoreNoOps(t *testing.T) {
	cfg := &config.Config{ResourceManagement: false, Parser: "mineru"}
	logger := slog.New(slog.DiscardHandler)
	store := NewStore(cfg, memory.NewFactory(logger), logger)
	ctx := context.Background()

	// Every operation returns nil without touching storage
	if err := store.InitializeStorage(ctx); err != nil {
		t.Errorf("InitializeStorage: %v", err)
	}
	if err := store.StoreInputFile(ctx, "does-not-matter.txt"); err != nil {
		t.Errorf("StoreInputFile: %v", err)
	}
	if err := store.StoreParsedContentList(ctx, "x", []any{"a"}); err != nil {
		t.Errorf("StoreParsedContentList: %v", err)
	}
	if err := store.StoreParsedImages(ctx, "x", "y"); err != nil {
		t.Errorf("StoreParsedImages: %v", err)
	}
	if err := store.StoreParsedMarkdown(ctx, "x", "md"); err != nil {
		t.Errorf("StoreParsedMarkdown: %v", err)
	}
	if err := store.FinalizeStorage(ctx); err != nil {
		t.Errorf("FinalizeStorage: %v", err)
	}
	if store.Ready() {
		t.Error("Ready() = true with resource management disabled")
	}
}

func TestReadyLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if !store.Ready() {
		t.Error("Ready() = false after InitializeStorage")
	}

	if err := store.FinalizeStorage(ctx); err != nil {
		t.Fatalf("FinalizeStorage: %v", err)
	}
	if store.Ready() {
		t.Error("Ready() = true after FinalizeStorage")
	}
}

func TestGetResourceUnknownCollection(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetResource(context.Background(), "blobs", "doc_x")
	if !errors.Is(err, domain.ErrUnknownCollection) {
		t.Errorf("error = %v, want ErrUnknownCollection", err)
	}
}
