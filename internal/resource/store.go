// Package resource persists the raw inputs and parser outputs of documents
// ingested into the pipeline. Records are keyed by content hash, so storing
// unchanged content is an idempotent overwrite of the same key.
package resource

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"ragstore/internal/config"
	"ragstore/internal/domain"
	"ragstore/internal/domain/models"
	"ragstore/internal/domain/repositories"
	"ragstore/internal/hashid"
	"ragstore/internal/parser"
)

// Storage namespaces, one collection per entity class
const (
	nsFileResource   = "file_resource"
	nsParsedContent  = "parsed_content_list"
	nsParsedImages   = "parsed_images"
	nsParsedMarkdown = "parsed_markdown"
)

// Collection names the audit API and lookup helpers accept
const (
	CollectionDocuments = "documents"
	CollectionContent   = "content"
	CollectionImages    = "images"
	CollectionMarkdown  = "markdown"
)

// Store owns the four resource collections. Resource management is opt-in:
// when the configuration flag is off, every operation (including
// initialize and finalize) logs a warning and returns nil so the pipeline
// runs with resource tracking disabled at zero cost.
type Store struct {
	cfg     *config.Config
	factory repositories.StorageFactory
	logger  *slog.Logger
	reader  parser.MineruReader

	fileResources  repositories.KVStorage
	parsedContent  repositories.KVStorage
	parsedImages   repositories.KVStorage
	parsedMarkdown repositories.KVStorage
}

// NewStore creates a resource store. InitializeStorage must be called
// before any store operation.
func NewStore(cfg *config.Config, factory repositories.StorageFactory, logger *slog.Logger) *Store {
	return &Store{
		cfg:     cfg,
		factory: factory,
		logger:  logger,
	}
}

func (s *Store) enabled() bool {
	return s.cfg.ResourceManagement
}

func (s *Store) warnDisabled(op string) {
	s.logger.Warn("resource management is not enabled", "operation", op)
}

// InitializeStorage opens all four collections and initializes them
// concurrently; it returns once every one has completed. Their
// initialization is independent, so no ordering is imposed.
func (s *Store) InitializeStorage(ctx context.Context) error {
	if !s.enabled() {
		s.warnDisabled("initialize")
		return nil
	}

	s.fileResources = s.factory.OpenKV(nsFileResource)
	s.parsedContent = s.factory.OpenKV(nsParsedContent)
	s.parsedImages = s.factory.OpenKV(nsParsedImages)
	s.parsedMarkdown = s.factory.OpenKV(nsParsedMarkdown)

	g, ctx := errgroup.WithContext(ctx)
	for _, storage := range s.collections() {
		g.Go(func() error {
			return storage.Initialize(ctx)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("initialize resource storage: %w", err)
	}

	s.logger.Info("resource storage initialized")
	return nil
}

// FinalizeStorage releases all four collections. Callers must ensure no
// store operation is in flight.
func (s *Store) FinalizeStorage(ctx context.Context) error {
	if !s.enabled() {
		s.warnDisabled("finalize")
		return nil
	}

	for _, storage := range s.collections() {
		if storage == nil {
			continue
		}
		if err := storage.Finalize(ctx); err != nil {
			return fmt.Errorf("finalize resource storage: %w", err)
		}
	}
	return nil
}

// Ready reports true only if every one of the four collections has a live
// handle. Always false when resource management is disabled.
func (s *Store) Ready() bool {
	if !s.enabled() {
		return false
	}
	for _, storage := range s.collections() {
		if storage == nil || !storage.Ready() {
			return false
		}
	}
	return true
}

func (s *Store) collections() []repositories.KVStorage {
	return []repositories.KVStorage{
		s.fileResources,
		s.parsedContent,
		s.parsedImages,
		s.parsedMarkdown,
	}
}

// StoreInputFile records the raw input file: one file read, one record
// write, keyed by the hash of the file content.
func (s *Store) StoreInputFile(ctx context.Context, filePath string) error {
	if !s.enabled() {
		s.warnDisabled("store input file")
		return nil
	}

	content, err := readFileContent(filePath)
	if err != nil {
		return err
	}

	base := filepath.Base(filePath)
	ext := filepath.Ext(base)
	record := &models.FileResource{
		FileName:    strings.TrimSuffix(base, ext),
		FileType:    strings.TrimPrefix(ext, "."),
		FilePath:    filePath,
		FileContent: content,
	}
	record.ID = hashid.Compute(content, hashid.TagDocument)

	if err := s.fileResources.Upsert(ctx, map[string]repositories.Record{record.ID: record.Record()}); err != nil {
		return fmt.Errorf("store input file: %w", err)
	}

	s.logger.Debug("stored input file", "doc_id", record.ID, "file_path", filePath)
	return nil
}

// StoreParsedContentList records one entry per element of the parser's
// structured content list, all in one batched upsert. The source file is
// re-read to compute the doc_id back-reference.
func (s *Store) StoreParsedContentList(ctx context.Context, inputFilePath string, contentList []any) error {
	if !s.enabled() {
		s.warnDisabled("store parsed content list")
		return nil
	}

	docID, err := s.docID(inputFilePath)
	if err != nil {
		return err
	}

	records := make(map[string]repositories.Record, len(contentList))
	for _, content := range contentList {
		item := &models.ParsedContent{
			Content:  content,
			FilePath: inputFilePath,
			DocID:    docID,
		}
		item.ID, err = hashid.ComputeJSON(content, hashid.TagParsedContent)
		if err != nil {
			return fmt.Errorf("store parsed content list: %w", err)
		}
		records[item.ID] = item.Record()
	}

	if err := s.parsedContent.Upsert(ctx, records); err != nil {
		return fmt.Errorf("store parsed content list: %w", err)
	}

	s.logger.Debug("stored parsed content list", "doc_id", docID, "items", len(records))
	return nil
}

// StoreParsedImages records every regular file directly inside imagesDir,
// base64-encoded, in one batched upsert. A missing directory is a normal
// outcome (the document had no images), logged and skipped.
func (s *Store) StoreParsedImages(ctx context.Context, inputFilePath, imagesDir string) error {
	if !s.enabled() {
		s.warnDisabled("store parsed images")
		return nil
	}

	if _, err := os.Stat(imagesDir); os.IsNotExist(err) {
		s.logger.Warn("parsed images directory does not exist", "images_dir", imagesDir)
		return nil
	}

	docID, err := s.docID(inputFilePath)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		return fmt.Errorf("read images directory: %w", err)
	}

	records := make(map[string]repositories.Record)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		imagePath := filepath.Join(imagesDir, entry.Name())
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("read image %s: %w", imagePath, err)
		}

		image := &models.ParsedImage{
			ImagePath:    imagePath,
			ImageContent: base64.StdEncoding.EncodeToString(data),
			FilePath:     inputFilePath,
			DocID:        docID,
		}
		image.ID = hashid.Compute(image.ImageContent, hashid.TagParsedImage)
		records[image.ID] = image.Record()
	}

	if err := s.parsedImages.Upsert(ctx, records); err != nil {
		return fmt.Errorf("store parsed images: %w", err)
	}

	s.logger.Debug("stored parsed images", "doc_id", docID, "images", len(records))
	return nil
}

// StoreParsedMarkdown records the full markdown rendering of one document
func (s *Store) StoreParsedMarkdown(ctx context.Context, inputFilePath, markdownContent string) error {
	if !s.enabled() {
		s.warnDisabled("store parsed markdown")
		return nil
	}

	docID, err := s.docID(inputFilePath)
	if err != nil {
		return err
	}

	record := &models.ParsedMarkdown{
		MarkdownContent: markdownContent,
		FilePath:        inputFilePath,
		DocID:           docID,
	}
	record.ID = hashid.Compute(markdownContent, hashid.TagParsedMarkdown)

	if err := s.parsedMarkdown.Upsert(ctx, map[string]repositories.Record{record.ID: record.Record()}); err != nil {
		return fmt.Errorf("store parsed markdown: %w", err)
	}

	s.logger.Debug("stored parsed markdown", "doc_id", docID)
	return nil
}

// GetResource looks up one record by collection name and content-addressed
// id. Serves the audit API.
func (s *Store) GetResource(ctx context.Context, collection, id string) (repositories.Record, error) {
	storage, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	return storage.GetByID(ctx, id)
}

// Counts returns the record count of every collection, keyed by the
// collection names the audit API uses
func (s *Store) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, 4)
	for _, name := range []string{CollectionDocuments, CollectionContent, CollectionImages, CollectionMarkdown} {
		storage, err := s.collection(name)
		if err != nil {
			return nil, err
		}
		count, err := storage.Count(ctx)
		if err != nil {
			return nil, err
		}
		counts[name] = count
	}
	return counts, nil
}

func (s *Store) collection(name string) (repositories.KVStorage, error) {
	var storage repositories.KVStorage
	switch name {
	case CollectionDocuments:
		storage = s.fileResources
	case CollectionContent:
		storage = s.parsedContent
	case CollectionImages:
		storage = s.parsedImages
	case CollectionMarkdown:
		storage = s.parsedMarkdown
	default:
		return nil, fmt.Errorf("collection %q: %w", name, domain.ErrUnknownCollection)
	}
	if storage == nil {
		return nil, fmt.Errorf("collection %q: %w", name, domain.ErrNotInitialized)
	}
	return storage, nil
}

// docID recomputes the document identifier from the source file's current
// on-disk content. There is no stored foreign key: staleness between parse
// time and store time is the caller's concern.
func (s *Store) docID(inputFilePath string) (string, error) {
	content, err := readFileContent(inputFilePath)
	if err != nil {
		return "", err
	}
	return hashid.Compute(content, hashid.TagDocument), nil
}

func readFileContent(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file %s: %w", path, err)
	}
	return string(data), nil
}
