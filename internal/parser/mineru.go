// Package parser reads the on-disk output layout of the MinerU document
// parser. Parsing itself happens out of process; this package only
// resolves the directory convention and loads the artifacts it produces:
//
//	{outputDir}/{fileStem}/{parseMethod}/{fileStem}_content_list.json
//	{outputDir}/{fileStem}/{parseMethod}/{fileStem}.md
//	{outputDir}/{fileStem}/{parseMethod}/images/
package parser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Name is the only parser whose output layout this package understands
const Name = "mineru"

// Output holds the artifacts of one parsed document
type Output struct {
	ContentList []any  // decoded structured content list
	Markdown    string // full markdown rendering
	ImagesDir   string // directory of extracted images; may not exist
}

// MineruReader loads MinerU output artifacts from disk
type MineruReader struct{}

// OutputDir returns the directory MinerU writes artifacts to for one
// document and parse method
func (MineruReader) OutputDir(outputDir, fileStem, method string) string {
	return filepath.Join(outputDir, fileStem, method)
}

// ReadOutput loads the content list and markdown for one parsed document.
// The images directory path is resolved but not required to exist; its
// absence means the document had no extractable images.
func (r MineruReader) ReadOutput(outputDir, fileStem, method string) (*Output, error) {
	dir := r.OutputDir(outputDir, fileStem, method)

	contentListPath := filepath.Join(dir, fileStem+"_content_list.json")
	data, err := os.ReadFile(contentListPath)
	if err != nil {
		return nil, fmt.Errorf("read content list: %w", err)
	}

	var contentList []any
	if err := json.Unmarshal(data, &contentList); err != nil {
		return nil, fmt.Errorf("decode content list %s: %w", contentListPath, err)
	}

	markdownPath := filepath.Join(dir, fileStem+".md")
	markdown, err := os.ReadFile(markdownPath)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	return &Output{
		ContentList: contentList,
		Markdown:    string(markdown),
		ImagesDir:   filepath.Join(dir, "images"),
	}, nil
}
