package models

// Resource entities are immutable once written: their storage keys are
// derived from content hashes, so re-storing identical content overwrites
// the same key instead of creating a duplicate.

// FileResource is the raw input file as it entered the pipeline
type FileResource struct {
	ID          string `json:"-"`
	FileName    string `json:"file_name"` // path stem, no extension
	FileType    string `json:"file_type"` // extension without the dot
	FilePath    string `json:"file_path"`
	FileContent string `json:"file_content"`
}

// ParsedContent is one element of a parser's structured content list
type ParsedContent struct {
	ID       string `json:"-"`
	Content  any    `json:"content"`
	FilePath string `json:"file_path"`
	DocID    string `json:"doc_id"`
}

// ParsedImage is one image file extracted by the parser, stored base64-encoded
type ParsedImage struct {
	ID           string `json:"-"`
	ImagePath    string `json:"image_path"`
	ImageContent string `json:"image_content"` // base64
	FilePath     string `json:"file_path"`
	DocID        string `json:"doc_id"`
}

// ParsedMarkdown is the full markdown rendering of one document
type ParsedMarkdown struct {
	ID              string `json:"-"`
	MarkdownContent string `json:"markdown_content"`
	FilePath        string `json:"file_path"`
	DocID           string `json:"doc_id"`
}

// Record converts the entity to the opaque map shape the KV storage persists
func (f *FileResource) Record() map[string]any {
	return map[string]any{
		"file_name":    f.FileName,
		"file_type":    f.FileType,
		"file_path":    f.FilePath,
		"file_content": f.FileContent,
	}
}

func (p *ParsedContent) Record() map[string]any {
	return map[string]any{
		"content":   p.Content,
		"file_path": p.FilePath,
		"doc_id":    p.DocID,
	}
}

func (p *ParsedImage) Record() map[string]any {
	return map[string]any{
		"image_path":    p.ImagePath,
		"image_content": p.ImageContent,
		"file_path":     p.FilePath,
		"doc_id":        p.DocID,
	}
}

func (p *ParsedMarkdown) Record() map[string]any {
	return map[string]any{
		"markdown_content": p.MarkdownContent,
		"file_path":        p.FilePath,
		"doc_id":           p.DocID,
	}
}
