package resource

import (
	"context"
	"path/filepath"
	"strings"

	"ragstore/internal/parser"
)

// vlmBackendPrefix marks vision-language-model parser backends. Results
// from any such backend live under one fixed "vlm" output partition
// regardless of the requested parse method.
const vlmBackendPrefix = "vlm-"

// ImportOptions override the configured defaults for one import
type ImportOptions struct {
	OutputDir   string // parser output directory; default from config
	ParseMethod string // parse method partition; default from config
	Backend     string // parser backend hint; vlm-* forces method "vlm"
}

// ImportParsedResult bridges the parser's on-disk output into the resource
// collections: it loads the content list, images directory, and markdown
// for one input file and stores each in order. The three writes are
// independent upserts with no transaction across them; a retry after
// partial completion is safe because unchanged content re-resolves to the
// same keys.
func (s *Store) ImportParsedResult(ctx context.Context, inputFilePath string, opts ImportOptions) error {
	if !s.enabled() {
		s.warnDisabled("import parsed result")
		return nil
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = s.cfg.ParserOutputDir
	}
	method := opts.ParseMethod
	if method == "" {
		method = s.cfg.ParseMethod
	}
	if strings.HasPrefix(opts.Backend, vlmBackendPrefix) {
		method = "vlm"
	}

	if s.cfg.Parser != parser.Name {
		s.logger.Warn("storing parsed results is only supported for the mineru parser",
			"parser", s.cfg.Parser)
		return nil
	}

	base := filepath.Base(inputFilePath)
	fileStem := strings.TrimSuffix(base, filepath.Ext(base))

	out, err := s.reader.ReadOutput(outputDir, fileStem, method)
	if err != nil {
		return err
	}

	if err := s.StoreParsedContentList(ctx, inputFilePath, out.ContentList); err != nil {
		return err
	}
	if err := s.StoreParsedImages(ctx, inputFilePath, out.ImagesDir); err != nil {
		return err
	}
	return s.StoreParsedMarkdown(ctx, inputFilePath, out.Markdown)
}
