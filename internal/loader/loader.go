package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jmorgan/contentindex/internal/config"
	"github.com/jmorgan/contentindex/pkg/types"
)

var (
	// ErrParse is returned when a metadata descriptor cannot be decoded.
	ErrParse = errors.New("metadata parse error")
	// ErrValidation is returned when a document fails the inclusion
	// invariants (category mismatch, short content, bad metadata).
	ErrValidation = errors.New("document validation error")
)

// Loader discovers and loads documents from the content tree. The tree is
// a fixed two-level layout: <root>/<category>/<slug>/ containing one
// markdown file and one metadata descriptor.
type Loader struct {
	cfg       *config.Config
	root      string
	converter Converter
}

// New creates a Loader. It fails if the content root does not exist or the
// configured converter is unknown.
func New(cfg *config.Config) (*Loader, error) {
	root := cfg.Content.Root
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("content root %s: %w", root, err)
	}

	conv, err := NewConverter(cfg.Content.MarkdownConverter)
	if err != nil {
		return nil, err
	}

	return &Loader{cfg: cfg, root: root, converter: conv}, nil
}

// Discover returns the directories of all candidate documents. Directories
// missing either the markdown file or the metadata descriptor are silently
// skipped; that is a normal state for work in progress, not an error.
func (l *Loader) Discover() ([]string, error) {
	var dirs []string

	for _, category := range l.cfg.Content.SupportedCategories {
		categoryPath := filepath.Join(l.root, category)
		entries, err := os.ReadDir(categoryPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading category %s: %w", category, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			dir := filepath.Join(categoryPath, entry.Name())
			markdown := filepath.Join(dir, l.cfg.Content.MarkdownFile)
			metadata := filepath.Join(dir, l.cfg.Content.MetadataFile)
			if fileExists(markdown) && fileExists(metadata) {
				dirs = append(dirs, dir)
			}
		}
	}

	return dirs, nil
}

// requiredMetadataKeys are the descriptor keys mapped to typed fields;
// everything else is preserved in Metadata.Extra.
var requiredMetadataKeys = map[string]bool{
	"title": true, "slug": true, "author": true, "author_url": true,
	"publish_date": true, "last_modified": true, "category": true,
	"tags": true, "description": true, "excerpt": true,
	"reading_time": true, "word_count": true, "featured": true,
	"status": true,
}

// LoadMetadata decodes and validates a metadata descriptor.
func (l *Loader) LoadMetadata(path string) (*types.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrParse, path, err)
	}

	var meta types.Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}

	// Second decode into a generic map to capture unanticipated keys.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err == nil {
		for k, v := range raw {
			if v == nil || requiredMetadataKeys[k] {
				continue
			}
			if meta.Extra == nil {
				meta.Extra = make(map[string]any)
			}
			meta.Extra[k] = v
		}
	}

	if err := meta.Validate(l.cfg.Categories()); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrValidation, path, err)
	}

	return &meta, nil
}

// LoadDocument loads a complete document from its directory.
func (l *Loader) LoadDocument(dir string) (*types.Document, error) {
	category := filepath.Base(filepath.Dir(dir))
	markdownFile := filepath.Join(dir, l.cfg.Content.MarkdownFile)
	metadataFile := filepath.Join(dir, l.cfg.Content.MetadataFile)

	meta, err := l.LoadMetadata(metadataFile)
	if err != nil {
		return nil, err
	}

	// The descriptor must agree with where the document lives on disk.
	if string(meta.Category) != category {
		return nil, fmt.Errorf("%w: metadata category %q does not match directory category %q",
			ErrValidation, meta.Category, category)
	}

	raw, err := os.ReadFile(markdownFile)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrValidation, markdownFile, err)
	}

	processed, err := l.converter.ToText(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: converting %s: %v", ErrValidation, markdownFile, err)
	}

	if len(processed) < l.cfg.Content.MinContentLength {
		return nil, fmt.Errorf("%w: content too short: %d characters (minimum %d)",
			ErrValidation, len(processed), l.cfg.Content.MinContentLength)
	}

	info, err := os.Stat(markdownFile)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrValidation, markdownFile, err)
	}

	return &types.Document{
		DirectoryPath:    dir,
		MarkdownFile:     markdownFile,
		MetadataFile:     metadataFile,
		Metadata:         *meta,
		RawContent:       string(raw),
		ProcessedContent: processed,
		FileSizeBytes:    info.Size(),
		FileModTime:      info.ModTime(),
	}, nil
}

// ShouldInclude applies the publication policy: archived documents are
// always excluded, drafts only included when configured.
func (l *Loader) ShouldInclude(meta *types.Metadata) bool {
	switch meta.Status {
	case types.StatusArchived:
		return false
	case types.StatusDraft:
		return l.cfg.Content.IncludeDrafts
	default:
		return true
	}
}

// LoadAll loads every includable document. Per-document failures are
// collected, not raised, so the successfully loaded subset is always
// returned alongside the error list.
func (l *Loader) LoadAll() ([]*types.Document, []error) {
	dirs, err := l.Discover()
	if err != nil {
		return nil, []error{err}
	}

	var docs []*types.Document
	var errs []error

	for _, dir := range dirs {
		meta, err := l.LoadMetadata(filepath.Join(dir, l.cfg.Content.MetadataFile))
		if err != nil {
			errs = append(errs, fmt.Errorf("loading %s: %w", dir, err))
			continue
		}
		if !l.ShouldInclude(meta) {
			continue
		}

		doc, err := l.LoadDocument(dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("loading %s: %w", dir, err))
			continue
		}
		docs = append(docs, doc)
	}

	return docs, errs
}

// LoadBySlug loads one document by category and slug, or nil if the
// directory does not exist.
func (l *Loader) LoadBySlug(category types.Category, slug string) (*types.Document, error) {
	dir := filepath.Join(l.root, string(category), slug)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return l.LoadDocument(dir)
}

// TreeStats summarizes the content collection without loading bodies.
type TreeStats struct {
	TotalDocuments int
	ByCategory     map[types.Category]int
	ByStatus       map[types.Status]int
	ErrorDirs      []string
}

// Stats walks the tree and counts documents by category and status.
func (l *Loader) Stats() (*TreeStats, error) {
	dirs, err := l.Discover()
	if err != nil {
		return nil, err
	}

	stats := &TreeStats{
		ByCategory: make(map[types.Category]int),
		ByStatus:   make(map[types.Status]int),
	}

	for _, dir := range dirs {
		meta, err := l.LoadMetadata(filepath.Join(dir, l.cfg.Content.MetadataFile))
		if err != nil {
			stats.ErrorDirs = append(stats.ErrorDirs, dir)
			continue
		}
		stats.TotalDocuments++
		stats.ByCategory[meta.Category]++
		stats.ByStatus[meta.Status]++
	}

	return stats, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
