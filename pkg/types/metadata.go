package types

import (
	"fmt"
	"strings"
)

// Category is the top-level content section a document lives under. The
// set of supported categories comes from configuration; these constants
// name the defaults.
type Category string

const (
	CategoryBlog        Category = "blog"
	CategoryEngineering Category = "engineering"
)

// Status is a document's publication state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Valid reports whether the status is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Metadata is the typed view of a document's YAML descriptor. Keys the
// descriptor carries beyond the typed fields are preserved in Extra.
type Metadata struct {
	Title        string   `yaml:"title"`
	Slug         string   `yaml:"slug"`
	Author       string   `yaml:"author"`
	AuthorURL    string   `yaml:"author_url"`
	PublishDate  string   `yaml:"publish_date"`
	LastModified string   `yaml:"last_modified"`
	Category     Category `yaml:"category"`
	Tags         []string `yaml:"tags"`
	Description  string   `yaml:"description"`
	Excerpt      string   `yaml:"excerpt"`
	ReadingTime  int      `yaml:"reading_time"`
	WordCount    int      `yaml:"word_count"`
	Featured     bool     `yaml:"featured"`
	Status       Status   `yaml:"status"`

	// Extra holds descriptor keys with no typed field. Populated by the
	// loader, never decoded directly.
	Extra map[string]any `yaml:"-"`
}

// Validate checks the descriptor for completeness and against the
// supported categories. Every descriptive field is required; only
// status may be omitted and defaults to published.
func (m *Metadata) Validate(supported []Category) error {
	required := []struct {
		key   string
		value string
	}{
		{"title", m.Title},
		{"slug", m.Slug},
		{"author", m.Author},
		{"publish_date", m.PublishDate},
		{"last_modified", m.LastModified},
		{"description", m.Description},
		{"excerpt", m.Excerpt},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidMetadata, f.key)
		}
	}
	if m.ReadingTime <= 0 {
		return fmt.Errorf("%w: reading_time must be positive", ErrInvalidMetadata)
	}
	if m.WordCount <= 0 {
		return fmt.Errorf("%w: word_count must be positive", ErrInvalidMetadata)
	}

	found := false
	for _, c := range supported {
		if m.Category == c {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: unsupported category %q", ErrInvalidMetadata, m.Category)
	}

	if m.Status == "" {
		m.Status = StatusPublished
	}
	if !m.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidMetadata, m.Status)
	}

	return nil
}

// CanonicalURL builds the public URL of the document under baseURL.
func (m *Metadata) CanonicalURL(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s/", strings.TrimRight(baseURL, "/"), m.Category, m.Slug)
}
