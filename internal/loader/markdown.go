package loader

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Converter turns raw markup into whitespace-normalized plain text.
// Implementations must strip structural markup (headings, emphasis, code
// fences, list markers), keep link text, and preserve paragraph breaks.
type Converter interface {
	ToText(markup string) (string, error)
}

// NewConverter selects a converter by name.
func NewConverter(name string) (Converter, error) {
	switch name {
	case "goldmark":
		return &GoldmarkConverter{md: goldmark.New()}, nil
	case "plain":
		return &PlainConverter{}, nil
	default:
		return nil, fmt.Errorf("unknown markdown converter %q", name)
	}
}

// GoldmarkConverter extracts text by walking the goldmark AST.
type GoldmarkConverter struct {
	md goldmark.Markdown
}

func (c *GoldmarkConverter) ToText(markup string) (string, error) {
	source := []byte(markup)
	doc := c.md.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch node := n.(type) {
			case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.Image:
				return ast.WalkSkipChildren, nil
			case *ast.Text:
				b.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte(' ')
				}
			case *ast.String:
				b.Write(node.Value)
			}
			return ast.WalkContinue, nil
		}

		// Block boundaries become paragraph breaks.
		switch n.(type) {
		case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.Blockquote:
			b.WriteString("\n\n")
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("walking markdown tree: %w", err)
	}

	return normalizeWhitespace(b.String()), nil
}

// PlainConverter is the regex fallback used when no structured parser is
// wanted. It handles the common markdown constructs only.
type PlainConverter struct{}

var (
	reCodeBlock    = regexp.MustCompile("(?s)```[^`]*```")
	reInlineCode   = regexp.MustCompile("`([^`]+)`")
	reImage        = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	reLink         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	reHeading      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reBold         = regexp.MustCompile(`\*\*(.*?)\*\*`)
	reItalicStar   = regexp.MustCompile(`\*(.*?)\*`)
	reItalicUnder  = regexp.MustCompile(`_(.*?)_`)
	reBlockquote   = regexp.MustCompile(`(?m)^>\s*`)
	reHorizRule    = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	reListMarker   = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	reNumberedList = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
)

func (c *PlainConverter) ToText(markup string) (string, error) {
	s := markup

	s = reCodeBlock.ReplaceAllString(s, "")
	s = reInlineCode.ReplaceAllString(s, "$1")
	s = reImage.ReplaceAllString(s, "")
	s = reLink.ReplaceAllString(s, "$1")
	s = reHeading.ReplaceAllString(s, "")
	s = reBold.ReplaceAllString(s, "$1")
	s = reItalicStar.ReplaceAllString(s, "$1")
	s = reItalicUnder.ReplaceAllString(s, "$1")
	s = reBlockquote.ReplaceAllString(s, "")
	s = reHorizRule.ReplaceAllString(s, "")
	s = reListMarker.ReplaceAllString(s, "")
	s = reNumberedList.ReplaceAllString(s, "")

	return normalizeWhitespace(s), nil
}

var (
	reSpaces      = regexp.MustCompile(`[ \t]+`)
	reBlankRuns   = regexp.MustCompile(`\n{3,}`)
	reSpacedLines = regexp.MustCompile(`(?m)[ \t]+$`)
)

// normalizeWhitespace collapses intra-line whitespace and runs of blank
// lines while keeping paragraph breaks intact.
func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = reSpaces.ReplaceAllString(s, " ")
	s = reSpacedLines.ReplaceAllString(s, "")
	s = reBlankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
