// Package parser implements C3: turning a fetched page's raw bytes into a
// ParsedDocument (title, main content, language hint, metadata), for both
// HTML and Markdown sources (spec §4.3).
package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ParsedDocument is the parser's output, ready for chunking.
type ParsedDocument struct {
	Title    string
	Markdown string
	Language string
	Format   string // "html" or "markdown"
	Metadata map[string]any
}

// Parser converts raw bytes into a ParsedDocument.
type Parser struct {
	// UseReadabilityFallback enables go-readability as a secondary pass when
	// the primary selector-priority extraction looks too sparse. Authoritative
	// strategy is selector-priority; see DESIGN.md Open Question decisions.
	UseReadabilityFallback bool
}

func New() *Parser {
	return &Parser{UseReadabilityFallback: true}
}

// ParseHTML extracts the main content from an HTML page at sourceURL,
// grounded on internal/web/web.go's selector-priority extraction
// (article/main tags, falling back to the div, section or body with the
// most text), then
// converts the extracted fragment to Markdown for uniform downstream
// chunking.
func (p *Parser) ParseHTML(body []byte, sourceURL string) (*ParsedDocument, error) {
	utf8Body, err := decodeToUTF8(body)
	if err != nil {
		return nil, fmt.Errorf("parser: decode charset: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(utf8Body))
	if err != nil {
		return nil, fmt.Errorf("parser: parse html: %w", err)
	}

	title := extractTitle(doc)
	mainNode := findMainContentNode(doc)
	var contentHTML string
	if mainNode != nil {
		contentHTML = renderNode(mainNode)
	}

	if p.UseReadabilityFallback && looksEmpty(contentHTML) {
		if article, err := readability.FromReader(strings.NewReader(utf8Body), nil); err == nil && strings.TrimSpace(article.Content) != "" {
			contentHTML = article.Content
			if title == "" {
				title = article.Title
			}
		}
	}
	if looksEmpty(contentHTML) {
		contentHTML = renderNode(doc)
	}

	conv, err := md.ConvertString(contentHTML, converter.WithDomain(sourceURL))
	if err != nil {
		return nil, fmt.Errorf("parser: convert to markdown: %w", err)
	}

	markdown := strings.TrimSpace(conv)
	if title != "" && !strings.HasPrefix(markdown, "# ") {
		markdown = "# " + title + "\n\n" + markdown
	}

	return &ParsedDocument{
		Title:    title,
		Markdown: markdown,
		Language: detectLanguage(markdown),
		Format:   "html",
		Metadata: map[string]any{"source_url": sourceURL},
	}, nil
}

// ParseMarkdown wraps raw Markdown bytes as a ParsedDocument, extracting a
// title from the first level-1 heading if present.
func (p *Parser) ParseMarkdown(body []byte, sourceURL string) (*ParsedDocument, error) {
	text := string(body)
	title := ""
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
			break
		}
	}

	return &ParsedDocument{
		Title:    title,
		Markdown: strings.TrimSpace(text),
		Language: detectLanguage(text),
		Format:   "markdown",
		Metadata: map[string]any{"source_url": sourceURL},
	}, nil
}

func decodeToUTF8(body []byte) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), "")
	if err != nil {
		return string(body), nil
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(body), nil
	}
	return string(decoded), nil
}

func looksEmpty(s string) bool {
	return len(strings.TrimSpace(stripTags(s))) < 40
}

// stripTags is a crude tag stripper used only to gauge whether extracted
// content carries meaningful text, not for actual rendering.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// detectLanguage is a stub hook, matching the teacher's
// rag/ingest/preprocess.go DefaultLanguageDetector (always "english"); a
// real detector is out of scope for the chunking/search pipeline itself.
func detectLanguage(string) string {
	return "english"
}
