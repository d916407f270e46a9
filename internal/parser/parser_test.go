package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHTMLExtractsArticleAndTitle(t *testing.T) {
	body := []byte(`<html><head><title>Guide</title></head>
<body>
<nav>skip this nav content entirely please</nav>
<article><h1>Getting Started</h1><p>This is the main documentation content that should be extracted by the parser.</p></article>
</body></html>`)

	p := New()
	p.UseReadabilityFallback = false
	doc, err := p.ParseHTML(body, "https://example.com/docs/guide")
	require.NoError(t, err)
	assert.Equal(t, "Guide", doc.Title)
	assert.Contains(t, doc.Markdown, "main documentation content")
	assert.NotContains(t, doc.Markdown, "skip this nav")
	assert.Equal(t, "html", doc.Format)
}

func TestParseMarkdownExtractsH1Title(t *testing.T) {
	body := []byte("# My Title\n\nSome body text.\n")
	p := New()
	doc, err := p.ParseMarkdown(body, "https://example.com/readme.md")
	require.NoError(t, err)
	assert.Equal(t, "My Title", doc.Title)
	assert.Equal(t, "markdown", doc.Format)
}

func TestParseMarkdownNoTitle(t *testing.T) {
	body := []byte("Just a paragraph, no heading.\n")
	p := New()
	doc, err := p.ParseMarkdown(body, "https://example.com/notes.md")
	require.NoError(t, err)
	assert.Equal(t, "", doc.Title)
}
