package codeextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFromHTMLFindsPreCodeBlocks(t *testing.T) {
	body := []byte(`<html><body>
<pre><code class="language-go">func main() {
	fmt.Println("hello")
}</code></pre>
<p>not code</p>
</body></html>`)

	snippets := ExtractFromHTML(body)
	assert.Len(t, snippets, 1)
	assert.Equal(t, "go", snippets[0].Language)
	assert.Contains(t, snippets[0].Content, "func main")
}

func TestExtractFromHTMLSkipsShortSnippets(t *testing.T) {
	body := []byte(`<html><body><pre><code>x=1</code></pre></body></html>`)
	snippets := ExtractFromHTML(body)
	assert.Empty(t, snippets)
}

func TestExtractFromMarkdownFencedBlock(t *testing.T) {
	text := "Some intro text here for context.\n\n```python\ndef hello():\n    print('hi')\n```\n\nMore text."
	snippets := ExtractFromMarkdown(text)
	assert.Len(t, snippets, 1)
	assert.Equal(t, "python", snippets[0].Language)
	assert.Contains(t, snippets[0].Content, "def hello")
	assert.Contains(t, snippets[0].Context, "intro text")
}

func TestExtractFromMarkdownIndentedBlock(t *testing.T) {
	text := "Paragraph.\n\n    indented code line one\n    indented code line two\n\nMore text."
	snippets := ExtractFromMarkdown(text)
	assert.NotEmpty(t, snippets)
}

func TestScoreBounds(t *testing.T) {
	s := Snippet{Content: "import foo\nfunc bar() {}\n// comment\n[1,2,3];", Language: "go", Context: "ctx"}
	score(&s)
	assert.GreaterOrEqual(t, s.CodeQualityScore, 0.0)
	assert.LessOrEqual(t, s.CodeQualityScore, 1.0)
	assert.GreaterOrEqual(t, s.MetadataScore, 0.0)
	assert.LessOrEqual(t, s.MetadataScore, 1.0)
}
