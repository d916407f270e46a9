// Package codeextract implements C5: pulling code snippets out of HTML and
// Markdown documents and scoring them on the four dimensions the reranker
// later consumes (spec §4.5), grounded on
// original_source/processing/code_extractor.py's CodeSnippet/LANGUAGE_PATTERNS
// and internal/textsplitters/code.go's language regexes.
package codeextract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Snippet is one extracted code block.
type Snippet struct {
	Content             string
	Language             string
	Context              string
	StartChar            int
	EndChar               int
	CodeQualityScore     float64
	FormattingScore      float64
	MetadataScore        float64
	InitializationScore  float64
}

var languageClassRe = regexp.MustCompile(`(?i)(?:language|lang)-([a-z0-9+#]+)`)

var fencedCodeRe = regexp.MustCompile("(?s)```([a-zA-Z0-9+#]*)\\n(.*?)```")
var indentedBlockRe = regexp.MustCompile(`(?m)(?:^|\n)((?:(?:    |\t).+\n?)+)`)

const minSnippetChars = 10
const markdownContextWindow = 200

// ExtractFromHTML finds <pre><code> blocks and <script type="text/plain">
// blocks, grounded on the original's extract_from_html.
func ExtractFromHTML(body []byte) []Snippet {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}

	var snippets []Snippet
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "code" && hasPreParent(n) {
			text := strings.TrimSpace(textContent(n))
			if len(text) >= minSnippetChars {
				snippets = append(snippets, Snippet{
					Content:  text,
					Language: detectLanguageFromClasses(n),
					Context:  "",
				})
			}
		}
		if n.Type == html.ElementNode && n.Data == "script" && attrEquals(n, "type", "text/plain") {
			text := strings.TrimSpace(textContent(n))
			if len(text) >= minSnippetChars {
				snippets = append(snippets, Snippet{Content: text})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for i := range snippets {
		score(&snippets[i])
	}
	return snippets
}

// ExtractFromMarkdown finds fenced ```lang blocks and 4-space/tab indented
// blocks, grounded on the original's extract_from_markdown.
func ExtractFromMarkdown(text string) []Snippet {
	var snippets []Snippet

	for _, loc := range fencedCodeRe.FindAllStringSubmatchIndex(text, -1) {
		lang := ""
		if loc[2] >= 0 {
			lang = text[loc[2]:loc[3]]
		}
		content := strings.TrimSpace(text[loc[4]:loc[5]])
		if len(content) < minSnippetChars {
			continue
		}
		contextStart := loc[0] - markdownContextWindow
		if contextStart < 0 {
			contextStart = 0
		}
		snippets = append(snippets, Snippet{
			Content:   content,
			Language:  lang,
			Context:   strings.TrimSpace(text[contextStart:loc[0]]),
			StartChar: loc[0],
			EndChar:   loc[1],
		})
	}

	withoutFenced := fencedCodeRe.ReplaceAllString(text, "")
	for _, loc := range indentedBlockRe.FindAllStringIndex(withoutFenced, -1) {
		raw := withoutFenced[loc[0]:loc[1]]
		content := dedent(raw)
		if len(strings.TrimSpace(content)) < minSnippetChars {
			continue
		}
		snippets = append(snippets, Snippet{
			Content:   strings.TrimSpace(content),
			StartChar: loc[0],
			EndChar:   loc[1],
		})
	}

	for i := range snippets {
		score(&snippets[i])
	}
	return snippets
}

func dedent(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, l := range lines {
		l = strings.TrimPrefix(l, "    ")
		l = strings.TrimPrefix(l, "\t")
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

func hasPreParent(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "pre" {
			return true
		}
	}
	return false
}

func attrEquals(n *html.Node, key, val string) bool {
	for _, a := range n.Attr {
		if a.Key == key && a.Val == val {
			return true
		}
	}
	return false
}

func detectLanguageFromClasses(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key == "class" {
			if m := languageClassRe.FindStringSubmatch(a.Val); m != nil {
				return strings.ToLower(m[1])
			}
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
