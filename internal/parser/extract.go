package parser

import (
	"strings"

	"golang.org/x/net/html"
)

// extractTitle returns the document's <title> text, grounded on
// internal/web/web.go's extractTitle.
func extractTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

// findMainContentNode tries <article>, then <main>, then falls back to the
// <div>, <section> or <body> with the most text (see findLargestContentDiv),
// grounded on
// internal/web/web.go's findMainContentNode / findNodeByTag /
// findLargestContentDiv selector-priority chain.
func findMainContentNode(doc *html.Node) *html.Node {
	if n := findNodeByTag(doc, "article"); n != nil {
		return n
	}
	if n := findNodeByTag(doc, "main"); n != nil {
		return n
	}
	return findLargestContentDiv(doc)
}

func findNodeByTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNodeByTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// findLargestContentDiv scores every <div>, <section> and the <body> by the
// length of all text beneath it (textLen skips script, style, nav, header and
// footer subtrees) and returns the first node with the most text. <body>
// encloses the others and is scored first, so it is normally the result.
func findLargestContentDiv(doc *html.Node) *html.Node {
	var best *html.Node
	bestLen := 0

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "div" || n.Data == "section" || n.Data == "body") {
			if l := textLen(n); l > bestLen {
				bestLen = l
				best = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return best
}

func textLen(n *html.Node) int {
	var total int
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			total += len(strings.TrimSpace(n.Data))
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "nav" || n.Data == "header" || n.Data == "footer") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return total
}

// renderNode serialises n back to an HTML string.
func renderNode(n *html.Node) string {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return ""
	}
	return b.String()
}
