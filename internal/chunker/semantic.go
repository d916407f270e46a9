package chunker

import (
	"regexp"
	"strings"
)

var headingRe = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+?)\s*$`)

// semanticChunk groups paragraphs under heading boundaries, packing
// consecutive paragraphs into a chunk until adding the next one would exceed
// cfg.Size, then starting a new chunk that repeats the last cfg.Overlap
// characters for continuity. Grounded on internal/textsplitters/markdown.go's
// heading-boundary segmentation combined with chunker.go's markdownChunk
// paragraph grouping.
func semanticChunk(text string, cfg Config) []Chunk {
	segments := splitByHeading(text)
	if len(segments) == 0 {
		return fixedChunk(text, cfg)
	}

	var chunks []Chunk
	idx := 0
	offset := 0
	var pending strings.Builder
	pendingStart := 0

	flush := func(end int) {
		body := strings.TrimSpace(pending.String())
		if body != "" {
			chunks = append(chunks, Chunk{Index: idx, Text: body, StartChar: pendingStart, EndChar: end})
			idx++
		}
		pending.Reset()
	}

	for _, seg := range segments {
		paras := splitParagraphs(seg)
		for _, para := range paras {
			paraLen := len([]rune(para))
			if pending.Len() == 0 {
				pendingStart = offset
			}
			if pending.Len() > 0 && len([]rune(pending.String()))+paraLen > cfg.Size {
				flush(offset)
				overlapText := tailRunes(body(chunks), cfg.Overlap)
				pending.WriteString(overlapText)
				pendingStart = offset - len([]rune(overlapText))
				if pendingStart < 0 {
					pendingStart = 0
				}
			}
			if pending.Len() > 0 {
				pending.WriteString("\n\n")
			}
			pending.WriteString(para)
			offset += paraLen + 2
		}
	}
	flush(offset)

	if len(chunks) == 0 {
		return fixedChunk(text, cfg)
	}
	return chunks
}

func body(chunks []Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	return chunks[len(chunks)-1].Text
}

func tailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// splitByHeading segments text at heading lines, keeping each heading with
// the body that follows it up to the next heading.
func splitByHeading(text string) []string {
	locs := headingRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}
	var segments []string
	for i, loc := range locs {
		start := loc[0]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		segments = append(segments, text[start:end])
	}
	if locs[0][0] > 0 {
		segments = append([]string{text[:locs[0][0]]}, segments...)
	}
	return segments
}

func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	var out []string
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
