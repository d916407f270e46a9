// Package chunker implements C4: splitting a parsed document's Markdown text
// into overlapping chunks, either by fixed character windows or by semantic
// (heading/paragraph-aware) boundaries (spec §4.4), grounded on the teacher's
// internal/rag/chunker/chunker.go and internal/textsplitters/{fixed,markdown}.go.
package chunker

import (
	"strings"
)

// Strategy selects the chunking algorithm.
type Strategy string

const (
	StrategyFixed    Strategy = "fixed"
	StrategySemantic Strategy = "semantic"
)

// Chunk is one contiguous span of the source text.
type Chunk struct {
	Index     int
	Text      string
	StartChar int
	EndChar   int
}

// Config bounds chunk size; Size and Overlap are character counts (the
// chunker operates on already-rendered Markdown text, not raw tokens).
type Config struct {
	Strategy Strategy
	Size     int
	Overlap  int
}

// Chunk splits text per cfg.Strategy, always returning indices assigned
// densely from 0 and StartChar/EndChar offsets into the original text.
func Chunk(text string, cfg Config) []Chunk {
	if cfg.Size <= 0 {
		cfg.Size = 1000
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		cfg.Overlap = 0
	}

	switch cfg.Strategy {
	case StrategySemantic:
		return semanticChunk(text, cfg)
	default:
		return fixedChunk(text, cfg)
	}
}

// fixedChunk produces fixed-size windows with overlap, preferring to break at
// whitespace near the window boundary so words aren't split mid-token,
// grounded on chunker.go's fixedChunk.
func fixedChunk(text string, cfg Config) []Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []Chunk
	step := cfg.Size - cfg.Overlap
	if step <= 0 {
		step = cfg.Size
	}

	start := 0
	idx := 0
	for start < n {
		end := start + cfg.Size
		if end > n {
			end = n
		} else {
			// Look back up to 20 runes for a whitespace boundary.
			for back := 0; back < 20 && end-back > start; back++ {
				if isSpace(runes[end-back-1]) {
					end = end - back
					break
				}
			}
		}

		chunkText := strings.TrimSpace(string(runes[start:end]))
		if chunkText != "" {
			chunks = append(chunks, Chunk{
				Index:     idx,
				Text:      chunkText,
				StartChar: start,
				EndChar:   end,
			})
			idx++
		}

		if end >= n {
			break
		}
		start += step
		if start < 0 {
			start = 0
		}
	}
	return chunks
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
