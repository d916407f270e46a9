package rerank

import (
	"regexp"
	"strings"
)

// tokensPerWord matches the original TokenLimiter's default ratio for
// GPT-family models.
const tokensPerWord = 1.3

// minRemainingTokens is the floor below which a partial result is dropped
// rather than included truncated. The original's TokenLimiter uses a
// strict "remaining_tokens > 50"; this uses >= so an exact 50-token
// remainder still yields a truncated inclusion (spec's literal packing
// scenario: 10x200-token chunks, max_tokens=450 lands exactly on this
// boundary and expects a truncated third chunk).
const minRemainingTokens = 50

// CountTokens estimates a token count via words * tokensPerWord, matching
// the original's TokenLimiter.count_tokens.
func CountTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * tokensPerWord)
}

var sentenceBoundaryRe = regexp.MustCompile(`(?:[.!?])\s+`)

// Packed is one packed-and-possibly-truncated result.
type Packed struct {
	Result
	Content   string
	Truncated bool
}

// Pack emits results in order, including each verbatim while it fits within
// maxTokens of the running budget; the first result that doesn't fit is
// truncated to a sentence boundary if at least minRemainingTokens remain,
// else dropped, and packing stops there — matching the original's
// TokenLimiter.limit_results_to_tokens.
func Pack(results []Result, maxTokens int) []Packed {
	if maxTokens <= 0 {
		out := make([]Packed, len(results))
		for i, r := range results {
			out[i] = Packed{Result: r, Content: r.Content}
		}
		return out
	}

	var out []Packed
	budget := 0
	for _, r := range results {
		tokens := CountTokens(r.Content)
		if budget+tokens <= maxTokens {
			out = append(out, Packed{Result: r, Content: r.Content})
			budget += tokens
			continue
		}

		remaining := maxTokens - budget
		if remaining >= minRemainingTokens {
			out = append(out, Packed{
				Result:    r,
				Content:   truncateToTokens(r.Content, remaining),
				Truncated: true,
			})
		}
		break
	}
	return out
}

// truncateToTokens truncates text to fit within maxTokens, preferring whole
// sentences, matching the original's truncate_to_tokens(preserve_sentences=true).
func truncateToTokens(text string, maxTokens int) string {
	if CountTokens(text) <= maxTokens {
		return text
	}

	sentences := splitSentences(text)
	var b strings.Builder
	used := 0
	for _, s := range sentences {
		t := CountTokens(s)
		if used+t > maxTokens {
			break
		}
		b.WriteString(s)
		b.WriteString(" ")
		used += t
	}
	return strings.TrimSpace(b.String())
}

func splitSentences(text string) []string {
	idxs := sentenceBoundaryRe.FindAllStringIndex(text, -1)
	if len(idxs) == 0 {
		return []string{text}
	}
	var out []string
	start := 0
	for _, loc := range idxs {
		out = append(out, text[start:loc[0]+1])
		start = loc[1]
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}
