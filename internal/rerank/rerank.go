// Package rerank implements C10: the multi-stage reranker and token packer
// (spec §4.10), grounded verbatim on
// original_source/src/docvector/search/reranker.py's MultiStageReranker
// (weights, score formulas, 0.7/0.3 blend) and
// original_source/src/docvector/utils/token_utils.py's TokenLimiter
// (words*1.3 estimate, sentence-boundary truncation, 50-token inclusion
// floor).
package rerank

import (
	"regexp"
	"strings"
)

// Weights are the five metric weights from spec §4.10's defaults,
// normalised to sum to 1.0 in New.
type Weights struct {
	Relevance      float64
	CodeQuality    float64
	Formatting     float64
	Metadata       float64
	Initialization float64
}

// DefaultWeights matches the original's MultiStageReranker defaults.
func DefaultWeights() Weights {
	return Weights{
		Relevance:      0.35,
		CodeQuality:    0.25,
		Formatting:     0.15,
		Metadata:       0.10,
		Initialization: 0.15,
	}
}

// blendRatio is the reranked-vs-vector-score blend from spec §4.10:
// final = blendRatio*weighted + (1-blendRatio)*vector_score.
const blendRatio = 0.7

// Candidate is one hit handed to the reranker, with its raw vector score
// and payload (pre-computed per-chunk scores plus title/language/topics/
// enrichment used by the metadata score).
type Candidate struct {
	ID          string
	Content     string
	VectorScore float64
	Metadata    map[string]any
}

// Result is a reranked Candidate with its five component scores and final
// blended score.
type Result struct {
	Candidate
	RelevanceScore      float64
	CodeQualityScore    float64
	FormattingScore     float64
	MetadataScore       float64
	InitializationScore float64
	FinalScore          float64
}

// Reranker scores and sorts candidates.
type Reranker struct {
	weights Weights
}

// New normalises w to sum to 1.0 and returns a Reranker.
func New(w Weights) *Reranker {
	total := w.Relevance + w.CodeQuality + w.Formatting + w.Metadata + w.Initialization
	if total <= 0 {
		w = DefaultWeights()
		total = 1.0
	}
	return &Reranker{weights: Weights{
		Relevance:      w.Relevance / total,
		CodeQuality:    w.CodeQuality / total,
		Formatting:     w.Formatting / total,
		Metadata:       w.Metadata / total,
		Initialization: w.Initialization / total,
	}}
}

// Rerank scores every candidate against query and returns them sorted by
// FinalScore descending. If useStoredScores is true and a candidate's
// Metadata carries precomputed "*_score" fields, those are used instead of
// recomputing relevance/quality/formatting/metadata/initialization — per
// spec §4.10 "If precomputed scores are stored in the payload, use them".
func (r *Reranker) Rerank(query string, candidates []Candidate, useStoredScores bool) []Result {
	results := make([]Result, len(candidates))
	for i, c := range candidates {
		var relevance, codeQuality, formatting, metadataScore, initialization float64
		if useStoredScores && hasStoredScores(c.Metadata) {
			relevance = floatField(c.Metadata, "relevance_score")
			codeQuality = floatField(c.Metadata, "code_quality_score")
			formatting = floatField(c.Metadata, "formatting_score")
			metadataScore = floatField(c.Metadata, "metadata_score")
			initialization = floatField(c.Metadata, "initialization_score")
		} else {
			relevance = RelevanceScore(query, c.Content)
			codeQuality = CodeQualityScore(c.Content)
			formatting = FormattingScore(c.Content)
			metadataScore = MetadataScore(c.Metadata)
			initialization = InitializationScore(c.Content, query)
		}

		weighted := relevance*r.weights.Relevance +
			codeQuality*r.weights.CodeQuality +
			formatting*r.weights.Formatting +
			metadataScore*r.weights.Metadata +
			initialization*r.weights.Initialization

		final := blendRatio*weighted + (1-blendRatio)*c.VectorScore

		results[i] = Result{
			Candidate:           c,
			RelevanceScore:      relevance,
			CodeQualityScore:    codeQuality,
			FormattingScore:     formatting,
			MetadataScore:       metadataScore,
			InitializationScore: initialization,
			FinalScore:          final,
		}
	}

	sortResultsDesc(results)
	return results
}

func sortResultsDesc(results []Result) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].FinalScore > results[j-1].FinalScore; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

func hasStoredScores(metadata map[string]any) bool {
	if metadata == nil {
		return false
	}
	_, ok := metadata["relevance_score"]
	return ok
}

func floatField(metadata map[string]any, key string) float64 {
	if metadata == nil {
		return 0
	}
	switch v := metadata[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

var wordRe = regexp.MustCompile(`\w+`)

// RelevanceScore matches the original's _compute_relevance_score exactly:
// exact phrase match +0.4, Jaccard-style word overlap weighted 0.3, and a
// per-term frequency bonus capped at 0.3, with the total capped at 1.0.
func RelevanceScore(query, content string) float64 {
	queryLower := strings.ToLower(query)
	contentLower := strings.ToLower(content)

	var score float64
	if strings.Contains(contentLower, queryLower) {
		score += 0.4
	}

	queryWords := uniqueWords(queryLower)
	if len(queryWords) > 0 {
		contentWords := uniqueWords(contentLower)
		overlap := 0
		for w := range queryWords {
			if contentWords[w] {
				overlap++
			}
		}
		score += 0.3 * float64(overlap) / float64(len(queryWords))
	}

	for _, term := range strings.Fields(queryLower) {
		if len([]rune(term)) < 3 {
			continue
		}
		count := strings.Count(contentLower, term)
		if count > 0 {
			bonus := 0.1 * (float64(count) / 10)
			if bonus > 0.3 {
				bonus = 0.3
			}
			score += bonus
		}
	}

	return capScore(score)
}

func uniqueWords(s string) map[string]bool {
	out := map[string]bool{}
	for _, w := range wordRe.FindAllString(s, -1) {
		out[w] = true
	}
	return out
}

func capScore(s float64) float64 {
	if s > 1.0 {
		return 1.0
	}
	if s < 0 {
		return 0
	}
	return s
}
