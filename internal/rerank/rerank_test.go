package rerank

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRelevanceScoreExactPhraseMatch(t *testing.T) {
	t.Parallel()

	s := RelevanceScore("quick start guide", "This is the quick start guide for installing the library.")
	require.Greater(t, s, 0.4)
}

func TestRelevanceScoreCapsAtOne(t *testing.T) {
	t.Parallel()

	content := strings.Repeat("foo bar baz ", 50)
	s := RelevanceScore("foo bar baz", content)
	require.LessOrEqual(t, s, 1.0)
}

func TestCodeQualityScoreZeroForProse(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.0, CodeQualityScore("Just a sentence with no code at all, only words."))
}

func TestCodeQualityScoreRewardsImportsAndFunctions(t *testing.T) {
	t.Parallel()

	content := "```go\nimport \"fmt\"\nfunc main() {\n// entry point\nfmt.Println(\"hi\")\n}\n```"
	s := CodeQualityScore(content)
	require.Greater(t, s, 0.5)
}

func TestInitializationScoreRewardsGettingStartedQuery(t *testing.T) {
	t.Parallel()

	s := InitializationScore("Run `npm install` then call new Client()", "how do I install and set up the client")
	require.Greater(t, s, 0.4)
}

func TestRerankBlendsVectorAndWeightedScore(t *testing.T) {
	t.Parallel()

	r := New(DefaultWeights())
	candidates := []Candidate{
		{ID: "a", Content: "irrelevant filler text about nothing in particular.", VectorScore: 0.1},
		{ID: "b", Content: "quick start: install the library then run the example.", VectorScore: 0.9},
	}

	results := r.Rerank("quick start install", candidates, false)

	require.Len(t, results, 2)
	require.Equal(t, "b", results[0].ID, "higher relevance and vector score should rank first")
	require.GreaterOrEqual(t, results[0].FinalScore, results[1].FinalScore)
}

func TestRerankUsesStoredScoresWhenPresent(t *testing.T) {
	t.Parallel()

	r := New(DefaultWeights())
	candidates := []Candidate{
		{
			ID:          "a",
			Content:     "ignored because stored scores take precedence",
			VectorScore: 0.5,
			Metadata: map[string]any{
				"relevance_score":      1.0,
				"code_quality_score":   1.0,
				"formatting_score":     1.0,
				"metadata_score":       1.0,
				"initialization_score": 1.0,
			},
		},
	}

	results := r.Rerank("anything", candidates, true)

	require.Len(t, results, 1)
	require.InDelta(t, 1.0, results[0].RelevanceScore, 0.001)
	require.InDelta(t, 0.7*1.0+0.3*0.5, results[0].FinalScore, 0.001)
}

func TestPackTenTwoHundredTokenChunksAt450Budget(t *testing.T) {
	t.Parallel()

	// 200-token chunks built from many short sentences so truncation can
	// land on a sentence boundary. 22 repeats of a 7-word sentence gives
	// 154 words, i.e. int(154*1.3) = 200 tokens exactly.
	chunk := strings.Repeat("This is a short example sentence here. ", 22)
	results := make([]Result, 10)
	for i := range results {
		results[i] = Result{Candidate: Candidate{ID: string(rune('a' + i)), Content: chunk}}
	}

	packed := Pack(results, 450)

	require.Len(t, packed, 3)
	require.False(t, packed[0].Truncated)
	require.False(t, packed[1].Truncated)
	require.True(t, packed[2].Truncated)

	total := 0
	for _, p := range packed {
		total += CountTokens(p.Content)
	}
	require.LessOrEqual(t, total, 450)
}

func TestPackStopsAfterTruncatingOverflowingResult(t *testing.T) {
	t.Parallel()

	big := strings.Repeat("word ", 400) // int(400*1.3) = 520 tokens
	results := []Result{
		{Candidate: Candidate{ID: "a", Content: big}},
		{Candidate: Candidate{ID: "b", Content: "short tail content"}},
	}

	packed := Pack(results, 500)

	require.Len(t, packed, 1)
	require.True(t, packed[0].Truncated)
}

func TestPackDropsResultWhenRemainingBelowFloor(t *testing.T) {
	t.Parallel()

	// First chunk consumes 469 of a 500 budget, leaving 31 remaining —
	// below the 50-token floor, so the second chunk (52 tokens, too big to
	// fit) is dropped entirely.
	first := strings.Repeat("word ", 361) // int(361*1.3) = 469
	results := []Result{
		{Candidate: Candidate{ID: "a", Content: first}},
		{Candidate: Candidate{ID: "b", Content: strings.Repeat("tail ", 40)}}, // int(40*1.3) = 52
	}

	packed := Pack(results, 500)

	require.Len(t, packed, 1)
	require.False(t, packed[0].Truncated)
}

func TestCountTokensApproximatesWordsTimes1Point3(t *testing.T) {
	t.Parallel()

	require.Equal(t, 13, CountTokens(strings.Repeat("word ", 10)))
}
