package codeextract

import (
	"regexp"
	"strings"
)

// score fills in the snippet's four quality dimensions, grounded on
// original_source/search/reranker.py's _compute_code_quality_score /
// _compute_formatting_score / _compute_metadata_score /
// _compute_initialization_score, applied here at extraction time so chunks
// built from this snippet inherit a pre-computed score (spec §4.5 / §4.10).
func score(s *Snippet) {
	s.CodeQualityScore = codeQualityScore(s.Content)
	s.FormattingScore = formattingScore(s.Content)
	s.MetadataScore = metadataScore(s)
	s.InitializationScore = initializationScore(s.Content)
}

var (
	importRe     = regexp.MustCompile(`(?m)^\s*(import|require|from|#include|using)\b`)
	funcOrTypeRe = regexp.MustCompile(`(?m)\b(func|function|def|class|interface|struct|type)\b`)
	commentRe    = regexp.MustCompile(`(?m)(^\s*//|^\s*#|/\*|^\s*--)`)
	bracketsRe   = regexp.MustCompile(`[{}()\[\];]`)
	headingRe2   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mainGuardRe  = regexp.MustCompile(`__main__|func main\s*\(|static void main\b`)
	instantiateRe = regexp.MustCompile(`\bnew\s+[A-Z][A-Za-z0-9_]*\s*\(|=\s*[A-Z][A-Za-z0-9_]*\s*\(`)
)

var initTerms = []string{"install", "getting started", "quickstart", "setup", "initialize", "init"}

func codeQualityScore(content string) float64 {
	score := 0.0
	if importRe.MatchString(content) {
		score += 0.2
	}
	if funcOrTypeRe.MatchString(content) {
		score += 0.2
	}
	if commentRe.MatchString(content) {
		score += 0.2
	}
	lines := strings.Count(content, "\n") + 1
	if lines >= 5 && lines <= 50 {
		score += 0.2
	} else if lines > 50 {
		score += 0.1
	}
	if bracketsRe.MatchString(content) {
		score += 0.2
	}
	return capScore(score)
}

func formattingScore(content string) float64 {
	score := 0.0
	lines := strings.Count(content, "\n") + 1
	if lines >= 3 && lines <= 100 {
		score += 0.3
	}
	if headingRe2.MatchString(content) {
		score += 0.2
	}
	if strings.Contains(content, "\n\n") {
		score += 0.2
	}
	maxLine := 0
	for _, l := range strings.Split(content, "\n") {
		if len(l) > maxLine {
			maxLine = len(l)
		}
	}
	switch {
	case maxLine <= 100:
		score += 0.3
	case maxLine <= 120:
		score += 0.2
	}
	return capScore(score)
}

func metadataScore(s *Snippet) float64 {
	score := 0.0
	if s.Language != "" {
		score += 0.2
	}
	if s.Context != "" {
		score += 0.3
	}
	return capScore(score)
}

func initializationScore(content string) float64 {
	score := 0.0
	lower := strings.ToLower(content)
	for _, term := range initTerms {
		if strings.Contains(lower, term) {
			score += 0.2
			break
		}
	}
	if mainGuardRe.MatchString(content) {
		score += 0.2
	}
	if instantiateRe.MatchString(content) {
		score += 0.2
	}
	if importRe.MatchString(content) {
		score += 0.2
	}
	return capScore(score)
}

func capScore(s float64) float64 {
	if s > 1.0 {
		return 1.0
	}
	return s
}
