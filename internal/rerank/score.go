package rerank

import (
	"regexp"
	"strings"
)

var (
	codeBlockMarkerRe = regexp.MustCompile("```|<code>|<pre>")
	importRe2         = regexp.MustCompile(`(?im)(?:^|\n)(?:import|from|require|include|using)\s+`)
	funcDefRe         = regexp.MustCompile(`(?m)(?:^|\n)(?:def|function|fn|func|class|public|private)\s+`)
	commentRe2        = regexp.MustCompile(`//|#|/\*|"""|'''`)
	bracketsRe2       = regexp.MustCompile(`[{}\[\]();]`)
	headingRe3        = regexp.MustCompile(`(?m)^#{1,6}\s+\w+`)
	declarationRe     = regexp.MustCompile(`(?:def|function|class|var|let|const)\s+\w+`)
	keywordRe         = regexp.MustCompile(`(?:if|for|while|return|import)\s+`)
	operatorRe        = regexp.MustCompile(`[=<>!+\-*/]+`)
	mainGuardRe2      = regexp.MustCompile(`if\s+__name__\s*==\s*['"]__main__['"]`)
	instantiateRe2    = regexp.MustCompile(`new\s+\w+|=\s*\w+\(`)
)

var gettingStartedTerms = []string{
	"install", "setup", "start", "begin", "initialize", "init",
	"example", "basic", "simple", "quick", "tutorial",
}

var initKeywords = []string{
	"install", "setup", "initialize", "getting started", "quick start", "example", "usage",
}

// CodeQualityScore matches the original's _compute_code_quality_score.
func CodeQualityScore(content string) float64 {
	hasCodeBlock := codeBlockMarkerRe.MatchString(content)
	if !hasCodeBlock && !looksLikeCode(content) {
		return 0
	}

	var score float64
	if importRe2.MatchString(content) {
		score += 0.2
	}
	if funcDefRe.MatchString(content) {
		score += 0.2
	}
	if commentRe2.MatchString(content) {
		score += 0.2
	}

	lineCount := strings.Count(content, "\n") + 1
	switch {
	case lineCount >= 5 && lineCount <= 50:
		score += 0.2
	case lineCount > 50:
		score += 0.1
	}

	if bracketsRe2.MatchString(content) {
		score += 0.2
	}

	return capScore(score)
}

func looksLikeCode(content string) bool {
	indicators := []*regexp.Regexp{bracketsRe2, declarationRe, keywordRe, operatorRe}
	count := 0
	for _, re := range indicators {
		if re.MatchString(content) {
			count++
		}
	}
	return count >= 2
}

// FormattingScore matches the original's _compute_formatting_score.
func FormattingScore(content string) float64 {
	lines := strings.Split(content, "\n")

	var score float64
	if len(lines) >= 3 && len(lines) <= 100 {
		score += 0.3
	}
	if headingRe3.MatchString(content) {
		score += 0.2
	}
	if strings.Contains(content, "\n\n") {
		score += 0.2
	}

	maxLen := 0
	for _, l := range lines {
		if n := len([]rune(l)); n > maxLen {
			maxLen = n
		}
	}
	switch {
	case maxLen <= 100:
		score += 0.3
	case maxLen <= 120:
		score += 0.2
	}

	return capScore(score)
}

// MetadataScore matches the original's _compute_metadata_score.
func MetadataScore(metadata map[string]any) float64 {
	if metadata == nil {
		return 0
	}
	var score float64
	if s, _ := metadata["title"].(string); s != "" {
		score += 0.2
	}
	lang, _ := metadata["language"].(string)
	codeLang, _ := metadata["code_language"].(string)
	if lang != "" || codeLang != "" {
		score += 0.2
	}
	if topics, ok := metadata["topics"].([]string); ok && len(topics) > 0 {
		score += 0.3
	}
	if s, _ := metadata["enrichment"].(string); s != "" {
		score += 0.3
	}
	return capScore(score)
}

// InitializationScore matches the original's _compute_initialization_score.
func InitializationScore(content, query string) float64 {
	var score float64
	queryLower := strings.ToLower(query)
	for _, term := range gettingStartedTerms {
		if strings.Contains(queryLower, term) {
			score += 0.2
			break
		}
	}

	contentLower := strings.ToLower(content)
	for _, kw := range initKeywords {
		if strings.Contains(contentLower, kw) {
			score += 0.2
			break
		}
	}

	if mainGuardRe2.MatchString(content) {
		score += 0.2
	}
	if instantiateRe2.MatchString(content) {
		score += 0.2
	}
	if importRe2.MatchString(content) {
		score += 0.2
	}

	return capScore(score)
}
