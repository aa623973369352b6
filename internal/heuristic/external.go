package heuristic

import (
	"sort"
	"strings"
)

// External result weights.
const (
	weightTitleSubstring   = 0.5
	weightContentSubstring = 0.3
	weightTitleToken       = 0.1
	weightContentToken     = 0.05
	weightKeyword          = 0.05
)

// ExternalLimit is the number of external results RankExternal keeps.
const ExternalLimit = 5

// Keywords are the assistive-technology terms that make an external result
// more relevant regardless of the query.
var Keywords = []string{
	"accessibility", "assistive", "screen reader", "braille", "magnifier",
	"text-to-speech", "speech-to-text", "captioning", "hearing loss", "hearing aid",
	"sign language", "dyslexia", "adhd", "autism", "switch access",
	"eye tracking", "voice control", "dictation", "alternative keyboard", "augmentative",
	"communication board", "low vision", "wcag", "special education", "inclusive",
}

// ExternalResult is a web search hit.
type ExternalResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// ScoredExternal pairs an external result with its relevance score.
type ScoredExternal struct {
	ExternalResult
	Score float64 `json:"score"`
}

// RankExternal scores results by overlap with query and by assistive
// technology keywords, drops zero scores and keeps the best five.
func RankExternal(query string, results []ExternalResult) []ScoredExternal {
	q := normalize(query)
	out := make([]ScoredExternal, 0)
	if q == "" {
		return out
	}
	tokens := tokenize(q)

	for _, r := range results {
		if score := ScoreExternal(q, tokens, r); score > 0 {
			out = append(out, ScoredExternal{ExternalResult: r, Score: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > ExternalLimit {
		out = out[:ExternalLimit]
	}
	return out
}

// ScoreExternal computes the relevance of one external result.
func ScoreExternal(q string, tokens []string, r ExternalResult) float64 {
	title := strings.ToLower(r.Title)
	content := strings.ToLower(r.Content)

	var score float64
	if strings.Contains(title, q) {
		score += weightTitleSubstring
	}
	if strings.Contains(content, q) {
		score += weightContentSubstring
	}
	for _, tok := range tokens {
		if strings.Contains(title, tok) {
			score += weightTitleToken
		}
		if strings.Contains(content, tok) {
			score += weightContentToken
		}
	}
	for _, kw := range Keywords {
		if strings.Contains(title, kw) || strings.Contains(content, kw) {
			score += weightKeyword
		}
	}
	return score
}
