// Package heuristic holds the hand-tuned relevance and fit scorers used for
// quick search, external result ranking and technology comparison. All
// functions are pure.
package heuristic

import (
	"sort"
	"strings"

	"github.com/godfreymatagaro/eduability/internal/domain"
)

// Technology ranking weights.
const (
	weightNameSubstring     = 0.4
	weightNameToken         = 0.2
	weightCategorySubstring = 0.3
	weightFeatureItem       = 0.1
	weightDescription       = 0.15
	weightVital             = 0.1
	weightTag               = 0.05
)

// DefaultLimit is the number of technologies Rank keeps.
const DefaultLimit = 10

// TagBonus selects how the per-tag bonus is awarded.
type TagBonus int

const (
	// TagBonusQueryOverlap awards the bonus for each tag sharing a token
	// with the query.
	TagBonusQueryOverlap TagBonus = iota
	// TagBonusLegacy awards the bonus for every non-empty tag, matching the
	// behaviour of earlier clients.
	TagBonusLegacy
)

// ParseTagBonus maps "query" (or empty) and "legacy" to a TagBonus.
func ParseTagBonus(s string) (TagBonus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "query":
		return TagBonusQueryOverlap, true
	case "legacy":
		return TagBonusLegacy, true
	default:
		return TagBonusQueryOverlap, false
	}
}

func (b TagBonus) String() string {
	if b == TagBonusLegacy {
		return "legacy"
	}
	return "query"
}

// Options tunes Rank.
type Options struct {
	Limit    int
	TagBonus TagBonus
}

// DefaultOptions keeps the top 10 and uses query-overlap tag bonuses.
func DefaultOptions() Options {
	return Options{Limit: DefaultLimit, TagBonus: TagBonusQueryOverlap}
}

// Scored pairs a technology with its relevance score.
type Scored struct {
	Technology domain.Technology `json:"technology"`
	Score      float64           `json:"score"`
}

// Rank scores every technology against query, drops zero scores and returns
// the best opts.Limit in descending score order. Equal scores keep input
// order. An empty query ranks nothing.
func Rank(query string, technologies []domain.Technology, opts Options) []Scored {
	q := normalize(query)
	out := make([]Scored, 0)
	if q == "" {
		return out
	}
	tokens := tokenize(q)

	for i := range technologies {
		score := ScoreTechnology(q, tokens, &technologies[i], opts.TagBonus)
		if score > 0 {
			out = append(out, Scored{Technology: technologies[i], Score: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ScoreTechnology computes the relevance of t for a normalized query and its
// tokens.
func ScoreTechnology(q string, tokens []string, t *domain.Technology, mode TagBonus) float64 {
	var score float64

	name := strings.ToLower(t.Name)
	switch {
	case strings.Contains(name, q):
		score += weightNameSubstring
	case sharesToken(tokenize(name), tokens):
		score += weightNameToken
	}

	category := strings.ToLower(string(t.Category))
	if strings.Contains(category, q) {
		score += weightCategorySubstring
	}

	items := t.KeyFeatureItems()
	for _, item := range items {
		if containsAnyToken(strings.ToLower(item), tokens) {
			score += weightFeatureItem
		}
	}

	if strings.Contains(strings.ToLower(t.Description), q) {
		score += weightDescription
	}

	score += vitalContribution(t.CoreVitals.EaseOfUse)
	score += vitalContribution(t.CoreVitals.FeaturesRating)

	tags := append([]string{string(t.Category)}, items...)
	for _, tag := range tags {
		if tagEarnsBonus(tag, tokens, mode) {
			score += weightTag
		}
	}

	return score
}

func vitalContribution(v float64) float64 {
	if v <= 0 {
		return 0
	}
	if v > domain.MaxVitalRating {
		v = domain.MaxVitalRating
	}
	return v / domain.MaxVitalRating * weightVital
}

func tagEarnsBonus(tag string, queryTokens []string, mode TagBonus) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return false
	}
	if mode == TagBonusLegacy {
		return true
	}
	return sharesToken(tokenize(tag), queryTokens)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func tokenize(s string) []string {
	return strings.Fields(s)
}

func sharesToken(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func containsAnyToken(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}
