// Package search turns a free-text query and the request's filter values
// into a store-independent search plan.
//
// Exactly one filter applies per request. Rules() lists them in precedence
// order; the first active one wins and the others are ignored.
package search

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/godfreymatagaro/eduability/internal/domain"
	apperrors "github.com/godfreymatagaro/eduability/pkg/errors"
)

// Limit caps the number of technologies a search returns.
const Limit = 20

// HighestRatingsThreshold is the fixed minimum rating of the highestRatings filter.
const HighestRatingsThreshold = 4.0

// Rule names.
const (
	RuleRating         = "rating"
	RulePopularity     = "popularity"
	RuleRecency        = "recency"
	RuleHighestRatings = "highestRatings"
	RuleCost           = "cost"
	RuleCategory       = "category"
	RuleDefault        = "default"
)

// SortField is the field results are ordered by, always descending.
type SortField string

const (
	SortRating       SortField = "rating"
	SortReviewsCount SortField = "reviews_count"
	SortCreatedAt    SortField = "created_at"
)

// Filter carries the raw filter values of a search request.
type Filter struct {
	Rating         string
	Popularity     string
	Recency        string
	HighestRatings string
	Cost           string
	Category       string
}

// Restriction narrows the candidate set. Zero values restrict nothing.
type Restriction struct {
	MinRating *float64
	Cost      domain.Cost
	Category  domain.Category
}

// IsEmpty reports whether the restriction admits every technology.
func (r Restriction) IsEmpty() bool {
	return r.MinRating == nil && r.Cost == "" && r.Category == ""
}

// Rule is one entry of the filter precedence list.
type Rule struct {
	Name string
	// Value extracts the rule's raw value from a filter.
	Value func(Filter) string
	// Restrict turns the raw value into a restriction.
	Restrict func(value string) (Restriction, error)
	Sort     SortField
}

// Active reports whether the rule's value is present. Any non-blank value
// counts, including "0" and "false": a rule is switched off by omitting it.
func (r Rule) Active(f Filter) bool {
	return strings.TrimSpace(r.Value(f)) != ""
}

// Rules returns the filter rules in precedence order.
func Rules() []Rule {
	return []Rule{
		{
			Name:     RuleRating,
			Value:    func(f Filter) string { return f.Rating },
			Restrict: restrictMinRating,
			Sort:     SortRating,
		},
		{
			Name:     RulePopularity,
			Value:    func(f Filter) string { return f.Popularity },
			Restrict: noRestriction,
			Sort:     SortReviewsCount,
		},
		{
			Name:     RuleRecency,
			Value:    func(f Filter) string { return f.Recency },
			Restrict: noRestriction,
			Sort:     SortCreatedAt,
		},
		{
			Name:  RuleHighestRatings,
			Value: func(f Filter) string { return f.HighestRatings },
			Restrict: func(string) (Restriction, error) {
				threshold := HighestRatingsThreshold
				return Restriction{MinRating: &threshold}, nil
			},
			Sort: SortRating,
		},
		{
			Name:     RuleCost,
			Value:    func(f Filter) string { return f.Cost },
			Restrict: restrictCost,
			Sort:     SortCreatedAt,
		},
		{
			Name:     RuleCategory,
			Value:    func(f Filter) string { return f.Category },
			Restrict: restrictCategory,
			Sort:     SortRating,
		},
	}
}

func noRestriction(string) (Restriction, error) {
	return Restriction{}, nil
}

func restrictMinRating(v string) (Restriction, error) {
	threshold, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || threshold < 0 || threshold > domain.MaxVitalRating {
		return Restriction{}, apperrors.InvalidInput(fmt.Sprintf("rating must be a number between 0 and 5, got %q", v))
	}
	return Restriction{MinRating: &threshold}, nil
}

func restrictCost(v string) (Restriction, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if !domain.IsValidCost(v) {
		return Restriction{}, apperrors.InvalidInput(fmt.Sprintf("unknown cost %q", v))
	}
	return Restriction{Cost: domain.Cost(v)}, nil
}

func restrictCategory(v string) (Restriction, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if !domain.IsValidCategory(v) {
		return Restriction{}, apperrors.InvalidInput(fmt.Sprintf("unknown category %q", v))
	}
	return Restriction{Category: domain.Category(v)}, nil
}

// Plan is a store-independent description of one search.
type Plan struct {
	// Query is the trimmed, lower-cased search text. Empty matches everything.
	Query       string
	Rule        string
	Restriction Restriction
	Sort        SortField
	Limit       int
}

// BuildPlan picks the first active rule for filter and validates only that
// rule's value.
func BuildPlan(query string, filter Filter) (Plan, error) {
	plan := Plan{
		Query: strings.ToLower(strings.TrimSpace(query)),
		Rule:  RuleDefault,
		Sort:  SortRating,
		Limit: Limit,
	}

	for _, rule := range Rules() {
		if !rule.Active(filter) {
			continue
		}
		restriction, err := rule.Restrict(rule.Value(filter))
		if err != nil {
			return Plan{}, err
		}
		plan.Rule = rule.Name
		plan.Restriction = restriction
		plan.Sort = rule.Sort
		break
	}

	return plan, nil
}

// MatchesText reports whether t matches the query text directly or through
// one of its reviews' tags (taggedIDs holds technology ids whose reviews
// carry a matching tag).
func (p Plan) MatchesText(t *domain.Technology, taggedIDs map[string]struct{}) bool {
	if p.Query == "" {
		return true
	}
	for _, field := range []string{t.Name, t.Description, t.KeyFeatures, string(t.Category)} {
		if strings.Contains(strings.ToLower(field), p.Query) {
			return true
		}
	}
	_, ok := taggedIDs[t.ID]
	return ok
}

// MatchesTag reports whether a review tag matches the query text.
func (p Plan) MatchesTag(tag string) bool {
	return p.Query == "" || strings.Contains(strings.ToLower(tag), p.Query)
}

// Admits reports whether t passes the plan's restriction.
func (p Plan) Admits(t *domain.Technology) bool {
	r := p.Restriction
	if r.MinRating != nil && t.Rating < *r.MinRating {
		return false
	}
	if r.Cost != "" && t.Cost != r.Cost {
		return false
	}
	if r.Category != "" && t.Category != r.Category {
		return false
	}
	return true
}

// Apply evaluates the plan over an in-memory candidate set.
func (p Plan) Apply(candidates []domain.Technology, taggedIDs map[string]struct{}) []domain.Technology {
	out := make([]domain.Technology, 0)
	for i := range candidates {
		t := &candidates[i]
		if p.MatchesText(t, taggedIDs) && p.Admits(t) {
			out = append(out, *t)
		}
	}
	SortTechnologies(out, p.Sort)
	if p.Limit > 0 && len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out
}

// SortTechnologies orders ts by field descending, breaking ties by id so the
// order is deterministic across stores.
func SortTechnologies(ts []domain.Technology, field SortField) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := &ts[i], &ts[j]
		switch field {
		case SortReviewsCount:
			if a.ReviewsCount != b.ReviewsCount {
				return a.ReviewsCount > b.ReviewsCount
			}
		case SortCreatedAt:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		default:
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
		}
		return a.ID < b.ID
	})
}
