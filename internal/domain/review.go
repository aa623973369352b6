package domain

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Review rating bounds.
const (
	MinReviewRating = 1
	MaxReviewRating = 5
)

// Review is a user-submitted rating and comment attached to a technology.
type Review struct {
	ID           string    `json:"id"`
	TechnologyID string    `json:"technology_id"`
	UserID       string    `json:"user_id"`
	Rating       int       `json:"rating"`
	Feedback     string    `json:"feedback"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsOwnedBy reports whether userID authored the review.
func (r *Review) IsOwnedBy(userID string) bool {
	return userID != "" && r.UserID == userID
}

// NormalizeTags trims, lower-cases and de-duplicates tags, keeping first-seen
// order and dropping empty entries.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// TagCount is the number of reviews carrying a tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// ReviewSummary contains aggregate review statistics for a technology.
type ReviewSummary struct {
	AverageRating   float64     `json:"average_rating"`
	TotalCount      int         `json:"total_count"`
	RatingBreakdown map[int]int `json:"rating_breakdown"`
	TopTags         []TagCount  `json:"top_tags"`
}

// Aggregates returns the values stored on the technology.
func (s ReviewSummary) Aggregates() Aggregates {
	return Aggregates{Rating: s.AverageRating, ReviewsCount: s.TotalCount}
}

const maxTopTags = 5

// SummarizeReviews computes the summary of a review set. The average is
// rounded to one decimal; an empty set averages 0.
func SummarizeReviews(reviews []Review) ReviewSummary {
	summary := ReviewSummary{
		RatingBreakdown: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		TopTags:         []TagCount{},
	}
	if len(reviews) == 0 {
		return summary
	}

	total := 0
	tagCounts := make(map[string]int)
	for _, r := range reviews {
		total += r.Rating
		summary.RatingBreakdown[r.Rating]++
		for _, tag := range NormalizeTags(r.Tags) {
			tagCounts[tag]++
		}
	}
	summary.TotalCount = len(reviews)
	summary.AverageRating = RoundRating(float64(total) / float64(len(reviews)))

	for tag, n := range tagCounts {
		summary.TopTags = append(summary.TopTags, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(summary.TopTags, func(i, j int) bool {
		if summary.TopTags[i].Count != summary.TopTags[j].Count {
			return summary.TopTags[i].Count > summary.TopTags[j].Count
		}
		return summary.TopTags[i].Tag < summary.TopTags[j].Tag
	})
	if len(summary.TopTags) > maxTopTags {
		summary.TopTags = summary.TopTags[:maxTopTags]
	}

	return summary
}

// RoundRating rounds a rating to one decimal place.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}
