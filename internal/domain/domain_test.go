package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Enum Validation Tests
// ============================================================================

func TestIsValidCategory(t *testing.T) {
	for _, c := range ValidCategories() {
		assert.True(t, IsValidCategory(string(c)), "expected %q to be valid", c)
	}
	assert.False(t, IsValidCategory(""))
	assert.False(t, IsValidCategory("Visual"))
	assert.False(t, IsValidCategory("speech"))
}

func TestIsValidCost(t *testing.T) {
	for _, c := range ValidCosts() {
		assert.True(t, IsValidCost(string(c)), "expected %q to be valid", c)
	}
	assert.False(t, IsValidCost("cheap"))
	assert.False(t, IsValidCost(""))
}

func TestCost_EstimatedPrice(t *testing.T) {
	assert.Equal(t, 0.0, CostFree.EstimatedPrice())
	assert.Equal(t, 50.0, CostLow.EstimatedPrice())
	assert.Equal(t, 200.0, CostMedium.EstimatedPrice())
	assert.Equal(t, 500.0, CostHigh.EstimatedPrice())
	assert.Equal(t, 0.0, Cost("unknown").EstimatedPrice())
}

// ============================================================================
// Core Vitals / Feature Comparison Tests
// ============================================================================

func TestCoreVitals_Valid(t *testing.T) {
	assert.True(t, CoreVitals{}.Valid())
	assert.True(t, CoreVitals{EaseOfUse: 5, FeaturesRating: 4.5, ValueForMoney: 1, CustomerSupport: 0}.Valid())
	assert.False(t, CoreVitals{EaseOfUse: 5.1}.Valid())
	assert.False(t, CoreVitals{CustomerSupport: -1}.Valid())
}

func TestFeatureComparison_Available(t *testing.T) {
	fc := FeatureComparison{
		Security:       "Yes",
		Integration:    "no",
		Support:        " available ",
		UserManagement: "",
		API:            "TRUE",
		Webhooks:       "1",
		Community:      "limited",
	}

	assert.Equal(t, []string{FeatureSecurity, FeatureSupport, FeatureAPI, FeatureWebhooks}, fc.Available())
	assert.Empty(t, FeatureComparison{}.Available())
	assert.Len(t, fc.Flags(), len(FeatureNames()))
}

func TestSplitKeyFeatures(t *testing.T) {
	assert.Equal(t, []string{"Text to speech", "Braille output", "Magnifier"},
		SplitKeyFeatures("Text to speech, Braille output,Magnifier, "))
	assert.Empty(t, SplitKeyFeatures(""))
	assert.Empty(t, SplitKeyFeatures(" , ,"))

	tech := &Technology{KeyFeatures: "OCR, Voice control"}
	assert.Equal(t, []string{"OCR", "Voice control"}, tech.KeyFeatureItems())
}

// ============================================================================
// Review Tests
// ============================================================================

func TestReview_IsOwnedBy(t *testing.T) {
	r := &Review{UserID: "user-1"}
	assert.True(t, r.IsOwnedBy("user-1"))
	assert.False(t, r.IsOwnedBy("user-2"))
	assert.False(t, (&Review{}).IsOwnedBy(""))
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"easy", "screen reader"},
		NormalizeTags([]string{" Easy ", "screen reader", "", "EASY"}))
	assert.Empty(t, NormalizeTags(nil))
}

func TestSummarizeReviews_Empty(t *testing.T) {
	s := SummarizeReviews(nil)
	assert.Equal(t, 0.0, s.AverageRating)
	assert.Equal(t, 0, s.TotalCount)
	assert.Len(t, s.RatingBreakdown, 5)
	assert.NotNil(t, s.TopTags)
	assert.Equal(t, Aggregates{}, s.Aggregates())
}

func TestSummarizeReviews(t *testing.T) {
	reviews := []Review{
		{Rating: 5, Tags: []string{"easy", "Braille"}},
		{Rating: 4, Tags: []string{"easy"}},
		{Rating: 4, Tags: []string{"pricey", "easy", "EASY"}},
	}

	s := SummarizeReviews(reviews)
	assert.Equal(t, 3, s.TotalCount)
	assert.Equal(t, 4.3, s.AverageRating)
	assert.Equal(t, 2, s.RatingBreakdown[4])
	assert.Equal(t, 1, s.RatingBreakdown[5])
	assert.Equal(t, 0, s.RatingBreakdown[1])
	assert.Equal(t, []TagCount{{"easy", 3}, {"braille", 1}, {"pricey", 1}}, s.TopTags)
	assert.Equal(t, Aggregates{Rating: 4.3, ReviewsCount: 3}, s.Aggregates())
}

func TestSummarizeReviews_TopTagsCapped(t *testing.T) {
	var reviews []Review
	for _, tag := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		reviews = append(reviews, Review{Rating: 3, Tags: []string{tag}})
	}

	s := SummarizeReviews(reviews)
	assert.Len(t, s.TopTags, 5)
	assert.Equal(t, "a", s.TopTags[0].Tag)
}
