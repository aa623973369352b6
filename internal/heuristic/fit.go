package heuristic

import (
	"math"

	"github.com/godfreymatagaro/eduability/internal/domain"
)

// Fit score budget per component.
const (
	fitVitalsMax    = 40.0
	fitFeaturesMax  = 30.0
	fitCostMax      = 20.0
	fitCategoryHit  = 10.0
	fitCategoryMiss = 5.0

	prioritizedFeaturePoints = 2.0
	regularFeaturePoints     = 1.0
)

// Vital weights for ease of use, features, value for money and support.
var vitalWeights = [4]float64{0.4, 0.3, 0.2, 0.1}

// FitInput is the technology-side input of FitScore.
type FitInput struct {
	Category          domain.Category
	CoreVitals        domain.CoreVitals
	AvailableFeatures []string
	// Cost is an estimated price in USD.
	Cost float64
}

// FitInputFor builds the fit input of a stored technology.
func FitInputFor(t *domain.Technology) FitInput {
	return FitInput{
		Category:          t.Category,
		CoreVitals:        t.CoreVitals,
		AvailableFeatures: t.FeatureComparison.Available(),
		Cost:              t.Cost.EstimatedPrice(),
	}
}

// Preferences are what a user declared when comparing technologies.
type Preferences struct {
	Category            domain.Category `json:"category"`
	Budget              float64         `json:"budget"`
	PrioritizedFeatures []string        `json:"prioritized_features"`
}

// FitScore rates how well in matches prefs on a 0..100 scale.
func FitScore(in FitInput, prefs Preferences) float64 {
	score := vitalsScore(in.CoreVitals) +
		featuresScore(in.AvailableFeatures, prefs.PrioritizedFeatures) +
		costScore(in.Cost, prefs.Budget) +
		categoryScore(in.Category, prefs.Category)

	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(100, score))
}

// vitalsScore is the weighted mean of the rated (non-zero) vitals scaled
// from 0..5 to 0..40.
func vitalsScore(v domain.CoreVitals) float64 {
	ratings := [4]float64{v.EaseOfUse, v.FeaturesRating, v.ValueForMoney, v.CustomerSupport}

	var sum, weights float64
	for i, r := range ratings {
		if r <= 0 || math.IsNaN(r) {
			continue
		}
		sum += math.Min(r, domain.MaxVitalRating) * vitalWeights[i]
		weights += vitalWeights[i]
	}
	if weights == 0 {
		return 0
	}
	return sum / weights / domain.MaxVitalRating * fitVitalsMax
}

func featuresScore(available, prioritized []string) float64 {
	priority := make(map[string]bool, len(prioritized))
	for _, f := range prioritized {
		priority[f] = true
	}
	has := make(map[string]bool, len(available))
	for _, f := range available {
		has[f] = true
	}

	var points, maxPoints float64
	for _, name := range domain.FeatureNames() {
		weight := regularFeaturePoints
		if priority[name] {
			weight = prioritizedFeaturePoints
		}
		maxPoints += weight
		if has[name] {
			points += weight
		}
	}
	return points / maxPoints * fitFeaturesMax
}

// costScore gives full marks within budget and decays linearly to zero at
// twice the budget.
func costScore(cost, budget float64) float64 {
	switch {
	case cost <= budget:
		return fitCostMax
	case budget <= 0:
		return 0
	default:
		return fitCostMax * math.Max(0, 1-(cost-budget)/budget)
	}
}

func categoryScore(got, want domain.Category) float64 {
	if got != "" && got == want {
		return fitCategoryHit
	}
	return fitCategoryMiss
}
