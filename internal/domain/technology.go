package domain

import (
	"strings"
	"time"
)

// Category classifies the kind of impairment a technology addresses.
type Category string

// Technology categories.
const (
	CategoryVisual    Category = "visual"
	CategoryAuditory  Category = "auditory"
	CategoryPhysical  Category = "physical"
	CategoryCognitive Category = "cognitive"
)

// ValidCategories returns the set of valid technology categories.
func ValidCategories() []Category {
	return []Category{CategoryVisual, CategoryAuditory, CategoryPhysical, CategoryCognitive}
}

// IsValidCategory checks whether the given string is a valid category.
func IsValidCategory(c string) bool {
	for _, v := range ValidCategories() {
		if string(v) == c {
			return true
		}
	}
	return false
}

// Cost is the price band of a technology.
type Cost string

// Cost bands.
const (
	CostFree   Cost = "free"
	CostLow    Cost = "low"
	CostMedium Cost = "medium"
	CostHigh   Cost = "high"
)

// ValidCosts returns the set of valid cost bands.
func ValidCosts() []Cost {
	return []Cost{CostFree, CostLow, CostMedium, CostHigh}
}

// IsValidCost checks whether the given string is a valid cost band.
func IsValidCost(c string) bool {
	for _, v := range ValidCosts() {
		if string(v) == c {
			return true
		}
	}
	return false
}

// EstimatedPrice is the representative price in USD used when comparing a
// cost band against a budget.
func (c Cost) EstimatedPrice() float64 {
	switch c {
	case CostLow:
		return 50
	case CostMedium:
		return 200
	case CostHigh:
		return 500
	default:
		return 0
	}
}

// MaxVitalRating is the upper bound of every core vital and of the aggregate rating.
const MaxVitalRating = 5

// CoreVitals are the four editorial sub-ratings, each 0..5 where 0 means
// "not rated".
type CoreVitals struct {
	EaseOfUse       float64 `json:"ease_of_use"`
	FeaturesRating  float64 `json:"features_rating"`
	ValueForMoney   float64 `json:"value_for_money"`
	CustomerSupport float64 `json:"customer_support"`
}

// Valid reports whether every vital is within 0..5.
func (v CoreVitals) Valid() bool {
	for _, r := range []float64{v.EaseOfUse, v.FeaturesRating, v.ValueForMoney, v.CustomerSupport} {
		if r < 0 || r > MaxVitalRating {
			return false
		}
	}
	return true
}

// Feature names, in display order.
const (
	FeatureSecurity       = "security"
	FeatureIntegration    = "integration"
	FeatureSupport        = "support"
	FeatureUserManagement = "user_management"
	FeatureAPI            = "api"
	FeatureWebhooks       = "webhooks"
	FeatureCommunity      = "community"
)

// FeatureNames returns all comparable feature names.
func FeatureNames() []string {
	return []string{
		FeatureSecurity, FeatureIntegration, FeatureSupport, FeatureUserManagement,
		FeatureAPI, FeatureWebhooks, FeatureCommunity,
	}
}

// FeatureComparison holds the seven capability flags. Values are free text
// as entered by editors ("yes", "No", "available", ...).
type FeatureComparison struct {
	Security       string `json:"security"`
	Integration    string `json:"integration"`
	Support        string `json:"support"`
	UserManagement string `json:"user_management"`
	API            string `json:"api"`
	Webhooks       string `json:"webhooks"`
	Community      string `json:"community"`
}

// Flags returns the flag values keyed by feature name.
func (f FeatureComparison) Flags() map[string]string {
	return map[string]string{
		FeatureSecurity:       f.Security,
		FeatureIntegration:    f.Integration,
		FeatureSupport:        f.Support,
		FeatureUserManagement: f.UserManagement,
		FeatureAPI:            f.API,
		FeatureWebhooks:       f.Webhooks,
		FeatureCommunity:      f.Community,
	}
}

// Available returns the names of the features whose flag is truthy, in
// FeatureNames order.
func (f FeatureComparison) Available() []string {
	flags := f.Flags()
	out := make([]string, 0, len(flags))
	for _, name := range FeatureNames() {
		if IsTruthyFlag(flags[name]) {
			out = append(out, name)
		}
	}
	return out
}

// IsTruthyFlag interprets an editor-entered feature flag.
func IsTruthyFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "1", "available":
		return true
	default:
		return false
	}
}

// Technology is a cataloged assistive-technology product.
type Technology struct {
	ID                 string            `json:"id"`
	PublicID           string            `json:"public_id"`
	Name               string            `json:"name"`
	Category           Category          `json:"category"`
	Description        string            `json:"description"`
	KeyFeatures        string            `json:"key_features"`
	SystemRequirements string            `json:"system_requirements"`
	Cost               Cost              `json:"cost"`
	CoreVitals         CoreVitals        `json:"core_vitals"`
	FeatureComparison  FeatureComparison `json:"feature_comparison"`
	Rating             float64           `json:"rating"`
	ReviewsCount       int               `json:"reviews_count"`
	CreatedAt          time.Time         `json:"created_at"`
}

// KeyFeatureItems splits KeyFeatures into its items.
func (t *Technology) KeyFeatureItems() []string {
	return SplitKeyFeatures(t.KeyFeatures)
}

// SplitKeyFeatures splits a comma-separated feature list, trimming items and
// dropping empty ones.
func SplitKeyFeatures(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Aggregates are the denormalized review statistics stored on a technology.
type Aggregates struct {
	Rating       float64 `json:"rating"`
	ReviewsCount int     `json:"reviews_count"`
}

// TechnologySummary is a technology together with its review statistics.
type TechnologySummary struct {
	Technology Technology    `json:"technology"`
	Reviews    ReviewSummary `json:"reviews"`
}
