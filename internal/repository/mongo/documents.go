package mongo

import (
	"time"

	"github.com/godfreymatagaro/eduability/internal/domain"
)

type vitalsDocument struct {
	EaseOfUse       float64 `bson:"ease_of_use"`
	FeaturesRating  float64 `bson:"features_rating"`
	ValueForMoney   float64 `bson:"value_for_money"`
	CustomerSupport float64 `bson:"customer_support"`
}

type featuresDocument struct {
	Security       string `bson:"security,omitempty"`
	Integration    string `bson:"integration,omitempty"`
	Support        string `bson:"support,omitempty"`
	UserManagement string `bson:"user_management,omitempty"`
	API            string `bson:"api,omitempty"`
	Webhooks       string `bson:"webhooks,omitempty"`
	Community      string `bson:"community,omitempty"`
}

type technologyDocument struct {
	ID                 string           `bson:"_id"`
	PublicID           string           `bson:"public_id"`
	Name               string           `bson:"name"`
	Category           string           `bson:"category"`
	Description        string           `bson:"description"`
	KeyFeatures        string           `bson:"key_features"`
	SystemRequirements string           `bson:"system_requirements"`
	Cost               string           `bson:"cost"`
	CoreVitals         vitalsDocument   `bson:"core_vitals"`
	FeatureComparison  featuresDocument `bson:"feature_comparison"`
	Rating             float64          `bson:"rating"`
	ReviewsCount       int              `bson:"reviews_count"`
	CreatedAt          time.Time        `bson:"created_at"`
}

func toTechnologyDocument(t *domain.Technology) technologyDocument {
	f := t.FeatureComparison
	return technologyDocument{
		ID:                 t.ID,
		PublicID:           t.PublicID,
		Name:               t.Name,
		Category:           string(t.Category),
		Description:        t.Description,
		KeyFeatures:        t.KeyFeatures,
		SystemRequirements: t.SystemRequirements,
		Cost:               string(t.Cost),
		CoreVitals: vitalsDocument{
			EaseOfUse:       t.CoreVitals.EaseOfUse,
			FeaturesRating:  t.CoreVitals.FeaturesRating,
			ValueForMoney:   t.CoreVitals.ValueForMoney,
			CustomerSupport: t.CoreVitals.CustomerSupport,
		},
		FeatureComparison: featuresDocument{
			Security:       f.Security,
			Integration:    f.Integration,
			Support:        f.Support,
			UserManagement: f.UserManagement,
			API:            f.API,
			Webhooks:       f.Webhooks,
			Community:      f.Community,
		},
		Rating:       t.Rating,
		ReviewsCount: t.ReviewsCount,
		CreatedAt:    t.CreatedAt.UTC(),
	}
}

func (d technologyDocument) toDomain() domain.Technology {
	f := d.FeatureComparison
	return domain.Technology{
		ID:                 d.ID,
		PublicID:           d.PublicID,
		Name:               d.Name,
		Category:           domain.Category(d.Category),
		Description:        d.Description,
		KeyFeatures:        d.KeyFeatures,
		SystemRequirements: d.SystemRequirements,
		Cost:               domain.Cost(d.Cost),
		CoreVitals: domain.CoreVitals{
			EaseOfUse:       d.CoreVitals.EaseOfUse,
			FeaturesRating:  d.CoreVitals.FeaturesRating,
			ValueForMoney:   d.CoreVitals.ValueForMoney,
			CustomerSupport: d.CoreVitals.CustomerSupport,
		},
		FeatureComparison: domain.FeatureComparison{
			Security:       f.Security,
			Integration:    f.Integration,
			Support:        f.Support,
			UserManagement: f.UserManagement,
			API:            f.API,
			Webhooks:       f.Webhooks,
			Community:      f.Community,
		},
		Rating:       d.Rating,
		ReviewsCount: d.ReviewsCount,
		CreatedAt:    d.CreatedAt,
	}
}

type reviewDocument struct {
	ID           string    `bson:"_id"`
	TechnologyID string    `bson:"technology_id"`
	UserID       string    `bson:"user_id"`
	Rating       int       `bson:"rating"`
	Feedback     string    `bson:"feedback"`
	Tags         []string  `bson:"tags"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toReviewDocument(r *domain.Review) reviewDocument {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return reviewDocument{
		ID:           r.ID,
		TechnologyID: r.TechnologyID,
		UserID:       r.UserID,
		Rating:       r.Rating,
		Feedback:     r.Feedback,
		Tags:         tags,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func (d reviewDocument) toDomain() domain.Review {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return domain.Review{
		ID:           d.ID,
		TechnologyID: d.TechnologyID,
		UserID:       d.UserID,
		Rating:       d.Rating,
		Feedback:     d.Feedback,
		Tags:         tags,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
