package main

import (
	"github.com/godfreymatagaro/eduability/internal/domain"
	"github.com/godfreymatagaro/eduability/internal/service"
)

type fixtureReview struct {
	UserID   string
	Rating   int
	Feedback string
	Tags     []string
}

type fixture struct {
	Technology service.CreateTechnologyInput
	Reviews    []fixtureReview
}

func fixtures() []fixture {
	return []fixture{
		{
			Technology: service.CreateTechnologyInput{
				Name:               "NVDA",
				Category:           string(domain.CategoryVisual),
				Description:        "Open source screen reader for Windows with speech and braille output.",
				KeyFeatures:        "Speech synthesis, Braille display support, Add-ons",
				SystemRequirements: "Windows 10 or later",
				Cost:               string(domain.CostFree),
				CoreVitals:         domain.CoreVitals{EaseOfUse: 4, FeaturesRating: 4.5, ValueForMoney: 5, CustomerSupport: 3.5},
				FeatureComparison:  domain.FeatureComparison{Security: "yes", Integration: "yes", Support: "community", API: "yes", Community: "yes"},
			},
			Reviews: []fixtureReview{
				{UserID: "seed-student-1", Rating: 5, Feedback: "Works with every browser I use for coursework.", Tags: []string{"free", "screen reader"}},
				{UserID: "seed-educator-1", Rating: 4, Feedback: "Great once the add-ons are configured.", Tags: []string{"classroom"}},
			},
		},
		{
			Technology: service.CreateTechnologyInput{
				Name:               "JAWS",
				Category:           string(domain.CategoryVisual),
				Description:        "Commercial screen reader with scripting and enterprise support.",
				KeyFeatures:        "Scripting, Braille display support, OCR",
				SystemRequirements: "Windows 10 or later",
				Cost:               string(domain.CostHigh),
				CoreVitals:         domain.CoreVitals{EaseOfUse: 3.5, FeaturesRating: 5, ValueForMoney: 2.5, CustomerSupport: 4.5},
				FeatureComparison:  domain.FeatureComparison{Security: "yes", Integration: "yes", Support: "yes", UserManagement: "yes", API: "yes"},
			},
			Reviews: []fixtureReview{
				{UserID: "seed-student-2", Rating: 4, Feedback: "Powerful but expensive.", Tags: []string{"screen reader", "expensive"}},
			},
		},
		{
			Technology: service.CreateTechnologyInput{
				Name:               "Live Transcribe",
				Category:           string(domain.CategoryAuditory),
				Description:        "Real-time speech to text captioning on Android devices.",
				KeyFeatures:        "Live captions, Sound notifications, Offline mode",
				SystemRequirements: "Android 8 or later",
				Cost:               string(domain.CostFree),
				CoreVitals:         domain.CoreVitals{EaseOfUse: 5, FeaturesRating: 4, ValueForMoney: 5, CustomerSupport: 3},
				FeatureComparison:  domain.FeatureComparison{Security: "yes", Community: "yes"},
			},
			Reviews: []fixtureReview{
				{UserID: "seed-student-3", Rating: 5, Feedback: "I follow every lecture with it.", Tags: []string{"captions", "lectures"}},
				{UserID: "seed-student-4", Rating: 4, Feedback: "Struggles with technical vocabulary.", Tags: []string{"captions"}},
			},
		},
		{
			Technology: service.CreateTechnologyInput{
				Name:               "Dragon NaturallySpeaking",
				Category:           string(domain.CategoryPhysical),
				Description:        "Speech recognition for dictation and hands-free computer control.",
				KeyFeatures:        "Dictation, Voice commands, Custom vocabulary",
				SystemRequirements: "Windows 10, 8 GB RAM",
				Cost:               string(domain.CostMedium),
				CoreVitals:         domain.CoreVitals{EaseOfUse: 3.5, FeaturesRating: 4.5, ValueForMoney: 3, CustomerSupport: 4},
				FeatureComparison:  domain.FeatureComparison{Security: "yes", Integration: "yes", Support: "yes", UserManagement: "yes"},
			},
			Reviews: []fixtureReview{
				{UserID: "seed-student-5", Rating: 4, Feedback: "Essential for writing essays.", Tags: []string{"dictation"}},
			},
		},
		{
			Technology: service.CreateTechnologyInput{
				Name:               "Read&Write",
				Category:           string(domain.CategoryCognitive),
				Description:        "Literacy toolbar with text to speech, word prediction and study tools.",
				KeyFeatures:        "Text to speech, Word prediction, Highlighters",
				SystemRequirements: "Windows, macOS, Chrome",
				Cost:               string(domain.CostLow),
				CoreVitals:         domain.CoreVitals{EaseOfUse: 4.5, FeaturesRating: 4, ValueForMoney: 4, CustomerSupport: 4},
				FeatureComparison:  domain.FeatureComparison{Integration: "yes", Support: "yes", UserManagement: "yes", Webhooks: "no"},
			},
			Reviews: []fixtureReview{
				{UserID: "seed-educator-2", Rating: 5, Feedback: "Our dyslexic students rely on it.", Tags: []string{"dyslexia", "classroom"}},
			},
		},
	}
}
