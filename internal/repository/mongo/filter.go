package mongo

import (
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/godfreymatagaro/eduability/internal/search"
)

// containsRegex matches s as a literal, case-insensitive substring.
func containsRegex(s string) bson.Regex {
	return bson.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// searchFilter translates plan into a find filter. taggedIDs are the
// technologies whose reviews carry a tag matching the query.
func searchFilter(plan search.Plan, taggedIDs []string) bson.D {
	filter := bson.D{}

	if plan.Query != "" {
		re := containsRegex(plan.Query)
		or := bson.A{
			bson.D{{Key: "name", Value: re}},
			bson.D{{Key: "description", Value: re}},
			bson.D{{Key: "key_features", Value: re}},
			bson.D{{Key: "category", Value: re}},
		}
		if len(taggedIDs) > 0 {
			or = append(or, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: taggedIDs}}}})
		}
		filter = append(filter, bson.E{Key: "$or", Value: or})
	}

	r := plan.Restriction
	if r.MinRating != nil {
		filter = append(filter, bson.E{Key: "rating", Value: bson.D{{Key: "$gte", Value: *r.MinRating}}})
	}
	if r.Cost != "" {
		filter = append(filter, bson.E{Key: "cost", Value: string(r.Cost)})
	}
	if r.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: string(r.Category)})
	}
	return filter
}

// sortFor maps a sort field to a sort document with the id tie-break.
func sortFor(field search.SortField) bson.D {
	key := "rating"
	switch field {
	case search.SortReviewsCount:
		key = "reviews_count"
	case search.SortCreatedAt:
		key = "created_at"
	}
	return bson.D{{Key: key, Value: -1}, {Key: "_id", Value: 1}}
}
