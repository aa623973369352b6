package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/godfreymatagaro/eduability/internal/cache"
	"github.com/godfreymatagaro/eduability/internal/domain"
	"github.com/godfreymatagaro/eduability/internal/event"
	"github.com/godfreymatagaro/eduability/internal/heuristic"
	"github.com/godfreymatagaro/eduability/internal/repository/memory"
	"github.com/godfreymatagaro/eduability/internal/search"
	apperrors "github.com/godfreymatagaro/eduability/pkg/errors"
	pkgkafka "github.com/godfreymatagaro/eduability/pkg/kafka"
	"github.com/godfreymatagaro/eduability/pkg/pagination"
)

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

type mockExternal struct {
	mock.Mock
}

func (m *mockExternal) Search(ctx context.Context, query string) ([]heuristic.ExternalResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]heuristic.ExternalResult), args.Error(1)
}

type fixture struct {
	store        *memory.Store
	mr           *miniredis.Miniredis
	publisher    *recordingPublisher
	technologies *TechnologyService
	reviews      *ReviewService
	search       *SearchService
	external     *mockExternal
}

func newFixture(t *testing.T, mode AggregationMode) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return newFixtureWithCache(t, mode, cache.NewRedis(client, time.Hour), mr)
}

func newFixtureWithCache(t *testing.T, mode AggregationMode, c cache.Cache, mr *miniredis.Miniredis) *fixture {
	t.Helper()
	logger := newTestLogger()
	store := memory.New()
	pub := &recordingPublisher{}
	producer := event.NewProducer(pub, logger)
	external := new(mockExternal)

	techs := NewTechnologyService(store, c, producer, logger, heuristic.TagBonusQueryOverlap)
	return &fixture{
		store:        store,
		mr:           mr,
		publisher:    pub,
		technologies: techs,
		reviews:      NewReviewService(store, c, producer, techs, mode, logger),
		search:       NewSearchService(store, external, logger),
		external:     external,
	}
}

func nvdaInput() CreateTechnologyInput {
	return CreateTechnologyInput{
		Name:               "NVDA",
		Category:           "visual",
		Description:        "Free screen reader for Windows",
		KeyFeatures:        "Speech output, Braille support",
		SystemRequirements: "Windows 10",
		Cost:               "free",
		CoreVitals:         domain.CoreVitals{EaseOfUse: 4, FeaturesRating: 5, ValueForMoney: 5, CustomerSupport: 3},
		FeatureComparison:  domain.FeatureComparison{Security: "yes", API: "yes", Community: "yes"},
	}
}

func jawsInput() CreateTechnologyInput {
	return CreateTechnologyInput{
		Name:        "JAWS",
		Category:    "visual",
		Description: "Commercial screen reader",
		KeyFeatures: "Scripting, Braille support",
		Cost:        "high",
		CoreVitals:  domain.CoreVitals{EaseOfUse: 3, FeaturesRating: 4, ValueForMoney: 2, CustomerSupport: 4},
	}
}

func captionInput() CreateTechnologyInput {
	return CreateTechnologyInput{
		Name:        "Live Captions",
		Category:    "auditory",
		Description: "Real-time captioning",
		Cost:        "low",
	}
}

func (f *fixture) create(t *testing.T, in CreateTechnologyInput) *domain.Technology {
	t.Helper()
	tech, err := f.technologies.CreateTechnology(context.Background(), in)
	require.NoError(t, err)
	return tech
}

func (f *fixture) review(t *testing.T, techID, userID string, rating int, tags ...string) *domain.Review {
	t.Helper()
	rv, err := f.reviews.CreateReview(context.Background(), techID, userID, ReviewInput{Rating: rating, Tags: tags})
	require.NoError(t, err)
	return rv
}

// --- TechnologyService ---

func TestCreateTechnology_Validation(t *testing.T) {
	f := newFixture(t, AggregationInline)

	tests := []struct {
		name   string
		mutate func(*CreateTechnologyInput)
	}{
		{"blank name", func(in *CreateTechnologyInput) { in.Name = "  " }},
		{"bad category", func(in *CreateTechnologyInput) { in.Category = "tactile" }},
		{"bad cost", func(in *CreateTechnologyInput) { in.Cost = "cheap" }},
		{"vital out of range", func(in *CreateTechnologyInput) { in.CoreVitals.EaseOfUse = 6 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := nvdaInput()
			tt.mutate(&in)
			_, err := f.technologies.CreateTechnology(context.Background(), in)
			assert.True(t, apperrors.Is(err, apperrors.KindInvalidInput))
		})
	}
	assert.Empty(t, f.publisher.Topics())
}

func TestCreateTechnology_Success(t *testing.T) {
	f := newFixture(t, AggregationInline)
	for _, key := range []string{"technologies:visual", "technologies:all", "technologies:auditory"} {
		require.NoError(t, f.mr.Set(key, "[]"))
	}

	tech := f.create(t, nvdaInput())

	assert.NotEmpty(t, tech.ID)
	assert.True(t, strings.HasPrefix(tech.PublicID, "nvda-"))
	assert.Len(t, tech.PublicID, len("nvda-")+8)
	assert.Zero(t, tech.Rating)
	assert.Zero(t, tech.ReviewsCount)

	assert.False(t, f.mr.Exists("technologies:visual"))
	assert.False(t, f.mr.Exists("technologies:all"))
	assert.True(t, f.mr.Exists("technologies:auditory"))
	assert.Equal(t, []string{event.TopicTechnologyCreated}, f.publisher.Topics())
}

func TestGetTechnology_ByIDOrPublicID(t *testing.T) {
	f := newFixture(t, AggregationInline)
	tech := f.create(t, nvdaInput())
	ctx := context.Background()

	byID, err := f.technologies.GetTechnology(ctx, tech.ID)
	require.NoError(t, err)
	byPublic, err := f.technologies.GetTechnology(ctx, tech.PublicID)
	require.NoError(t, err)
	assert.Equal(t, byID, byPublic)

	_, err = f.technologies.GetTechnology(ctx, "nope")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestListTechnologies_ReadThrough(t *testing.T) {
	f := newFixture(t, AggregationInline)
	f.create(t, jawsInput())
	f.create(t, nvdaInput())
	f.create(t, captionInput())
	ctx := context.Background()

	first, err := f.technologies.ListTechnologies(ctx, "visual")
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.True(t, f.mr.Exists("technologies:visual"))
	assert.Equal(t, time.Hour, f.mr.TTL("technologies:visual"))

	second, err := f.technologies.ListTechnologies(ctx, "visual")
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Payload, second.Payload)

	var techs []domain.Technology
	require.NoError(t, json.Unmarshal(second.Payload, &techs))
	assert.Len(t, techs, 2)

	all, err := f.technologies.ListTechnologies(ctx, "")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(all.Payload, &techs))
	assert.Len(t, techs, 3)
}

func TestListTechnologies_InvalidatedByCreate(t *testing.T) {
	f := newFixture(t, AggregationInline)
	f.create(t, nvdaInput())
	ctx := context.Background()

	_, err := f.technologies.ListTechnologies(ctx, "visual")
	require.NoError(t, err)

	f.create(t, jawsInput())

	listing, err := f.technologies.ListTechnologies(ctx, "visual")
	require.NoError(t, err)
	assert.False(t, listing.CacheHit)

	var techs []domain.Technology
	require.NoError(t, json.Unmarshal(listing.Payload, &techs))
	assert.Len(t, techs, 2)
}

// interleavingCache runs beforeFill once, after the store has been read
// and before the first refill reaches the cache.
type interleavingCache struct {
	cache.Cache
	once       sync.Once
	beforeFill func()
}

func (c *interleavingCache) Fill(ctx context.Context, key string, value []byte, stamp cache.Stamp) (bool, error) {
	if c.beforeFill != nil {
		c.once.Do(c.beforeFill)
	}
	return c.Cache.Fill(ctx, key, value, stamp)
}

func TestListTechnologies_WriteDuringRefillIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ic := &interleavingCache{Cache: cache.NewRedis(client, time.Hour)}
	f := newFixtureWithCache(t, AggregationInline, ic, mr)
	f.create(t, nvdaInput())
	ic.beforeFill = func() { f.create(t, jawsInput()) }
	ctx := context.Background()

	count := func(l *Listing) int {
		var techs []domain.Technology
		require.NoError(t, json.Unmarshal(l.Payload, &techs))
		return len(techs)
	}

	first, err := f.technologies.ListTechnologies(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, count(first))
	assert.False(t, mr.Exists("technologies:all"), "snapshot older than the create must not be cached")

	second, err := f.technologies.ListTechnologies(ctx, "")
	require.NoError(t, err)
	assert.False(t, second.CacheHit)
	assert.Equal(t, 2, count(second))

	third, err := f.technologies.ListTechnologies(ctx, "")
	require.NoError(t, err)
	assert.True(t, third.CacheHit)
	assert.Equal(t, 2, count(third))
}

func TestListTechnologies_InvalidCategory(t *testing.T) {
	f := newFixture(t, AggregationInline)
	_, err := f.technologies.ListTechnologies(context.Background(), "tactile")
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidInput))
}

func TestListTechnologies_CacheFailureFallsBackToStore(t *testing.T) {
	f := newFixture(t, AggregationInline)
	f.create(t, nvdaInput())
	f.mr.SetError("ERR backend unavailable")

	listing, err := f.technologies.ListTechnologies(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, listing.CacheHit)

	var techs []domain.Technology
	require.NoError(t, json.Unmarshal(listing.Payload, &techs))
	assert.Len(t, techs, 1)
}

func TestListTechnologies_NopCache(t *testing.T) {
	f := newFixtureWithCache(t, AggregationInline, cache.Nop{}, nil)
	f.create(t, nvdaInput())

	for range 2 {
		listing, err := f.technologies.ListTechnologies(context.Background(), "")
		require.NoError(t, err)
		assert.False(t, listing.CacheHit)
	}
}

func TestDeleteTechnology_Cascade(t *testing.T) {
	f := newFixture(t, AggregationInline)
	tech := f.create(t, nvdaInput())
	other := f.create(t, jawsInput())
	f.review(t, tech.ID, "u-1", 5)
	f.review(t, tech.ID, "u-2", 3)
	f.review(t, other.ID, "u-1", 4)
	ctx := context.Background()

	_, err := f.technologies.ListTechnologies(ctx, "visual")
	require.NoError(t, err)
	_, err = f.technologies.GetSummary(ctx, tech.ID)
	require.NoError(t, err)

	removed, err := f.technologies.DeleteTechnology(ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.False(t, f.mr.Exists("technologies:visual"))
	assert.False(t, f.mr.Exists("summary:"+tech.ID))

	_, err = f.technologies.GetTechnology(ctx, tech.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	remaining, _, err := f.store.Reviews().ListAll(ctx, pagination.DefaultParams())
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	_, err = f.technologies.DeleteTechnology(ctx, tech.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	assert.Contains(t, f.publisher.Topics(), event.TopicTechnologyDeleted)
}

func TestGetSummary_CachedAndInvalidated(t *testing.T) {
	f := newFixture(t, AggregationInline)
	tech := f.create(t, nvdaInput())
	f.review(t, tech.ID, "u-1", 5, "Easy", "free")
	ctx := context.Background()

	summary, err := f.technologies.GetSummary(ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Reviews.TotalCount)
	assert.Equal(t, 5.0, summary.Technology.Rating)
	assert.True(t, f.mr.Exists("summary:"+tech.ID))

	f.review(t, tech.ID, "u-2", 4, "easy")
	assert.False(t, f.mr.Exists("summary:"+tech.ID))

	summary, err = f.technologies.GetSummary(ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Reviews.TotalCount)
	assert.Equal(t, 4.5, summary.Reviews.AverageRating)
	assert.Equal(t, domain.TagCount{Tag: "easy", Count: 2}, summary.Reviews.TopTags[0])

	_, err = f.technologies.GetSummary(ctx, "missing")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestQuickSearch(t *testing.T) {
	f := newFixture(t, AggregationInline)
	f.create(t, nvdaInput())
	f.create(t, jawsInput())
	f.create(t, captionInput())

	results, err := f.technologies.QuickSearch(context.Background(), "screen reader")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	for _, r := range results {
		assert.Equal(t, domain.CategoryVisual, r.Technology.Category)
		assert.Positive(t, r.Score)
	}

	none, err := f.technologies.QuickSearch(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCompare(t *testing.T) {
	f := newFixture(t, AggregationInline)
	nvda := f.create(t, nvdaInput())
	jaws := f.create(t, jawsInput())
	ctx := context.Background()

	prefs := heuristic.Preferences{Category: domain.CategoryVisual, Budget: 100, PrioritizedFeatures: []string{"api"}}
	results, err := f.technologies.Compare(ctx, []string{jaws.ID, nvda.ID, jaws.ID}, prefs)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, nvda.ID, results[0].Technology.ID)
	assert.Greater(t, results[0].FitScore, results[1].FitScore)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.FitScore, 0.0)
		assert.LessOrEqual(t, r.FitScore, 100.0)
	}
}

func TestCompare_Errors(t *testing.T) {
	f := newFixture(t, AggregationInline)
	nvda := f.create(t, nvdaInput())
	ctx := context.Background()

	_, err := f.technologies.Compare(ctx, []string{" "}, heuristic.Preferences{})
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidInput))

	many := make([]string, MaxCompare+1)
	for i := range many {
		many[i] = string(rune('a' + i))
	}
	_, err = f.technologies.Compare(ctx, many, heuristic.Preferences{})
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidInput))

	_, err = f.technologies.Compare(ctx, []string{nvda.ID}, heuristic.Preferences{Budget: -1})
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidInput))

	_, err = f.technologies.Compare(ctx, []string{nvda.ID}, heuristic.Preferences{Category: "tactile"})
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidInput))

	_, err = f.technologies.Compare(ctx, []string{nvda.ID, "ghost"}, heuristic.Preferences{})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	assert.Contains(t, err.Error(), "ghost")
}

// --- ReviewService ---

func TestCreateReview_RecomputesAggregates(t *testing.T) {
	f := newFixture(t, AggregationInline)
	tech := f.create(t, nvdaInput())
	ctx := context.Background()

	rv := f.review(t, tech.ID, "u-1", 5, " Easy ", "easy", "")
	assert.Equal(t, []string{"easy"}, rv.Tags)
	f.review(t, tech.ID, "u-2", 4)

	got, err := f.technologies.GetTechnology(ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, got.Rating)
	assert.Equal(t, 2, got.ReviewsCount)

	require.NoError(t, f.reviews.DeleteReview(ctx, rv.ID, Actor{UserID: "u-1"}))
	got, err = f.technologies.GetTechnology(ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.Rating)
	assert.Equal(t, 1, got.ReviewsCount)

	assert.Equal(t, []string{
		event.TopicTechnologyCreated,
		event.TopicReviewCreated,
		event.TopicReviewCreated,
		event.TopicReviewDeleted,
	}, f.publisher.Topics())
}

func TestCreateReview_ConcurrentRefreshesCountEveryReview(t *testing.T) {
	f := newFixture(t, AggregationInline)
	tech := f.create(t, captionInput())
	ctx := context.Background()

	const writers = 12
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.reviews.CreateReview(ctx, tech.ID, fmt.Sprintf("u-%d", i), ReviewInput{Rating: 1 + i%5})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := f.store.Technologies().GetByID(ctx, tech.ID)
	require.NoError(t, err)
	summary, err := f.store.Reviews().Summary(ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, writers, got.ReviewsCount)
	assert.Equal(t, summary.AverageRating, got.Rating)
}

func TestCreateReview_Validation(t *testing.T) {
	f := newFixture(t, AggregationInline)
	tech := f.create(t, nvdaInput())
	ctx := context.Background()

	_, err := f.reviews.CreateReview(ctx, tech.ID, "", ReviewInput{Rating: 4})
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthorized))

	for _, rating := range []int{0, 6} {
		_, err = f.reviews.CreateReview(ctx, tech.ID, "u-1", ReviewInput{Rating: rating})
		assert.True(t, apperrors.Is(err, apperrors.KindInvalidInput))
	}

	_, err = f.reviews.CreateReview(ctx, "ghost", "u-1", ReviewInput{Rating: 4})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestUpdateReview_OwnerOnly(t *testing.T) {
	f := newFixture(t, AggregationInline)
	tech := f.create(t, nvdaInput())
	rv := f.review(t, tech.ID, "u-1", 2)
	ctx := context.Background()

	five := 5
	_, err := f.reviews.UpdateReview(ctx, rv.ID, "u-2", ReviewPatch{Rating: &five})
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	bad := 9
	_, err = f.reviews.UpdateReview(ctx, rv.ID, "u-1", ReviewPatch{Rating: &bad})
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidInput))

	feedback := "  Much better after the update "
	updated, err := f.reviews.UpdateReview(ctx, rv.ID, "u-1", ReviewPatch{
		Rating: &five, Feedback: &feedback, Tags: []string{"Stable"}, SetTags: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, "Much better after the update", updated.Feedback)
	assert.Equal(t, []string{"stable"}, updated.Tags)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	got, err := f.technologies.GetTechnology(ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.Rating)

	_, err = f.reviews.UpdateReview(ctx, "ghost", "u-1", ReviewPatch{})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestDeleteReview_OwnerOrAdmin(t *testing.T) {
	f := newFixture(t, AggregationInline)
	tech := f.create(t, nvdaInput())
	first := f.review(t, tech.ID, "u-1", 2)
	second := f.review(t, tech.ID, "u-1", 3)
	ctx := context.Background()

	err := f.reviews.DeleteReview(ctx, first.ID, Actor{UserID: "u-2"})
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	err = f.reviews.DeleteReview(ctx, first.ID, Actor{})
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthorized))

	require.NoError(t, f.reviews.DeleteReview(ctx, first.ID, Actor{UserID: "admin-1", Admin: true}))
	require.NoError(t, f.reviews.DeleteReview(ctx, second.ID, Actor{UserID: "u-1"}))

	got, err := f.technologies.GetTechnology(ctx, tech.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Rating)
	assert.Zero(t, got.ReviewsCount)
}

func TestReviews_EventsModeSkipsInlineRefresh(t *testing.T) {
	f := newFixture(t, AggregationEvents)
	tech := f.create(t, nvdaInput())
	f.review(t, tech.ID, "u-1", 5)

	got, err := f.technologies.GetTechnology(context.Background(), tech.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ReviewsCount)
	assert.Contains(t, f.publisher.Topics(), event.TopicReviewCreated)

	consumer := event.NewConsumer(f.technologies, newTestLogger())
	e, err := pkgkafka.NewEvent(event.TopicReviewCreated, tech.ID, event.AggregateTypeReview, event.SourceCatalogService,
		event.ReviewEventData{TechnologyID: tech.ID})
	require.NoError(t, err)
	require.NoError(t, consumer.HandleReviewEvent(context.Background(), e))

	got, err = f.technologies.GetTechnology(context.Background(), tech.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReviewsCount)
	assert.Equal(t, 5.0, got.Rating)
}

func TestListReviews_Cached(t *testing.T) {
	f := newFixture(t, AggregationInline)
	tech := f.create(t, nvdaInput())
	f.review(t, tech.ID, "u-1", 4)
	ctx := context.Background()

	reviews, err := f.reviews.ListReviews(ctx, tech.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.True(t, f.mr.Exists("reviews:"+tech.ID))

	// A write behind the service's back is not visible until invalidation.
	require.NoError(t, f.store.Reviews().Create(ctx, &domain.Review{ID: "direct", TechnologyID: tech.ID, UserID: "u-9", Rating: 1}))
	reviews, err = f.reviews.ListReviews(ctx, tech.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)

	f.review(t, tech.ID, "u-2", 5)
	reviews, err = f.reviews.ListReviews(ctx, tech.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 3)

	_, err = f.reviews.ListReviews(ctx, "ghost")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestListAllReviews(t *testing.T) {
	f := newFixture(t, AggregationInline)
	tech := f.create(t, nvdaInput())
	for i := 1; i <= 5; i++ {
		f.review(t, tech.ID, "u-1", i)
	}

	page, err := f.reviews.ListAllReviews(context.Background(), pagination.Params{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Data, 2)
	assert.True(t, page.HasNext)
	assert.True(t, page.HasPrev)
}

// --- SearchService ---

func TestSearch_PrecedenceAndTags(t *testing.T) {
	f := newFixture(t, AggregationInline)
	nvda := f.create(t, nvdaInput())
	jaws := f.create(t, jawsInput())
	captions := f.create(t, captionInput())
	f.review(t, captions.ID, "u-1", 5, "classroom")
	f.review(t, nvda.ID, "u-1", 5)
	f.review(t, jaws.ID, "u-1", 3)
	ctx := context.Background()

	results, err := f.search.Search(ctx, "CLASS", search.Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, captions.ID, results[0].ID)

	results, err = f.search.Search(ctx, "screen", search.Filter{HighestRatings: "no"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, nvda.ID, results[0].ID)

	results, err = f.search.Search(ctx, "", search.Filter{Popularity: "1", Category: "auditory"})
	require.NoError(t, err)
	assert.Len(t, results, 3)

	_, err = f.search.Search(ctx, "", search.Filter{Rating: "high"})
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidInput))
}

func TestSearchExternal(t *testing.T) {
	f := newFixture(t, AggregationInline)
	ctx := context.Background()

	f.external.On("Search", ctx, "screen reader").Return([]heuristic.ExternalResult{
		{Title: "Best screen reader for students", URL: "https://a.example", Content: "assistive technology for blind learners"},
		{Title: "Cooking recipes", URL: "https://b.example", Content: "pasta"},
	}, nil).Once()

	results, err := f.search.SearchExternal(ctx, "screen reader")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://a.example", results[0].URL)

	empty, err := f.search.SearchExternal(ctx, " ")
	require.NoError(t, err)
	assert.Empty(t, empty)

	f.external.On("Search", ctx, "braille").Return(nil, apperrors.DependencyUnavailable("searxng", errors.New("timeout"))).Once()
	_, err = f.search.SearchExternal(ctx, "braille")
	assert.True(t, apperrors.Is(err, apperrors.KindDependencyUnavailable))

	f.external.AssertExpectations(t)
}

func TestSearchExternal_NoProvider(t *testing.T) {
	svc := NewSearchService(memory.New(), nil, newTestLogger())
	_, err := svc.SearchExternal(context.Background(), "braille")
	assert.True(t, apperrors.Is(err, apperrors.KindDependencyUnavailable))
}
