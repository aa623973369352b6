package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godfreymatagaro/eduability/internal/domain"
	apperrors "github.com/godfreymatagaro/eduability/pkg/errors"
	pkgkafka "github.com/godfreymatagaro/eduability/pkg/kafka"
	"github.com/godfreymatagaro/eduability/pkg/logger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type published struct {
	topic string
	event *pkgkafka.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{topic: topic, event: event})
	return nil
}

func TestProducer_TechnologyEvents(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, discardLogger())
	tech := &domain.Technology{ID: "t-1", PublicID: "nvda-12345678", Name: "NVDA", Category: domain.CategoryVisual}

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	require.NoError(t, p.PublishTechnologyCreated(ctx, tech))
	require.NoError(t, p.PublishTechnologyDeleted(ctx, tech, 3))

	require.Len(t, pub.events, 2)
	assert.Equal(t, TopicTechnologyCreated, pub.events[0].topic)
	assert.Equal(t, "t-1", pub.events[0].event.AggregateID)
	assert.Equal(t, AggregateTypeTechnology, pub.events[0].event.AggregateType)
	assert.Equal(t, "corr-1", pub.events[0].event.CorrelationID)

	var data TechnologyEventData
	require.NoError(t, pub.events[1].event.UnmarshalData(&data))
	assert.Equal(t, TechnologyEventData{
		TechnologyID: "t-1", PublicID: "nvda-12345678", Name: "NVDA", Category: "visual", ReviewsRemoved: 3,
	}, data)
}

func TestProducer_ReviewEventsKeyedByTechnology(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, discardLogger())
	rv := &domain.Review{ID: "r-1", TechnologyID: "t-1", UserID: "u-1", Rating: 4}

	require.NoError(t, p.PublishReviewCreated(context.Background(), rv))
	require.NoError(t, p.PublishReviewUpdated(context.Background(), rv))
	require.NoError(t, p.PublishReviewDeleted(context.Background(), rv))

	require.Len(t, pub.events, 3)
	topics := []string{pub.events[0].topic, pub.events[1].topic, pub.events[2].topic}
	assert.Equal(t, ReviewTopics(), topics)
	for _, e := range pub.events {
		assert.Equal(t, "t-1", e.event.AggregateID)
		assert.Empty(t, e.event.CorrelationID)
	}
}

func TestProducer_PublishError(t *testing.T) {
	p := NewProducer(&recordingPublisher{err: errors.New("broker down")}, discardLogger())
	err := p.PublishReviewCreated(context.Background(), &domain.Review{TechnologyID: "t-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), TopicReviewCreated)
}

func TestNopPublisher(t *testing.T) {
	p := NewProducer(NopPublisher{}, discardLogger())
	assert.NoError(t, p.PublishTechnologyCreated(context.Background(), &domain.Technology{ID: "t-1"}))
}

type fakeRefresher struct {
	calls []string
	err   error
}

func (f *fakeRefresher) RefreshAggregates(_ context.Context, id string) error {
	f.calls = append(f.calls, id)
	return f.err
}

func reviewEvent(t *testing.T, technologyID string) *pkgkafka.Event {
	t.Helper()
	e, err := pkgkafka.NewEvent(TopicReviewCreated, technologyID, AggregateTypeReview, SourceCatalogService,
		ReviewEventData{ReviewID: "r-1", TechnologyID: technologyID, Rating: 5})
	require.NoError(t, err)
	return e
}

func TestConsumer_RefreshesAggregates(t *testing.T) {
	r := &fakeRefresher{}
	c := NewConsumer(r, discardLogger())

	require.NoError(t, c.HandleReviewEvent(context.Background(), reviewEvent(t, "t-1")))
	assert.Equal(t, []string{"t-1"}, r.calls)
}

func TestConsumer_SkipsMissingTechnology(t *testing.T) {
	r := &fakeRefresher{err: apperrors.NotFound("technology", "t-9")}
	c := NewConsumer(r, discardLogger())

	assert.NoError(t, c.HandleReviewEvent(context.Background(), reviewEvent(t, "t-9")))
}

func TestConsumer_PropagatesStoreErrors(t *testing.T) {
	r := &fakeRefresher{err: errors.New("timeout")}
	c := NewConsumer(r, discardLogger())

	err := c.HandleReviewEvent(context.Background(), reviewEvent(t, "t-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "t-1")
}

func TestConsumer_BadPayload(t *testing.T) {
	c := NewConsumer(&fakeRefresher{}, discardLogger())

	err := c.HandleReviewEvent(context.Background(), &pkgkafka.Event{EventType: TopicReviewCreated, Data: []byte(`"nope"`)})
	assert.Error(t, err)

	empty := reviewEvent(t, "")
	assert.NoError(t, c.HandleReviewEvent(context.Background(), empty))
}

func TestConsumer_HandlerSkipsDuplicates(t *testing.T) {
	r := &fakeRefresher{}
	h := NewConsumer(r, discardLogger()).Handler(pkgkafka.NewMemoryIdempotencyStore(time.Hour))

	e := reviewEvent(t, "t-1")
	require.NoError(t, h(context.Background(), e))
	require.NoError(t, h(context.Background(), e))
	assert.Len(t, r.calls, 1)
}
