package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearvn/storefront/internal/domain"
	pkgkafka "github.com/gearvn/storefront/pkg/kafka"
	"github.com/gearvn/storefront/pkg/logger"
)

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func newTestProducer(w *recordingWriter) *Producer {
	kp := pkgkafka.NewProducerWithWriter(w, []string{"localhost:9092"}, logger.Discard())
	return NewProducer(kp, DefaultTopics(), logger.Discard())
}

func TestPublishOrderPlaced(t *testing.T) {
	w := &recordingWriter{}
	p := newTestProducer(w)
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")

	err := p.PublishOrderPlaced(ctx, OrderPlacedData{
		SessionID:   "sess-1",
		OrderID:     "o-1",
		Items:       []domain.OrderItem{{ProductID: "a", Quantity: 2, Price: 500_000}},
		TotalAmount: 1_200_000,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, TopicOrderPlaced, msg.Topic)
	assert.Equal(t, "sess-1", string(msg.Key))

	event, err := pkgkafka.Decode(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, AggregateTypeOrder, event.Aggregate)
	assert.Equal(t, TopicOrderPlaced, event.Type)
	assert.Equal(t, SourceStorefront, event.Source)
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.Equal(t, "o-1", event.Metadata["order_id"])

	var data OrderPlacedData
	require.NoError(t, event.DecodeData(&data))
	assert.Equal(t, int64(1_200_000), data.TotalAmount)
	assert.Len(t, data.Items, 1)
}

func TestPublishCartCleared_CustomTopic(t *testing.T) {
	w := &recordingWriter{}
	kp := pkgkafka.NewProducerWithWriter(w, nil, logger.Discard())
	p := NewProducer(kp, Topics{OrderPlaced: "o", CartCleared: "gearvn.cart.cleared"}, logger.Discard())

	require.NoError(t, p.PublishCartCleared(context.Background(), "sess-1", ClearReasonShopper))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "gearvn.cart.cleared", w.msgs[0].Topic)

	event, err := pkgkafka.Decode(w.msgs[0].Value)
	require.NoError(t, err)
	var data CartClearedData
	require.NoError(t, event.DecodeData(&data))
	assert.Equal(t, CartClearedData{SessionID: "sess-1", Reason: ClearReasonShopper}, data)
}

func TestPublish_WriterError(t *testing.T) {
	p := newTestProducer(&recordingWriter{err: errors.New("broker down")})

	err := p.PublishCartCleared(context.Background(), "sess-1", ClearReasonOrderPlaced)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish cart.cleared event")
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.PublishOrderPlaced(context.Background(), OrderPlacedData{}))
	assert.NoError(t, p.PublishCartCleared(context.Background(), "s", "r"))
}
