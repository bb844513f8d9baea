package events

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-store/internal/codec"
	"github.com/xenking/kart-store/internal/domain/item"
	"github.com/xenking/kart-store/internal/domain/order"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed int
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed++
	return nil
}

func testOrder() *order.Order {
	return &order.Order{
		ID:        12,
		UserID:    7,
		Items:     []item.Item{{ID: 1, Name: "apple", Price: decimal.RequireFromString("1.99")}},
		Total:     decimal.RequireFromString("1.99"),
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisher_OrderSubmitted(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, "orders")
	p.newID = func() string { return "evt-1" }

	require.NoError(t, p.OrderSubmitted(context.Background(), testOrder()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "7", string(msg.Key))
	assert.Equal(t, []kafka.Header{{Key: "type", Value: []byte(OrderSubmittedType)}}, msg.Headers)

	var (
		eventID string
		got     *order.Order
	)
	err := jx.DecodeBytes(msg.Value).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "eventId":
			v, err := d.Str()
			eventID = v
			return err
		case "order":
			o, err := codec.DecodeOrder(d)
			got = o
			return err
		default:
			return d.Skip()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", eventID)
	require.NotNil(t, got)
	assert.Equal(t, int64(12), got.ID)
	assert.Equal(t, "1.99", got.Total.String())
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newKafkaPublisher(w, "orders")

	err := p.OrderSubmitted(context.Background(), testOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish order 12 to orders")
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, "orders")

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, w.closed)

	err := p.OrderSubmitted(context.Background(), testOrder())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{Topic: "orders"}, nil)
	assert.Error(t, err)
	_, err = NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	assert.Error(t, err)
}
