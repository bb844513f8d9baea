// Package events publishes domain events to Kafka.
package events

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xenking/kart-store/internal/codec"
	"github.com/xenking/kart-store/internal/domain/order"
)

// OrderSubmittedType is the type header of order submission events.
const OrderSubmittedType = "order.submitted"

// ErrClosed is returned when publishing after Close.
var ErrClosed = errors.New("publisher closed")

var (
	_ order.Publisher = (*KafkaPublisher)(nil)
	_ order.Publisher = Nop{}
)

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	MaxAttempts  int
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per submitted order, keyed by user ID so
// a user's orders stay in partition order.
type KafkaPublisher struct {
	w      messageWriter
	topic  string
	newID  func() string
	closed atomic.Bool
}

// NewKafkaPublisher creates a synchronous publisher for cfg.Topic.
func NewKafkaPublisher(cfg KafkaConfig, lg *zap.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		MaxAttempts:            cfg.MaxAttempts,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			lg.Warn("Kafka writer", zap.String("detail", fmt.Sprintf(msg, args...)))
		}),
	}
	return newKafkaPublisher(w, cfg.Topic), nil
}

func newKafkaPublisher(w messageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w:     w,
		topic: topic,
		newID: func() string { return uuid.New().String() },
	}
}

// OrderSubmitted publishes o.
func (p *KafkaPublisher) OrderSubmitted(ctx context.Context, o *order.Order) error {
	if p.closed.Load() {
		return ErrClosed
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(o.UserID, 10)),
		Value: encodeOrderSubmitted(p.newID(), o),
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(OrderSubmittedType)},
		},
		Time: o.CreatedAt,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "publish order %d to %s", o.ID, p.topic)
	}
	return nil
}

// Close flushes pending messages and releases the writer.
func (p *KafkaPublisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.w.Close()
}

func encodeOrderSubmitted(eventID string, o *order.Order) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("eventId")
	e.Str(eventID)
	e.FieldStart("type")
	e.Str(OrderSubmittedType)
	e.FieldStart("order")
	codec.EncodeOrder(e, o)
	e.ObjEnd()
	return append([]byte(nil), e.Bytes()...)
}

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

func (Nop) OrderSubmitted(context.Context, *order.Order) error { return nil }
