package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// OrderPlacedTopic receives one message per stored order
const OrderPlacedTopic = "orders.placed"

// MessageWriter is the subset of *kafka.Writer used for publishing
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher emits order.placed events. A nil writer disables publishing.
type Publisher struct {
	writer MessageWriter
}

// NewKafkaPublisher returns a publisher for the comma separated broker list,
// or a disabled publisher when the list is empty
func NewKafkaPublisher(brokersCSV string) *Publisher {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return &Publisher{}
	}
	return NewPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  OrderPlacedTopic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	})
}

func NewPublisher(writer MessageWriter) *Publisher {
	return &Publisher{writer: writer}
}

// Enabled reports whether events are actually sent
func (p *Publisher) Enabled() bool {
	return p.writer != nil
}

// OrderPlaced publishes the event keyed by customer email so one customer's
// orders stay in order on a partition
func (p *Publisher) OrderPlaced(ctx context.Context, order *models.PersistedOrder) error {
	if !p.Enabled() {
		return nil
	}
	event := models.OrderPlacedEvent{
		ID:        order.ID,
		OrderID:   order.OrderID,
		PaymentID: order.PaymentID,
		Email:     order.CustomerEmail,
		Total:     order.Total,
		Currency:  order.Currency,
		Items:     len(order.Items),
		PlacedAt:  order.CreatedAt,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strings.ToLower(order.CustomerEmail)),
		Value: data,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("order.placed")},
		},
	})
	if err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	log.WithField("order_id", order.ID).Debug("Order event published")
	return nil
}

// Close flushes and closes the writer
func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.writer.Close()
}
