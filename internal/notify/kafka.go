package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"august/internal/domain"
)

// KafkaDispatcher публикует уведомления в топик, ключ — номер заказа,
// чтобы события одного заказа попадали в одну партицию
type KafkaDispatcher struct {
	writer *kafka.Writer
}

// notificationEvent сообщение в топике уведомлений
type notificationEvent struct {
	EventID     string    `json:"event_id"`
	Kind        Kind      `json:"kind"`
	OrderNumber string    `json:"order_number"`
	Email       string    `json:"email"`
	Token       string    `json:"token,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewKafkaDispatcher возвращает nil при пустом списке брокеров:
// вызывающий код подставляет LogDispatcher
func NewKafkaDispatcher(brokersCSV, topic string) *KafkaDispatcher {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil
	}
	return &KafkaDispatcher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (d *KafkaDispatcher) Send(ctx context.Context, kind Kind, order *domain.Order, token string) error {
	event := notificationEvent{
		EventID:     uuid.NewString(),
		Kind:        kind,
		OrderNumber: order.OrderNumber,
		Email:       order.Customer.Email,
		Token:       token,
		CreatedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(order.OrderNumber),
		Value: data,
		Time:  event.CreatedAt,
	})
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}
