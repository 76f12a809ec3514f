package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"august/internal/domain"
)

// Kind тип клиентского уведомления
type Kind string

const (
	KindOrderConfirmation Kind = "order-confirmation"
	KindPendingPayment    Kind = "pending-payment"
	KindReceived          Kind = "received-from-pending-payment"
	KindShipped           Kind = "shipped"
	KindCancelled         Kind = "cancelled"
)

// Dispatcher отправляет клиентское уведомление по заказу. Ошибка отправки
// никогда не откатывает вызвавший её переход.
type Dispatcher interface {
	Send(ctx context.Context, kind Kind, order *domain.Order, token string) error
}

// LogDispatcher запасная реализация без брокера: пишет уведомление в лог
type LogDispatcher struct {
	log *zap.Logger
}

func NewLogDispatcher(log *zap.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Send(ctx context.Context, kind Kind, order *domain.Order, token string) error {
	d.log.Info("notification",
		zap.String("kind", string(kind)),
		zap.String("order_number", order.OrderNumber),
		zap.String("email", order.Customer.Email))
	return nil
}

// Recorder тестовая реализация: копит отправленные уведомления
type Recorder struct {
	mu   sync.Mutex
	Sent []RecordedNotification
}

type RecordedNotification struct {
	Kind        Kind
	OrderNumber string
	Token       string
}

func (r *Recorder) Send(ctx context.Context, kind Kind, order *domain.Order, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent = append(r.Sent, RecordedNotification{Kind: kind, OrderNumber: order.OrderNumber, Token: token})
	return nil
}

// Kinds возвращает виды отправленных уведомлений в порядке отправки
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]Kind, len(r.Sent))
	for i, n := range r.Sent {
		kinds[i] = n.Kind
	}
	return kinds
}
