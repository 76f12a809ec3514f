package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"august/internal/domain"
	"august/internal/repository"
)

const defaultArchiveDays = 365

// OrderService чтение заказов, гостевой доступ по токену и фоновые операции:
// отмена просроченных броней и архивирование
type OrderService struct {
	orders   repository.OrderRepository
	logs     repository.StatusLogRepository
	settings repository.SettingsRepository
	machine  *StatusMachine
	log      *zap.Logger
}

func NewOrderService(
	orders repository.OrderRepository,
	logs repository.StatusLogRepository,
	settings repository.SettingsRepository,
	machine *StatusMachine,
	log *zap.Logger,
) *OrderService {
	return &OrderService{orders: orders, logs: logs, settings: settings, machine: machine, log: log}
}

// GetOrder возвращает заказ по номеру
func (s *OrderService) GetOrder(ctx context.Context, number string) (*domain.Order, error) {
	if number == "" {
		return nil, ErrInvalidInput
	}
	return s.orders.GetByNumber(ctx, number)
}

// GetOrderByToken гостевой доступ: номер + токен с ограниченным сроком.
// Любая причина отказа выглядит одинаково.
func (s *OrderService) GetOrderByToken(ctx context.Context, number, token string) (*domain.Order, error) {
	if number == "" || token == "" {
		return nil, ErrInvalidToken
	}
	order, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if order.ViewToken == "" || order.ViewToken != token {
		return nil, ErrInvalidToken
	}
	if time.Now().After(order.ViewTokenExpires) {
		return nil, ErrInvalidToken
	}
	return order, nil
}

// History журнал переходов заказа в порядке принятия
func (s *OrderService) History(ctx context.Context, number string) ([]domain.StatusLog, error) {
	if number == "" {
		return nil, ErrInvalidInput
	}
	if _, err := s.orders.GetByNumber(ctx, number); err != nil {
		return nil, err
	}
	return s.logs.ListByOrder(ctx, number)
}

// SweepExpiredReservations отменяет неоплаченные заказы с истёкшей бронью
// через обычный переход cancelled: склад возвращается, аудит и уведомление
// срабатывают как всегда. Возвращает число отменённых.
func (s *OrderService) SweepExpiredReservations(ctx context.Context, actor string) (int, error) {
	expired, err := s.orders.ListExpiredReservations(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for _, o := range expired {
		if _, err := s.machine.ChangeStatus(ctx, o.OrderNumber, domain.OrderStatusCancelled, actor, "payment reservation expired"); err != nil {
			s.log.Warn("reservation sweep skipped order",
				zap.String("order_number", o.OrderNumber), zap.Error(err))
			continue
		}
		cancelled++
	}
	if cancelled > 0 {
		s.log.Info("reservation sweep completed", zap.Int("cancelled", cancelled))
	}
	return cancelled, nil
}

// ArchiveOldOrders помечает Active=false заказы в настроенных терминальных
// статусах, не менявшиеся дольше окна хранения. Заказы не удаляются никогда.
func (s *OrderService) ArchiveOldOrders(ctx context.Context) (int, error) {
	days := defaultArchiveDays
	statuses := []domain.OrderStatus{domain.OrderStatusShipped, domain.OrderStatusCancelled}
	if settings, err := s.settings.Get(ctx); err == nil {
		if settings.ArchiveOrdersDays > 0 {
			days = settings.ArchiveOrdersDays
		}
		if len(settings.ArchiveOrdersStatuses) > 0 {
			statuses = settings.ArchiveOrdersStatuses
		}
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	n, err := s.orders.ArchiveOlderThan(ctx, cutoff, statuses)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("orders archived", zap.Int("count", n))
	}
	return n, nil
}
