package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"august/internal/domain"
	"august/internal/metrics"
	"august/internal/notify"
	"august/internal/picklist"
	"august/internal/repository"
)

// validTransitions машина статусов: из какого статуса куда можно перейти.
// shipped и cancelled терминальны.
var validTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusCreated:          {domain.OrderStatusPendingPayment, domain.OrderStatusProcessing, domain.OrderStatusCancelled},
	domain.OrderStatusPendingPayment:   {domain.OrderStatusReceived, domain.OrderStatusCancelled},
	domain.OrderStatusReceived:         {domain.OrderStatusProcessing, domain.OrderStatusCancelled},
	domain.OrderStatusProcessing:       {domain.OrderStatusReadyForShipment, domain.OrderStatusShipped, domain.OrderStatusCancelled},
	domain.OrderStatusReadyForShipment: {domain.OrderStatusShipped, domain.OrderStatusCancelled},
	domain.OrderStatusShipped:          {},
	domain.OrderStatusCancelled:        {},
}

func transitionAllowed(from, to domain.OrderStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// unfulfilled статусы, в которых склад ещё не закоммичен самим переходом
func unfulfilled(s domain.OrderStatus) bool {
	return s == domain.OrderStatusCreated || s == domain.OrderStatusReceived || s == domain.OrderStatusPendingPayment
}

// StatusMachine оркестратор переходов: валидация, склад, аудит, уведомления
// и пик-лист в одном месте. Прямые записи в Order.Status вне машины запрещены.
type StatusMachine struct {
	orders   repository.OrderRepository
	logs     repository.StatusLogRepository
	ledger   *StockLedger
	notifier notify.Dispatcher
	picklist picklist.Generator
	tx       repository.TxManager
	log      *zap.Logger
	metrics  *metrics.ServerMetrics
}

func NewStatusMachine(
	orders repository.OrderRepository,
	logs repository.StatusLogRepository,
	ledger *StockLedger,
	notifier notify.Dispatcher,
	gen picklist.Generator,
	tx repository.TxManager,
	log *zap.Logger,
	m *metrics.ServerMetrics,
) *StatusMachine {
	return &StatusMachine{
		orders:   orders,
		logs:     logs,
		ledger:   ledger,
		notifier: notifier,
		picklist: gen,
		tx:       tx,
		log:      log,
		metrics:  m,
	}
}

// ChangeStatus применяет переход и его побочные эффекты. Порядок: склад по
// краю перехода, запись нового статуса (CAS по старому), аудит. Отказ аудита
// откатывает статус и склад: неаудированный переход не принимается.
// Уведомление и пик-лист идут после и не фатальны.
func (m *StatusMachine) ChangeStatus(ctx context.Context, orderNumber string, newStatus domain.OrderStatus, actor, comment string) (*domain.Order, error) {
	order, err := m.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	from := order.Status
	if !transitionAllowed(from, newStatus) {
		return nil, &InvalidTransitionError{From: from, To: newStatus}
	}

	err = m.tx.WithTransaction(ctx, func(ctx context.Context) error {
		// stock follows the edge, guarded so each order is committed at
		// most once and restored at most once
		var stockDelta int // -1 reserved, +1 released
		fulfilling := newStatus == domain.OrderStatusProcessing || newStatus == domain.OrderStatusShipped
		if fulfilling && unfulfilled(from) && !order.StockCommitted {
			if err := m.ledger.ReserveItems(ctx, order.Items); err != nil {
				return err
			}
			order.StockCommitted = true
			stockDelta = -1
		}
		if newStatus == domain.OrderStatusCancelled && order.StockCommitted {
			if err := m.ledger.ReleaseItems(ctx, order.Items); err != nil {
				return err
			}
			order.StockCommitted = false
			stockDelta = +1
		}

		revertStock := func() {
			var err error
			switch stockDelta {
			case -1:
				err = m.ledger.ReleaseItems(ctx, order.Items)
				order.StockCommitted = false
			case +1:
				err = m.ledger.ReserveItems(ctx, order.Items)
				order.StockCommitted = true
			}
			if err != nil {
				m.log.Error("stock compensation failed",
					zap.String("order_number", orderNumber), zap.Error(err))
			}
		}

		// optimistic check: reject transitions computed against a stale status
		if err := m.orders.UpdateStatus(ctx, orderNumber, from, newStatus); err != nil {
			revertStock()
			return err
		}
		order.Status = newStatus
		if err := m.orders.Update(ctx, order); err != nil {
			revertStock()
			return err
		}

		entry := domain.StatusLog{
			OrderNumber: orderNumber,
			OldStatus:   from,
			NewStatus:   newStatus,
			ChangedBy:   actor,
			Comment:     comment,
		}
		if err := m.logs.Append(ctx, &entry); err != nil {
			// unaudited state change is not acceptable
			if rerr := m.orders.UpdateStatus(ctx, orderNumber, newStatus, from); rerr != nil {
				m.log.Error("status rollback failed",
					zap.String("order_number", orderNumber), zap.Error(rerr))
			}
			order.Status = from
			revertStock()
			if uerr := m.orders.Update(ctx, order); uerr != nil {
				m.log.Error("order rollback failed",
					zap.String("order_number", orderNumber), zap.Error(uerr))
			}
			return fmt.Errorf("audit write failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if m.metrics != nil {
		m.metrics.Transitions.WithLabelValues(string(from), string(newStatus)).Inc()
	}
	m.log.Info("order status changed",
		zap.String("order_number", orderNumber),
		zap.String("from", string(from)),
		zap.String("to", string(newStatus)),
		zap.String("actor", actor))

	m.notifyTransition(ctx, order, from, newStatus)
	m.generatePicklist(ctx, order, from, newStatus)

	return order, nil
}

// notifyTransition уведомление по конечному статусу перехода; отказ пишется
// в лог и не влияет на заказ
func (m *StatusMachine) notifyTransition(ctx context.Context, order *domain.Order, from, to domain.OrderStatus) {
	var kind notify.Kind
	switch {
	case to == domain.OrderStatusShipped:
		kind = notify.KindShipped
	case to == domain.OrderStatusCancelled:
		kind = notify.KindCancelled
	case to == domain.OrderStatusReceived && from == domain.OrderStatusPendingPayment:
		kind = notify.KindReceived
	default:
		return
	}
	if err := m.notifier.Send(ctx, kind, order, order.ViewToken); err != nil {
		m.log.Warn("notification failed",
			zap.String("order_number", order.OrderNumber),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

// generatePicklist ровно один раз на заказ, при первом входе в received
func (m *StatusMachine) generatePicklist(ctx context.Context, order *domain.Order, from, to domain.OrderStatus) {
	if to != domain.OrderStatusReceived || order.PicklistFilename != "" {
		return
	}
	filename, err := m.picklist.Generate(ctx, order)
	if err != nil {
		m.log.Warn("picklist generation failed",
			zap.String("order_number", order.OrderNumber), zap.Error(err))
		return
	}
	order.PicklistFilename = filename
	// generation does file I/O after the transition committed; a full-order
	// write here could clobber a newer concurrent transition
	if err := m.orders.UpdatePicklistFilename(ctx, order.OrderNumber, filename); err != nil {
		m.log.Warn("picklist filename not saved",
			zap.String("order_number", order.OrderNumber), zap.Error(err))
	}
}
