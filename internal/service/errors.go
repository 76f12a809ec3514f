package service

import (
	"errors"
	"fmt"

	"august/internal/domain"
)

var (
	// ErrEmptyOrder суммарный вес корзины равен нулю
	ErrEmptyOrder = errors.New("order has no shippable weight")
	// ErrInvalidToken токен просмотра не подошёл или истёк. Один ответ на
	// все причины отказа, чтобы не раскрывать существование заказа.
	ErrInvalidToken = errors.New("invalid or expired view token")
	// ErrPaymentRejected провайдер не подтвердил оплату
	ErrPaymentRejected = errors.New("payment was not completed")
)

// InvalidTransitionError запрошенный переход не разрешён машиной статусов
type InvalidTransitionError struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %q to %q", e.From, e.To)
}

// InsufficientStockError нехватка остатка с размером дефицита
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (%s): requested %d, available %d",
		e.ProductID, e.Name, e.Requested, e.Available)
}
