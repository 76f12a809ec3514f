package service

import (
	"context"
	"errors"

	"august/internal/domain"
	"august/internal/repository"
)

// StockLedger единственный компонент, меняющий остатки после создания товара.
// Обе операции сводятся к одному условному обновлению в репозитории.
type StockLedger struct {
	products repository.ProductRepository
}

func NewStockLedger(products repository.ProductRepository) *StockLedger {
	return &StockLedger{products: products}
}

// Reserve атомарно списывает qty; при нехватке возвращает дефицит
func (l *StockLedger) Reserve(ctx context.Context, productID, qty int64) error {
	if qty <= 0 {
		return ErrInvalidInput
	}
	current, err := l.products.AdjustStock(ctx, productID, -qty)
	if errors.Is(err, repository.ErrInsufficientStock) {
		name := ""
		if p, perr := l.products.GetByID(ctx, productID); perr == nil {
			name = p.Name
		}
		return &InsufficientStockError{ProductID: productID, Name: name, Requested: qty, Available: current}
	}
	return err
}

// Release атомарно возвращает qty на склад. Верхней границы нет: возврат
// может превысить позже сниженный лимит.
func (l *StockLedger) Release(ctx context.Context, productID, qty int64) error {
	if qty <= 0 {
		return ErrInvalidInput
	}
	_, err := l.products.AdjustStock(ctx, productID, qty)
	return err
}

// ReserveItems списывает все позиции заказа; при отказе на середине
// возвращает уже списанное обратно
func (l *StockLedger) ReserveItems(ctx context.Context, items []domain.OrderItem) error {
	for i, it := range items {
		if err := l.Reserve(ctx, it.ProductID, it.Quantity); err != nil {
			for _, done := range items[:i] {
				if rerr := l.Release(ctx, done.ProductID, done.Quantity); rerr != nil {
					return errors.Join(err, rerr)
				}
			}
			return err
		}
	}
	return nil
}

// ReleaseItems возвращает все позиции заказа на склад
func (l *StockLedger) ReleaseItems(ctx context.Context, items []domain.OrderItem) error {
	for _, it := range items {
		if err := l.Release(ctx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}
