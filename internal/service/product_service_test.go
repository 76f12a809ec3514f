package service

import (
	"context"
	"errors"
	"testing"

	"august/internal/domain"
)

func TestProductService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.products.Create(ctx, domain.Product{Name: "A", SKU: "S1", Price: 10, StockQuantity: 5, Weight: 200})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("no id assigned")
	}
	got, err := f.products.GetByID(ctx, p.ID)
	if err != nil || got.SKU != "S1" {
		t.Fatalf("get: %v", err)
	}
}

func TestProductService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bad := []domain.Product{
		{SKU: "S1", Price: 10},
		{Name: "A", Price: 10},
		{Name: "A", SKU: "S1", Price: -1},
		{Name: "A", SKU: "S1", StockQuantity: -1},
		{Name: "A", SKU: "S1", Weight: -5},
	}
	for _, p := range bad {
		if _, err := f.products.Create(ctx, p); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("product %+v: expected invalid input, got %v", p, err)
		}
	}
}

func TestProductService_UpdateKeepsStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.seedProduct(t, "widget", 5, 200)

	upd := *p
	upd.Price = 12
	upd.StockQuantity = 99 // must be ignored: only the ledger moves stock
	got, err := f.products.Update(ctx, upd)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Price != 12 {
		t.Errorf("price = %v", got.Price)
	}
	if got.StockQuantity != 5 {
		t.Errorf("stock overwritten through update: %d", got.StockQuantity)
	}
}
