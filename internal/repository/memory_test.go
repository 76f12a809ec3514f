package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"august/internal/domain"
)

func TestMemoryStore_AdjustStock(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := domain.Product{Name: "A", SKU: "S1", Price: 10, StockQuantity: 5}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}

	left, err := store.AdjustStock(ctx, p.ID, -3)
	if err != nil || left != 2 {
		t.Fatalf("adjust -3: %v, left %d", err, left)
	}

	// going below zero must not mutate and must report the current quantity
	left, err = store.AdjustStock(ctx, p.ID, -5)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if left != 2 {
		t.Fatalf("current quantity expected 2, got %d", left)
	}
	got, _ := store.GetByID(ctx, p.ID)
	if got.StockQuantity != 2 {
		t.Fatalf("stock mutated on rejected adjust: %d", got.StockQuantity)
	}

	if _, err := store.AdjustStock(ctx, p.ID, 10); err != nil {
		t.Fatalf("release: %v", err)
	}
	got, _ = store.GetByID(ctx, p.ID)
	if got.StockQuantity != 12 {
		t.Fatalf("stock expected 12, got %d", got.StockQuantity)
	}
}

func TestMemoryOrders_NumberAssignment(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	orders := NewMemoryOrders(store)

	o1 := domain.Order{Status: domain.OrderStatusCreated}
	o2 := domain.Order{Status: domain.OrderStatusCreated}
	if err := orders.Create(ctx, &o1); err != nil {
		t.Fatal(err)
	}
	if err := orders.Create(ctx, &o2); err != nil {
		t.Fatal(err)
	}
	if o1.OrderNumber == "" || o1.OrderNumber == o2.OrderNumber {
		t.Fatalf("order numbers not unique: %q %q", o1.OrderNumber, o2.OrderNumber)
	}
	if !o1.Active {
		t.Fatal("new order must be active")
	}

	got, err := orders.GetByNumber(ctx, o1.OrderNumber)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// copy on read: mutating the result must not touch the store
	got.Status = domain.OrderStatusShipped
	again, _ := orders.GetByNumber(ctx, o1.OrderNumber)
	if again.Status != domain.OrderStatusCreated {
		t.Fatalf("store mutated through returned copy")
	}
}

func TestMemoryOrders_UpdateStatusCAS(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	orders := NewMemoryOrders(store)

	o := domain.Order{Status: domain.OrderStatusCreated}
	if err := orders.Create(ctx, &o); err != nil {
		t.Fatal(err)
	}

	if err := orders.UpdateStatus(ctx, o.OrderNumber, domain.OrderStatusCreated, domain.OrderStatusProcessing); err != nil {
		t.Fatalf("cas: %v", err)
	}
	// stale expected status is rejected
	err := orders.UpdateStatus(ctx, o.OrderNumber, domain.OrderStatusCreated, domain.OrderStatusShipped)
	if !errors.Is(err, ErrStaleStatus) {
		t.Fatalf("expected stale status, got %v", err)
	}
	got, _ := orders.GetByNumber(ctx, o.OrderNumber)
	if got.Status != domain.OrderStatusProcessing {
		t.Fatalf("status expected processing, got %q", got.Status)
	}
}

func TestMemoryOrders_ListExpiredReservations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	orders := NewMemoryOrders(store)
	now := time.Now().UTC()

	expired := domain.Order{
		Status:               domain.OrderStatusPendingPayment,
		Payment:              domain.PaymentDetails{Status: domain.PaymentStatusPending},
		ReservationExpiresAt: now.Add(-time.Hour),
	}
	live := domain.Order{
		Status:               domain.OrderStatusPendingPayment,
		Payment:              domain.PaymentDetails{Status: domain.PaymentStatusPending},
		ReservationExpiresAt: now.Add(time.Hour),
	}
	paid := domain.Order{
		Status:               domain.OrderStatusPendingPayment,
		Payment:              domain.PaymentDetails{Status: domain.PaymentStatusPaid},
		ReservationExpiresAt: now.Add(-time.Hour),
	}
	for _, o := range []*domain.Order{&expired, &live, &paid} {
		if err := orders.Create(ctx, o); err != nil {
			t.Fatal(err)
		}
	}

	got, err := orders.ListExpiredReservations(ctx, now)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].OrderNumber != expired.OrderNumber {
		t.Fatalf("expected only the expired pending order, got %d", len(got))
	}
}

func TestMemoryOrders_ArchiveOlderThan(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	orders := NewMemoryOrders(store)

	shipped := domain.Order{Status: domain.OrderStatusShipped}
	received := domain.Order{Status: domain.OrderStatusReceived}
	if err := orders.Create(ctx, &shipped); err != nil {
		t.Fatal(err)
	}
	if err := orders.Create(ctx, &received); err != nil {
		t.Fatal(err)
	}

	cutoff := time.Now().UTC().Add(time.Hour)
	n, err := orders.ArchiveOlderThan(ctx, cutoff, []domain.OrderStatus{domain.OrderStatusShipped, domain.OrderStatusCancelled})
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 archived, got %d", n)
	}
	s, _ := orders.GetByNumber(ctx, shipped.OrderNumber)
	r, _ := orders.GetByNumber(ctx, received.OrderNumber)
	if s.Active {
		t.Fatal("shipped order should be archived")
	}
	if !r.Active {
		t.Fatal("received order must stay active")
	}
}

func TestMemoryStatusLogs_AppendOnly(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	logs := NewMemoryStatusLogs(store)

	for _, to := range []domain.OrderStatus{domain.OrderStatusProcessing, domain.OrderStatusShipped} {
		entry := domain.StatusLog{OrderNumber: "ORD-1", NewStatus: to, ChangedBy: "tester"}
		if err := logs.Append(ctx, &entry); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := logs.ListByOrder(ctx, "ORD-1")
	if err != nil || len(got) != 2 {
		t.Fatalf("list: %v, len %d", err, len(got))
	}
	if got[0].NewStatus != domain.OrderStatusProcessing || got[1].NewStatus != domain.OrderStatusShipped {
		t.Fatal("entries out of acceptance order")
	}
}

func TestMemoryTx_AtomicReserveAndCreate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	orders := NewMemoryOrders(store)

	p := domain.Product{Name: "A", SKU: "S1", Price: 10, StockQuantity: 5}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatal(err)
	}

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := store.AdjustStock(ctx, p.ID, -3); err != nil {
			return err
		}
		o := domain.Order{Status: domain.OrderStatusReceived, Items: []domain.OrderItem{{ProductID: p.ID, Quantity: 3}}}
		return orders.Create(ctx, &o)
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	pp, _ := store.GetByID(context.Background(), p.ID)
	if pp.StockQuantity != 2 {
		t.Fatalf("stock expected 2, got %v", pp.StockQuantity)
	}
}

func TestMemoryStore_ProviderConfigs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	cfg := domain.ShippingProviderConfig{ModuleName: "postnl", IsEnabled: true}
	disabled := domain.ShippingProviderConfig{ModuleName: "dhl", IsEnabled: false}
	if err := store.UpsertShipping(ctx, cfg); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertShipping(ctx, disabled); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetShipping(ctx, "postnl")
	if err != nil || got.ModuleName != "postnl" {
		t.Fatalf("get: %v", err)
	}
	enabled, err := store.ListEnabledShipping(ctx)
	if err != nil || len(enabled) != 1 {
		t.Fatalf("enabled list: %v, len %d", err, len(enabled))
	}
	if _, err := store.GetShipping(ctx, "ups"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
