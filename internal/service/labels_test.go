package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"august/internal/domain"
	"august/internal/provider"
)

func TestIssueLabel_Flow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.seedProduct(t, "widget", 10, 300)
	o := f.seedOrder(t, domain.OrderStatusReceived, domain.OrderItem{ProductID: p.ID, Name: "widget", Weight: 300, Quantity: 2})

	issue, err := f.labels.IssueLabel(ctx, o.OrderNumber, "stubship-NL-X1-Standard", "warehouse")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issue.TrackingNumber != "TRK-1" {
		t.Errorf("tracking = %q", issue.TrackingNumber)
	}
	if !strings.HasPrefix(issue.LabelURL, "/api/v1/shipping/labels/") {
		t.Errorf("label url = %q", issue.LabelURL)
	}
	if f.carrier.labelCalls != 1 {
		t.Errorf("carrier called %d times", f.carrier.labelCalls)
	}

	got, _ := f.orders.GetByNumber(ctx, o.OrderNumber)
	if got.Status != domain.OrderStatusProcessing {
		t.Errorf("status = %q, want processing", got.Status)
	}
	if got.Shipping.TrackingNumber != "TRK-1" || got.Shipping.Provider != "stubship" {
		t.Errorf("shipping details = %+v", got.Shipping)
	}
	data, err := f.labels.GetLabel(strings.TrimPrefix(issue.LabelURL, "/api/v1/shipping/labels/"))
	if err != nil || len(data) == 0 {
		t.Errorf("stored label unreadable: %v", err)
	}
}

func TestIssueLabel_NeverReissued(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.seedProduct(t, "widget", 10, 300)
	o := f.seedOrder(t, domain.OrderStatusReceived, domain.OrderItem{ProductID: p.ID, Quantity: 1})

	first, err := f.labels.IssueLabel(ctx, o.OrderNumber, "stubship-NL-X1-Standard", "warehouse")
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	// repeat call must not hit the carrier again
	second, err := f.labels.IssueLabel(ctx, o.OrderNumber, "stubship-NL-X1-Standard", "warehouse")
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if f.carrier.labelCalls != 1 {
		t.Fatalf("carrier called %d times, want 1", f.carrier.labelCalls)
	}
	if second.TrackingNumber != first.TrackingNumber {
		t.Fatalf("tracking changed between calls")
	}
}

func TestIssueLabel_TrackingRecordedBeforeLabelStored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.files.failSave = true
	p := f.seedProduct(t, "widget", 10, 300)
	o := f.seedOrder(t, domain.OrderStatusReceived, domain.OrderItem{ProductID: p.ID, Quantity: 1})

	_, err := f.labels.IssueLabel(ctx, o.OrderNumber, "stubship-NL-X1-Standard", "warehouse")
	if err == nil {
		t.Fatal("expected label storage failure")
	}
	// the carrier already issued the label, so the tracking number must be
	// on the order even though the binary was lost
	got, _ := f.orders.GetByNumber(ctx, o.OrderNumber)
	if got.Shipping.TrackingNumber != "TRK-1" {
		t.Fatalf("tracking not recorded: %+v", got.Shipping)
	}

	// retry after the store recovers must not hit the carrier again
	f.files.failSave = false
	if _, err := f.labels.IssueLabel(ctx, o.OrderNumber, "stubship-NL-X1-Standard", "warehouse"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if f.carrier.labelCalls != 1 {
		t.Fatalf("carrier called %d times, want 1", f.carrier.labelCalls)
	}
}

func TestIssueLabel_KeepsConcurrentOrderChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.seedProduct(t, "widget", 10, 300)
	o := f.seedOrder(t, domain.OrderStatusReceived, domain.OrderItem{ProductID: p.ID, Quantity: 1})

	// another writer touches the order while the carrier call is in flight
	f.carrier.onCreate = func() {
		cur, err := f.orders.GetByNumber(ctx, o.OrderNumber)
		if err != nil {
			t.Fatal(err)
		}
		cur.PicklistFilename = "PickList-concurrent.txt"
		if err := f.orders.Update(ctx, cur); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.labels.IssueLabel(ctx, o.OrderNumber, "stubship-NL-X1-Standard", "warehouse"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, _ := f.orders.GetByNumber(ctx, o.OrderNumber)
	if got.PicklistFilename != "PickList-concurrent.txt" {
		t.Fatalf("concurrent write clobbered: %q", got.PicklistFilename)
	}
	if got.Shipping.TrackingNumber != "TRK-1" {
		t.Fatalf("shipping details lost: %+v", got.Shipping)
	}
}

func TestIssueLabel_CarrierDown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.carrier.fail = true
	p := f.seedProduct(t, "widget", 10, 300)
	o := f.seedOrder(t, domain.OrderStatusReceived, domain.OrderItem{ProductID: p.ID, Quantity: 1})

	_, err := f.labels.IssueLabel(ctx, o.OrderNumber, "stubship-NL-X1-Standard", "warehouse")
	if !errors.Is(err, provider.ErrUnavailable) {
		t.Fatalf("expected provider unavailable, got %v", err)
	}
	// order untouched, safe to retry
	got, _ := f.orders.GetByNumber(ctx, o.OrderNumber)
	if got.Status != domain.OrderStatusReceived || got.Shipping.TrackingNumber != "" {
		t.Fatalf("order mutated on transient failure: %+v", got)
	}
}

func TestIssueLabel_NotImplemented(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.seedProduct(t, "widget", 10, 300)
	o := f.seedOrder(t, domain.OrderStatusReceived, domain.OrderItem{ProductID: p.ID, Quantity: 1})

	_, err := f.labels.IssueLabel(ctx, o.OrderNumber, "dhl-NL-DFY-Standard", "warehouse")
	if !errors.Is(err, provider.ErrLabelingNotImplemented) {
		t.Fatalf("expected labeling not implemented, got %v", err)
	}
}

func TestIssueLabel_UnknownCarrier(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "widget", 10, 300)
	o := f.seedOrder(t, domain.OrderStatusReceived, domain.OrderItem{ProductID: p.ID, Quantity: 1})

	_, err := f.labels.IssueLabel(context.Background(), o.OrderNumber, "ups-NL-X1-Standard", "warehouse")
	if !errors.Is(err, provider.ErrUnavailable) {
		t.Fatalf("expected provider unavailable, got %v", err)
	}
}

func TestIssueLabel_BadRateID(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"", "stubship", "stubship-NL", "stubship-NL-X1"} {
		if _, err := f.labels.IssueLabel(context.Background(), "ORD-100001", id, "warehouse"); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("rate id %q: expected invalid input, got %v", id, err)
		}
	}
}
