package service

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"go.uber.org/zap"

	"august/internal/domain"
	"august/internal/notify"
	"august/internal/provider"
	"august/internal/repository"
)

// stubCarrier перевозчик для тестов: считает выпуски этикеток
type stubCarrier struct {
	labelCalls int
	fail       bool
	onCreate   func()
}

func (c *stubCarrier) Key() string { return "stubship" }

func (c *stubCarrier) GetRates(ctx context.Context, addr domain.Address, fitting []domain.PackageDefinition, totalWeight float64, cfg domain.ShippingProviderConfig) ([]provider.Rate, error) {
	return nil, nil
}

func (c *stubCarrier) CreateLabel(ctx context.Context, order *domain.Order, productCode string, cfg domain.ShippingProviderConfig) (*provider.LabelResult, error) {
	if c.onCreate != nil {
		c.onCreate()
	}
	if c.fail {
		return nil, fmt.Errorf("stubship: %w", provider.ErrUnavailable)
	}
	c.labelCalls++
	return &provider.LabelResult{TrackingNumber: "TRK-1", LabelData: []byte("%PDF-1.4")}, nil
}

// stubOnlinePay онлайн-оплата для тестов с управляемым исходом capture
type stubOnlinePay struct {
	captureStatus string
}

func (p *stubOnlinePay) Key() string    { return "stubpay" }
func (p *stubOnlinePay) IsOnline() bool { return true }

func (p *stubOnlinePay) Initiate(ctx context.Context, draft *domain.Order, cfg domain.PaymentProviderConfig) (*provider.InitiateResult, error) {
	return &provider.InitiateResult{Action: "pay", TransactionID: "TX-1"}, nil
}

func (p *stubOnlinePay) Capture(ctx context.Context, transactionRef string, cfg domain.PaymentProviderConfig) (*provider.CaptureResult, error) {
	return &provider.CaptureResult{Status: p.captureStatus}, nil
}

type stubPicklist struct {
	calls      int
	onGenerate func()
}

func (g *stubPicklist) Generate(ctx context.Context, order *domain.Order) (string, error) {
	if g.onGenerate != nil {
		g.onGenerate()
	}
	g.calls++
	return fmt.Sprintf("PickList-%s.txt", order.OrderNumber), nil
}

type memLabelStore struct {
	files    map[string][]byte
	failSave bool
}

func (s *memLabelStore) Save(orderNumber, trackingNumber string, data []byte) (string, error) {
	if s.failSave {
		return "", fmt.Errorf("label store unavailable")
	}
	name := fmt.Sprintf("%s-%s.pdf", orderNumber, trackingNumber)
	s.files[name] = data
	return name, nil
}

func (s *memLabelStore) Open(filename string) ([]byte, error) {
	data, ok := s.files[filename]
	if !ok {
		return nil, fmt.Errorf("label %s not found", filename)
	}
	return data, nil
}

type fixture struct {
	store    *repository.MemoryStore
	orders   *repository.MemoryOrders
	logs     *repository.MemoryStatusLogs
	ledger   *StockLedger
	recorder *notify.Recorder
	picklist *stubPicklist
	carrier  *stubCarrier
	pay      *stubOnlinePay
	files    *memLabelStore
	machine  *StatusMachine
	products *ProductService
	checkout *CheckoutService
	ordersvc *OrderService
	labels   *LabelService
	rates    *RateEngine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	store := repository.NewMemoryStore()
	orders := repository.NewMemoryOrders(store)
	logs := repository.NewMemoryStatusLogs(store)
	tx := repository.NewMemoryTx(store)
	ledger := NewStockLedger(store)
	recorder := &notify.Recorder{}
	pick := &stubPicklist{}
	carrier := &stubCarrier{}
	pay := &stubOnlinePay{captureStatus: "paid"}

	registry := provider.NewRegistry(
		[]provider.ShippingProvider{
			provider.NewPostNL(http.DefaultClient, domain.ShopAddress{}),
			provider.NewDHL(),
			carrier,
		},
		[]provider.PaymentProvider{provider.NewBankTransfer(), pay},
	)

	machine := NewStatusMachine(orders, logs, ledger, recorder, pick, tx, logger, nil)
	labelStore := &memLabelStore{files: map[string][]byte{}}

	f := &fixture{
		store:    store,
		orders:   orders,
		logs:     logs,
		ledger:   ledger,
		recorder: recorder,
		picklist: pick,
		carrier:  carrier,
		pay:      pay,
		files:    labelStore,
		machine:  machine,
		products: NewProductService(store),
		checkout: NewCheckoutService(store, orders, logs, store, store, registry, ledger, recorder, tx, logger),
		ordersvc: NewOrderService(orders, logs, store, machine, logger),
		labels:   NewLabelService(orders, store, registry, labelStore, machine, logger),
		rates:    NewRateEngine(store, store, store, registry, logger),
	}

	if err := store.Put(ctx, DefaultSettings()); err != nil {
		t.Fatal(err)
	}
	seed := []error{
		store.UpsertShipping(ctx, provider.DefaultPostNLConfig()),
		store.UpsertShipping(ctx, provider.DefaultDHLConfig()),
		store.UpsertShipping(ctx, domain.ShippingProviderConfig{ModuleName: "stubship", Name: "Stub", IsEnabled: true}),
		store.UpsertPayment(ctx, provider.DefaultBankTransferConfig()),
		store.UpsertPayment(ctx, domain.PaymentProviderConfig{ModuleName: "stubpay", Name: "Stub Pay", IsEnabled: true, IsOnline: true}),
	}
	for _, err := range seed {
		if err != nil {
			t.Fatal(err)
		}
	}
	return f
}

func (f *fixture) seedProduct(t *testing.T, name string, stock int64, weight float64) *domain.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), domain.Product{
		Name:          name,
		SKU:           "SKU-" + name,
		Price:         10,
		StockQuantity: stock,
		Weight:        weight,
		Dimensions:    domain.Dimensions{Length: 10, Width: 10, Height: 2},
	})
	if err != nil {
		t.Fatalf("seed product %s: %v", name, err)
	}
	return p
}

// seedOrder создаёт заказ напрямую в репозитории, минуя checkout
func (f *fixture) seedOrder(t *testing.T, status domain.OrderStatus, items ...domain.OrderItem) *domain.Order {
	t.Helper()
	o := domain.Order{
		Customer: domain.CustomerDetails{
			Name:    "Jan de Vries",
			Email:   "jan@example.com",
			Address: domain.Address{Street: "Teststraat", HouseNumber: "1", ZipCode: "1234 AB", City: "Amsterdam", CountryCode: "NL"},
		},
		Items:  items,
		Status: status,
	}
	if err := f.orders.Create(context.Background(), &o); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return &o
}

func (f *fixture) stockOf(t *testing.T, id int64) int64 {
	t.Helper()
	p, err := f.products.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("stock of %d: %v", id, err)
	}
	return p.StockQuantity
}
