package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"august/internal/domain"
)

// MemoryStore объединённое in-memory хранилище и простой генератор номеров
type MemoryStore struct {
	mu           sync.RWMutex
	nextProdID   int64
	nextOrderSeq int64
	productsByID map[int64]domain.Product
	ordersByNum  map[string]domain.Order
	statusLogs   map[string][]domain.StatusLog
	shippingCfgs map[string]domain.ShippingProviderConfig
	paymentCfgs  map[string]domain.PaymentProviderConfig
	settings     *domain.Settings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextProdID:   1,
		nextOrderSeq: 100001,
		productsByID: make(map[int64]domain.Product),
		ordersByNum:  make(map[string]domain.Order),
		statusLogs:   make(map[string][]domain.StatusLog),
		shippingCfgs: make(map[string]domain.ShippingProviderConfig),
		paymentCfgs:  make(map[string]domain.PaymentProviderConfig),
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Ensure interfaces
var _ ProductRepository = (*MemoryStore)(nil)
var _ ProviderConfigRepository = (*MemoryStore)(nil)
var _ SettingsRepository = (*MemoryStore)(nil)

// ProductRepository implementation
func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p.ID = m.nextProdID
	m.nextProdID++
	p.Active = true
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := p
	return &cp, nil
}

func (m *MemoryStore) GetMany(ctx context.Context, ids []int64) (map[int64]*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make(map[int64]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.productsByID[id]; ok {
			cp := p
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *MemoryStore) Update(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[p.ID]; !ok {
		return ErrNotFound
	}
	m.productsByID[p.ID] = *p
	return nil
}

// AdjustStock единственная операция, меняющая остаток: проверка и запись
// происходят под одной блокировкой, частичных состояний не бывает.
func (m *MemoryStore) AdjustStock(ctx context.Context, id int64, delta int64) (int64, error) {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return 0, ErrNotFound
	}
	next := p.StockQuantity + delta
	if next < 0 {
		return p.StockQuantity, ErrInsufficientStock
	}
	p.StockQuantity = next
	m.productsByID[id] = p
	return next, nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if o.OrderNumber == "" {
		o.OrderNumber = fmt.Sprintf("ORD-%d", mo.store.nextOrderSeq)
		mo.store.nextOrderSeq++
	}
	if _, exists := mo.store.ordersByNum[o.OrderNumber]; exists {
		return fmt.Errorf("order %s already exists", o.OrderNumber)
	}
	o.Active = true
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	mo.store.ordersByNum[o.OrderNumber] = *o
	return nil
}

func (mo *MemoryOrders) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByNum[number]
	if !ok {
		return nil, ErrNotFound
	}
	cp := o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (mo *MemoryOrders) Update(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.ordersByNum[o.OrderNumber]; !ok {
		return ErrNotFound
	}
	o.UpdatedAt = time.Now().UTC()
	mo.store.ordersByNum[o.OrderNumber] = *o
	return nil
}

func (mo *MemoryOrders) UpdateStatus(ctx context.Context, number string, from, to domain.OrderStatus) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o, ok := mo.store.ordersByNum[number]
	if !ok {
		return ErrNotFound
	}
	if o.Status != from {
		return ErrStaleStatus
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	mo.store.ordersByNum[number] = o
	return nil
}

func (mo *MemoryOrders) UpdateShipping(ctx context.Context, number string, shipping domain.ShippingDetails) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o, ok := mo.store.ordersByNum[number]
	if !ok {
		return ErrNotFound
	}
	o.Shipping = shipping
	o.UpdatedAt = time.Now().UTC()
	mo.store.ordersByNum[number] = o
	return nil
}

func (mo *MemoryOrders) UpdatePicklistFilename(ctx context.Context, number, filename string) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o, ok := mo.store.ordersByNum[number]
	if !ok {
		return ErrNotFound
	}
	o.PicklistFilename = filename
	o.UpdatedAt = time.Now().UTC()
	mo.store.ordersByNum[number] = o
	return nil
}

func (mo *MemoryOrders) ListExpiredReservations(ctx context.Context, now time.Time) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	var out []domain.Order
	for _, o := range mo.store.ordersByNum {
		if o.Status != domain.OrderStatusPendingPayment || o.Payment.Status != domain.PaymentStatusPending {
			continue
		}
		if o.ReservationExpiresAt.IsZero() || o.ReservationExpiresAt.After(now) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (mo *MemoryOrders) ArchiveOlderThan(ctx context.Context, cutoff time.Time, statuses []domain.OrderStatus) (int, error) {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	archivable := make(map[domain.OrderStatus]bool, len(statuses))
	for _, s := range statuses {
		archivable[s] = true
	}
	n := 0
	for num, o := range mo.store.ordersByNum {
		if o.Active && archivable[o.Status] && o.UpdatedAt.Before(cutoff) {
			o.Active = false
			mo.store.ordersByNum[num] = o
			n++
		}
	}
	return n, nil
}

// StatusLogRepository implementation: append-only, ordered by acceptance time
type MemoryStatusLogs struct{ store *MemoryStore }

func NewMemoryStatusLogs(store *MemoryStore) *MemoryStatusLogs {
	return &MemoryStatusLogs{store: store}
}

var _ StatusLogRepository = (*MemoryStatusLogs)(nil)

func (ml *MemoryStatusLogs) Append(ctx context.Context, entry *domain.StatusLog) error {
	ml.store.wlock(ctx)
	defer ml.store.wunlock(ctx)
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}
	ml.store.statusLogs[entry.OrderNumber] = append(ml.store.statusLogs[entry.OrderNumber], *entry)
	return nil
}

func (ml *MemoryStatusLogs) ListByOrder(ctx context.Context, number string) ([]domain.StatusLog, error) {
	ml.store.rlock(ctx)
	defer ml.store.runlock(ctx)
	return append([]domain.StatusLog(nil), ml.store.statusLogs[number]...), nil
}

// ProviderConfigRepository implementation
func (m *MemoryStore) UpsertShipping(ctx context.Context, cfg domain.ShippingProviderConfig) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	m.shippingCfgs[cfg.ModuleName] = cfg
	return nil
}

func (m *MemoryStore) GetShipping(ctx context.Context, moduleName string) (*domain.ShippingProviderConfig, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	cfg, ok := m.shippingCfgs[moduleName]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cfg
	return &cp, nil
}

func (m *MemoryStore) ListEnabledShipping(ctx context.Context) ([]domain.ShippingProviderConfig, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	var out []domain.ShippingProviderConfig
	for _, cfg := range m.shippingCfgs {
		if cfg.IsEnabled {
			out = append(out, cfg)
		}
	}
	return out, nil
}

func (m *MemoryStore) UpsertPayment(ctx context.Context, cfg domain.PaymentProviderConfig) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	m.paymentCfgs[cfg.ModuleName] = cfg
	return nil
}

func (m *MemoryStore) GetPayment(ctx context.Context, moduleName string) (*domain.PaymentProviderConfig, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	cfg, ok := m.paymentCfgs[moduleName]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cfg
	return &cp, nil
}

func (m *MemoryStore) ListEnabledPayment(ctx context.Context) ([]domain.PaymentProviderConfig, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	var out []domain.PaymentProviderConfig
	for _, cfg := range m.paymentCfgs {
		if cfg.IsEnabled {
			out = append(out, cfg)
		}
	}
	return out, nil
}

// SettingsRepository implementation
func (m *MemoryStore) Get(ctx context.Context) (*domain.Settings, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	if m.settings == nil {
		return nil, ErrNotFound
	}
	cp := *m.settings
	return &cp, nil
}

func (m *MemoryStore) Put(ctx context.Context, s *domain.Settings) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	cp := *s
	m.settings = &cp
	return nil
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Для in-memory используем блокировку записи и помечаем контекст, чтобы репозитории пропускали внутренние локи
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, true)
	return fn(ctx)
}
