package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"august/internal/domain"
	"august/internal/notify"
	"august/internal/provider"
	"august/internal/repository"
)

const (
	defaultReservationDays = 7
	viewTokenTTL           = time.Hour
)

// OrderDraft заказ, собранный клиентом до оплаты
type OrderDraft struct {
	Customer domain.CustomerDetails `json:"customer"`
	Items    []CartItem             `json:"items"`
	Shipping domain.ShippingDetails `json:"shipping"`
}

// PaymentOutcome результат шага оплаты. Action confirm — заказ размещён,
// pay — покупатель должен завершить оплату у провайдера и вернуться в capture.
type PaymentOutcome struct {
	Action        string        `json:"action"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Order         *domain.Order `json:"order,omitempty"`
	ViewToken     string        `json:"view_token,omitempty"`
	Instructions  string        `json:"instructions,omitempty"`
}

// CheckoutService инициация и подтверждение оплаты, размещение финального заказа
type CheckoutService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	logs     repository.StatusLogRepository
	cfgs     repository.ProviderConfigRepository
	settings repository.SettingsRepository
	registry *provider.Registry
	ledger   *StockLedger
	notifier notify.Dispatcher
	tx       repository.TxManager
	log      *zap.Logger
}

func NewCheckoutService(
	products repository.ProductRepository,
	orders repository.OrderRepository,
	logs repository.StatusLogRepository,
	cfgs repository.ProviderConfigRepository,
	settings repository.SettingsRepository,
	registry *provider.Registry,
	ledger *StockLedger,
	notifier notify.Dispatcher,
	tx repository.TxManager,
	log *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		products: products,
		orders:   orders,
		logs:     logs,
		cfgs:     cfgs,
		settings: settings,
		registry: registry,
		ledger:   ledger,
		notifier: notifier,
		tx:       tx,
		log:      log,
	}
}

// InitiatePayment проверяет наличие товара и запускает оплату. Оффлайн-метод
// размещает заказ сразу как pending payment с бронью склада; онлайн-метод
// возвращает ссылку на транзакцию, заказ размещается в CapturePayment.
func (s *CheckoutService) InitiatePayment(ctx context.Context, method string, draft OrderDraft, actor string) (*PaymentOutcome, error) {
	adapter, cfg, err := s.paymentAdapter(ctx, method)
	if err != nil {
		return nil, err
	}
	items, total, err := s.buildItems(ctx, draft)
	if err != nil {
		return nil, err
	}
	if err := s.verifyStock(ctx, items); err != nil {
		return nil, err
	}

	skeleton := domain.Order{Customer: draft.Customer, Items: items, TotalAmount: total, Shipping: draft.Shipping}
	res, err := adapter.Initiate(ctx, &skeleton, *cfg)
	if err != nil {
		return nil, err
	}
	if res.Action == "pay" {
		return &PaymentOutcome{Action: "pay", TransactionID: res.TransactionID}, nil
	}

	order, err := s.placeFinalOrder(ctx, draft, items, total, method, domain.PaymentStatusPending, "", actor)
	if err != nil {
		return nil, err
	}
	return &PaymentOutcome{
		Action:       "confirm",
		Order:        order,
		ViewToken:    order.ViewToken,
		Instructions: cfg.Instructions,
	}, nil
}

// CapturePayment подтверждает онлайн-оплату и размещает финальный заказ
func (s *CheckoutService) CapturePayment(ctx context.Context, method, transactionRef string, draft OrderDraft, actor string) (*PaymentOutcome, error) {
	adapter, cfg, err := s.paymentAdapter(ctx, method)
	if err != nil {
		return nil, err
	}
	if !adapter.IsOnline() {
		return nil, ErrInvalidInput
	}
	res, err := adapter.Capture(ctx, transactionRef, *cfg)
	if err != nil {
		return nil, err
	}
	if res.Status != string(domain.PaymentStatusPaid) {
		return nil, ErrPaymentRejected
	}

	items, total, err := s.buildItems(ctx, draft)
	if err != nil {
		return nil, err
	}
	order, err := s.placeFinalOrder(ctx, draft, items, total, method, domain.PaymentStatusPaid, transactionRef, actor)
	if err != nil {
		return nil, err
	}
	return &PaymentOutcome{Action: "confirm", Order: order, ViewToken: order.ViewToken}, nil
}

func (s *CheckoutService) paymentAdapter(ctx context.Context, method string) (provider.PaymentProvider, *domain.PaymentProviderConfig, error) {
	cfg, err := s.cfgs.GetPayment(ctx, method)
	if err != nil {
		return nil, nil, ErrInvalidInput
	}
	if !cfg.IsEnabled {
		return nil, nil, ErrInvalidInput
	}
	adapter, ok := s.registry.Payment(method)
	if !ok {
		return nil, nil, ErrInvalidInput
	}
	return adapter, cfg, nil
}

// buildItems копирует имя, артикул, цену и вес из каталога в позиции заказа
func (s *CheckoutService) buildItems(ctx context.Context, draft OrderDraft) ([]domain.OrderItem, float64, error) {
	if len(draft.Items) == 0 || draft.Customer.Email == "" {
		return nil, 0, ErrInvalidInput
	}
	ids := make([]int64, 0, len(draft.Items))
	for _, it := range draft.Items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return nil, 0, ErrInvalidInput
		}
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	items := make([]domain.OrderItem, 0, len(draft.Items))
	total := draft.Shipping.Cost
	for _, it := range draft.Items {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, 0, repository.ErrNotFound
		}
		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			SKU:       p.SKU,
			Price:     p.Price,
			Weight:    p.Weight,
			Quantity:  it.Quantity,
		})
		total += p.Price * float64(it.Quantity)
	}
	return items, total, nil
}

// verifyStock проверка наличия до похода к платёжному провайдеру. Чистое
// чтение для раннего отказа: ничего не резервирует и ничего не решает.
// Обязательная проверка остатка — атомарный условный декремент в StockLedger
// при размещении финального заказа.
func (s *CheckoutService) verifyStock(ctx context.Context, items []domain.OrderItem) error {
	for _, it := range items {
		p, err := s.products.GetByID(ctx, it.ProductID)
		if err != nil {
			return err
		}
		if p.StockQuantity < it.Quantity {
			return &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: it.Quantity,
				Available: p.StockQuantity,
			}
		}
	}
	return nil
}

// placeFinalOrder бронирует склад и создаёт заказ одним логическим шагом
func (s *CheckoutService) placeFinalOrder(ctx context.Context, draft OrderDraft, items []domain.OrderItem, total float64, method string, payStatus domain.PaymentStatus, transactionID, actor string) (*domain.Order, error) {
	now := time.Now().UTC()
	order := &domain.Order{
		Customer:    draft.Customer,
		Items:       items,
		TotalAmount: total,
		Status:      domain.OrderStatusReceived,
		Payment: domain.PaymentDetails{
			Method:        method,
			Status:        payStatus,
			TransactionID: transactionID,
			Date:          now,
		},
		Shipping:         draft.Shipping,
		StockCommitted:   true,
		ViewToken:        uuid.NewString(),
		ViewTokenExpires: now.Add(viewTokenTTL),
	}
	if payStatus == domain.PaymentStatusPending {
		order.Status = domain.OrderStatusPendingPayment
		order.ReservationExpiresAt = now.AddDate(0, 0, s.reservationDays(ctx))
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.ledger.ReserveItems(ctx, order.Items); err != nil {
			return err
		}
		if err := s.orders.Create(ctx, order); err != nil {
			if rerr := s.ledger.ReleaseItems(ctx, order.Items); rerr != nil {
				s.log.Error("stock compensation failed", zap.Error(rerr))
			}
			return err
		}
		entry := domain.StatusLog{
			OrderNumber: order.OrderNumber,
			OldStatus:   domain.OrderStatusCreated,
			NewStatus:   order.Status,
			ChangedBy:   actor,
			Comment:     "order placed",
		}
		if err := s.logs.Append(ctx, &entry); err != nil {
			// order without an audit trail must not stay live
			if rerr := s.ledger.ReleaseItems(ctx, order.Items); rerr != nil {
				s.log.Error("stock compensation failed", zap.Error(rerr))
			}
			order.Active = false
			order.StockCommitted = false
			if uerr := s.orders.Update(ctx, order); uerr != nil {
				s.log.Error("order rollback failed", zap.Error(uerr))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	kind := notify.KindOrderConfirmation
	if payStatus == domain.PaymentStatusPending {
		kind = notify.KindPendingPayment
	}
	if err := s.notifier.Send(ctx, kind, order, order.ViewToken); err != nil {
		s.log.Warn("notification failed",
			zap.String("order_number", order.OrderNumber),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
	s.log.Info("order placed",
		zap.String("order_number", order.OrderNumber),
		zap.String("status", string(order.Status)),
		zap.String("method", method))
	return order, nil
}

func (s *CheckoutService) reservationDays(ctx context.Context) int {
	settings, err := s.settings.Get(ctx)
	if err != nil || settings.ReservationDays <= 0 {
		return defaultReservationDays
	}
	return settings.ReservationDays
}
