package provider

import (
	"context"
	"errors"

	"august/internal/domain"
)

// ErrLabelingNotImplemented постоянная ошибка: провайдер не умеет выпускать этикетки
var ErrLabelingNotImplemented = errors.New("label creation is not implemented")

// ErrUnavailable транзиентная ошибка внешнего API: состояние заказа не тронуто,
// повтор безопасен. Оборачивается с ключом провайдера, без учётных данных.
var ErrUnavailable = errors.New("provider unavailable")

// Rate один тариф доставки. ID имеет стабильный формат
// {module}-{zone}-{productCode}-{serviceLevel} и разбирается обратно при выпуске этикетки.
type Rate struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Provider string  `json:"provider"`
}

// LabelResult результат выпуска этикетки у перевозчика
type LabelResult struct {
	TrackingNumber string
	LabelData      []byte
}

// ShippingProvider контракт адаптера перевозчика
type ShippingProvider interface {
	Key() string
	GetRates(ctx context.Context, addr domain.Address, fitting []domain.PackageDefinition, totalWeight float64, cfg domain.ShippingProviderConfig) ([]Rate, error)
	CreateLabel(ctx context.Context, order *domain.Order, productCode string, cfg domain.ShippingProviderConfig) (*LabelResult, error)
}

// InitiateResult ответ на инициацию платежа: confirm — заказ можно
// размещать сразу, pay — покупатель должен завершить оплату онлайн.
type InitiateResult struct {
	Action        string `json:"action"` // confirm | pay
	TransactionID string `json:"transaction_id,omitempty"`
}

// CaptureResult результат подтверждения онлайн-платежа
type CaptureResult struct {
	Status string `json:"status"`
}

// PaymentProvider контракт платёжного адаптера. Оффлайн-провайдеры
// реализуют только Initiate и всегда отвечают confirm.
type PaymentProvider interface {
	Key() string
	IsOnline() bool
	Initiate(ctx context.Context, draft *domain.Order, cfg domain.PaymentProviderConfig) (*InitiateResult, error)
	Capture(ctx context.Context, transactionRef string, cfg domain.PaymentProviderConfig) (*CaptureResult, error)
}

// Registry явная статическая карта провайдеров. Собирается один раз при
// старте и инжектится в сервисы — никакого сканирования каталогов.
type Registry struct {
	shipping map[string]ShippingProvider
	payment  map[string]PaymentProvider
}

func NewRegistry(shipping []ShippingProvider, payment []PaymentProvider) *Registry {
	r := &Registry{
		shipping: make(map[string]ShippingProvider, len(shipping)),
		payment:  make(map[string]PaymentProvider, len(payment)),
	}
	for _, p := range shipping {
		r.shipping[p.Key()] = p
	}
	for _, p := range payment {
		r.payment[p.Key()] = p
	}
	return r
}

func (r *Registry) Shipping(key string) (ShippingProvider, bool) {
	p, ok := r.shipping[key]
	return p, ok
}

func (r *Registry) Payment(key string) (PaymentProvider, bool) {
	p, ok := r.payment[key]
	return p, ok
}
