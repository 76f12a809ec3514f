package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"august/internal/domain"
	"august/internal/provider"
	"august/internal/repository"
)

const transitionRetries = 3

// LabelIssue результат выпуска этикетки
type LabelIssue struct {
	TrackingNumber string `json:"tracking_number"`
	LabelURL       string `json:"label_url"`
}

// LabelStore хранилище бинарных этикеток
type LabelStore interface {
	Save(orderNumber, trackingNumber string, data []byte) (string, error)
	Open(filename string) ([]byte, error)
}

// LabelService выпуск этикеток у перевозчика и перевод заказа в processing.
// Этикетка и переход — одна логическая единица: повторный выпуск у
// перевозчика не идемпотентен, поэтому при сбое перехода повторяется только
// переход, этикетка не запрашивается заново.
type LabelService struct {
	orders   repository.OrderRepository
	cfgs     repository.ProviderConfigRepository
	registry *provider.Registry
	store    LabelStore
	machine  *StatusMachine
	log      *zap.Logger
}

func NewLabelService(
	orders repository.OrderRepository,
	cfgs repository.ProviderConfigRepository,
	registry *provider.Registry,
	store LabelStore,
	machine *StatusMachine,
	log *zap.Logger,
) *LabelService {
	return &LabelService{orders: orders, cfgs: cfgs, registry: registry, store: store, machine: machine, log: log}
}

// IssueLabel разбирает идентификатор тарифа обратно в провайдера и код
// продукта, выпускает этикетку и двигает заказ в processing
func (s *LabelService) IssueLabel(ctx context.Context, orderNumber, rateID, actor string) (*LabelIssue, error) {
	moduleName, productCode, err := parseRateID(rateID)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	// a label already exists: never re-request it, only retry the transition
	if order.Shipping.TrackingNumber != "" {
		if err := s.transitionToProcessing(ctx, order, actor); err != nil {
			return nil, err
		}
		return &LabelIssue{TrackingNumber: order.Shipping.TrackingNumber, LabelURL: order.Shipping.LabelURL}, nil
	}

	adapter, ok := s.registry.Shipping(moduleName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown carrier %q", provider.ErrUnavailable, moduleName)
	}
	cfg, err := s.cfgs.GetShipping(ctx, moduleName)
	if err != nil {
		return nil, fmt.Errorf("%w: carrier %q not configured", provider.ErrUnavailable, moduleName)
	}
	if !cfg.IsEnabled {
		return nil, fmt.Errorf("%w: carrier %q is disabled", provider.ErrUnavailable, moduleName)
	}

	result, err := adapter.CreateLabel(ctx, order, productCode, *cfg)
	if err != nil {
		return nil, err
	}

	// the tracking number is recorded before the binary lands on disk: the
	// no-reissue guard must hold even if the process dies in between. Only
	// the shipping details are written, the carrier call above is slow and
	// the rest of the order may have moved on.
	order.Shipping.Provider = moduleName
	order.Shipping.MethodID = rateID
	order.Shipping.TrackingNumber = result.TrackingNumber
	if err := s.orders.UpdateShipping(ctx, orderNumber, order.Shipping); err != nil {
		return nil, err
	}
	filename, err := s.store.Save(orderNumber, result.TrackingNumber, result.LabelData)
	if err != nil {
		return nil, err
	}
	order.Shipping.LabelURL = "/api/v1/shipping/labels/" + filename
	if err := s.orders.UpdateShipping(ctx, orderNumber, order.Shipping); err != nil {
		return nil, err
	}
	s.log.Info("label issued",
		zap.String("order_number", orderNumber),
		zap.String("carrier", moduleName),
		zap.String("tracking_number", result.TrackingNumber))

	if err := s.transitionToProcessing(ctx, order, actor); err != nil {
		return nil, err
	}
	return &LabelIssue{TrackingNumber: order.Shipping.TrackingNumber, LabelURL: order.Shipping.LabelURL}, nil
}

// transitionToProcessing с ограниченным числом повторов и только на
// транзиентных ошибках. Заказ, уже ушедший в processing или дальше,
// считается успехом.
func (s *LabelService) transitionToProcessing(ctx context.Context, order *domain.Order, actor string) error {
	if !unfulfilled(order.Status) {
		return nil
	}
	comment := "shipping label " + order.Shipping.TrackingNumber + " issued"
	var lastErr error
	for attempt := 0; attempt < transitionRetries; attempt++ {
		updated, err := s.machine.ChangeStatus(ctx, order.OrderNumber, domain.OrderStatusProcessing, actor, comment)
		if err == nil {
			*order = *updated
			return nil
		}
		var invalid *InvalidTransitionError
		if errors.As(err, &invalid) {
			return err
		}
		lastErr = err
		s.log.Warn("processing transition failed, retrying",
			zap.String("order_number", order.OrderNumber),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return lastErr
}

// GetLabel отдаёт сохранённый PDF по имени файла
func (s *LabelService) GetLabel(filename string) ([]byte, error) {
	return s.store.Open(filename)
}

// parseRateID идентификатор тарифа стабилен:
// {module}-{zone}-{productCode}-{serviceLevel}
func parseRateID(rateID string) (moduleName, productCode string, err error) {
	parts := strings.SplitN(rateID, "-", 4)
	if len(parts) != 4 || parts[0] == "" || parts[2] == "" {
		return "", "", ErrInvalidInput
	}
	return parts[0], parts[2], nil
}
