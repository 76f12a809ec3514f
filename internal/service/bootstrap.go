package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"august/internal/domain"
	"august/internal/provider"
	"august/internal/repository"
)

// Bootstrap одноразовый шаг инициализации: загружает стартовые конфигурации
// провайдеров и настройки магазина, если их ещё нет. Вызывается явно до
// старта сервера; во время обслуживания запросов конфигурация не мутируется.
func Bootstrap(ctx context.Context, cfgs repository.ProviderConfigRepository, settings repository.SettingsRepository, log *zap.Logger) error {
	shipping := []domain.ShippingProviderConfig{
		provider.DefaultPostNLConfig(),
		provider.DefaultDHLConfig(),
		provider.DefaultDPDConfig(),
	}
	for _, cfg := range shipping {
		if _, err := cfgs.GetShipping(ctx, cfg.ModuleName); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := cfgs.UpsertShipping(ctx, cfg); err != nil {
			return err
		}
		log.Info("seeded carrier config", zap.String("module", cfg.ModuleName))
	}

	payment := []domain.PaymentProviderConfig{
		provider.DefaultPayPalConfig(),
		provider.DefaultBankTransferConfig(),
	}
	for _, cfg := range payment {
		if _, err := cfgs.GetPayment(ctx, cfg.ModuleName); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := cfgs.UpsertPayment(ctx, cfg); err != nil {
			return err
		}
		log.Info("seeded payment config", zap.String("module", cfg.ModuleName))
	}

	if _, err := settings.Get(ctx); errors.Is(err, repository.ErrNotFound) {
		if err := settings.Put(ctx, DefaultSettings()); err != nil {
			return err
		}
		log.Info("seeded shop settings")
	} else if err != nil {
		return err
	}
	return nil
}

// DefaultSettings настройки магазина по умолчанию
func DefaultSettings() *domain.Settings {
	return &domain.Settings{
		ShopAddress: domain.ShopAddress{
			Name:        "Webshop",
			Street:      "Winkelstraat 1",
			ZipCode:     "1234 AB",
			City:        "Amsterdam",
			CountryCode: "NL",
		},
		ShippingPackages: []domain.PackageDefinition{
			{Name: "Letter", Length: 23, Width: 16, Height: 1, MaxWeight: 350},
			{Name: "Letterbox", Length: 38, Width: 26, Height: 3.2, MaxWeight: 2000},
			{Name: "Small Parcel", Length: 30, Width: 20, Height: 15, MaxWeight: 5000},
			{Name: "Medium Parcel", Length: 40, Width: 30, Height: 20, MaxWeight: 10000},
			{Name: "Large Parcel", Length: 60, Width: 40, Height: 30, MaxWeight: 23000},
		},
		ReservationDays:       defaultReservationDays,
		ArchiveOrdersDays:     defaultArchiveDays,
		ArchiveOrdersStatuses: []domain.OrderStatus{domain.OrderStatusShipped, domain.OrderStatusCancelled},
	}
}
