package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"august/internal/domain"
	"august/internal/provider"
	"august/internal/repository"
)

// CartItem строка корзины на входе расчёта доставки
type CartItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// Quote результат расчёта: тарифы всех провайдеров по возрастанию цены
type Quote struct {
	Rates       []provider.Rate `json:"rates"`
	TotalWeight float64         `json:"total_weight"`
}

// RateEngine подбирает упаковку под габариты корзины и собирает тарифы
// включённых перевозчиков
type RateEngine struct {
	products repository.ProductRepository
	cfgs     repository.ProviderConfigRepository
	settings repository.SettingsRepository
	registry *provider.Registry
	log      *zap.Logger
}

func NewRateEngine(
	products repository.ProductRepository,
	cfgs repository.ProviderConfigRepository,
	settings repository.SettingsRepository,
	registry *provider.Registry,
	log *zap.Logger,
) *RateEngine {
	return &RateEngine{products: products, cfgs: cfgs, settings: settings, registry: registry, log: log}
}

// Quote считает вес/объём корзины, отбирает подходящие упаковки и опрашивает
// провайдеров. Ни одной подходящей упаковки — пустой результат, не ошибка:
// "не можем доставить" показывается покупателю. Нулевой вес — ошибка входа.
func (e *RateEngine) Quote(ctx context.Context, addr domain.Address, items []CartItem) (*Quote, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return nil, ErrInvalidInput
		}
		ids = append(ids, it.ProductID)
	}
	products, err := e.products.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	var totalWeight, totalVolume, maxDimension float64
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, repository.ErrNotFound
		}
		q := float64(it.Quantity)
		totalWeight += p.Weight * q
		totalVolume += p.Dimensions.Volume() * q
		if side := p.Dimensions.MaxSide(); side > maxDimension {
			maxDimension = side
		}
	}
	if totalWeight == 0 {
		return nil, ErrEmptyOrder
	}

	settings, err := e.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	fitting := fitPackages(settings.ShippingPackages, totalWeight, totalVolume, maxDimension)
	if len(fitting) == 0 {
		return &Quote{Rates: []provider.Rate{}, TotalWeight: totalWeight}, nil
	}

	enabled, err := e.cfgs.ListEnabledShipping(ctx)
	if err != nil {
		return nil, err
	}
	var rates []provider.Rate
	for _, cfg := range enabled {
		adapter, ok := e.registry.Shipping(cfg.ModuleName)
		if !ok {
			e.log.Warn("no adapter for enabled carrier", zap.String("module", cfg.ModuleName))
			continue
		}
		providerRates, err := adapter.GetRates(ctx, addr, fitting, totalWeight, cfg)
		if err != nil {
			// one broken carrier must not empty the whole quote
			e.log.Warn("carrier rate lookup failed",
				zap.String("module", cfg.ModuleName), zap.Error(err))
			continue
		}
		rates = append(rates, providerRates...)
	}

	sort.Slice(rates, func(i, j int) bool { return rates[i].Price < rates[j].Price })
	if rates == nil {
		rates = []provider.Rate{}
	}
	return &Quote{Rates: rates, TotalWeight: totalWeight}, nil
}

// fitPackages упаковки, вмещающие заказ по весу, объёму и наибольшей
// стороне; отсортированы от меньшего объёма к большему
func fitPackages(packages []domain.PackageDefinition, totalWeight, totalVolume, maxDimension float64) []domain.PackageDefinition {
	var fitting []domain.PackageDefinition
	for _, pkg := range packages {
		if totalWeight <= pkg.MaxWeight && totalVolume <= pkg.Volume() && maxDimension <= pkg.MaxSide() {
			fitting = append(fitting, pkg)
		}
	}
	sort.Slice(fitting, func(i, j int) bool { return fitting[i].Volume() < fitting[j].Volume() })
	return fitting
}
