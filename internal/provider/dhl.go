package provider

import (
	"context"
	"fmt"
	"strings"

	"august/internal/domain"
)

// DHL адаптер DHL: только расчёт тарифов, выпуск этикеток не реализован
type DHL struct{}

func NewDHL() *DHL { return &DHL{} }

var _ ShippingProvider = (*DHL)(nil)

func (p *DHL) Key() string { return "dhl" }

// dhlZone обслуживаются только NL, BE и DE; зона совпадает с кодом страны
func dhlZone(countryCode string) (string, bool) {
	cc := strings.ToUpper(countryCode)
	if cc == "" {
		cc = "NL"
	}
	switch cc {
	case "NL", "BE", "DE":
		return cc, true
	}
	return "", false
}

func (p *DHL) GetRates(ctx context.Context, addr domain.Address, fitting []domain.PackageDefinition, totalWeight float64, cfg domain.ShippingProviderConfig) ([]Rate, error) {
	zone, ok := dhlZone(addr.CountryCode)
	if !ok {
		return nil, nil
	}
	zoneRates, ok := cfg.RateCard[zone]
	if !ok {
		return nil, nil
	}
	cheapest := cheapestPerServiceLevel(zoneRates, totalWeight)

	rates := make([]Rate, 0, len(cheapest))
	for _, row := range cheapest {
		rates = append(rates, Rate{
			ID:       fmt.Sprintf("dhl-%s-%s-%s", zone, row.ProductCode, row.ServiceLevel),
			Name:     fmt.Sprintf("DHL - %s (%s) < %.0fg", row.PackageName, row.ServiceLevel, row.MaxWeight),
			Price:    row.Price,
			Provider: "dhl",
		})
	}
	return rates, nil
}

func (p *DHL) CreateLabel(ctx context.Context, order *domain.Order, productCode string, cfg domain.ShippingProviderConfig) (*LabelResult, error) {
	return nil, fmt.Errorf("dhl: %w", ErrLabelingNotImplemented)
}

// DefaultDHLConfig стартовая конфигурация, загружается явным bootstrap-шагом
func DefaultDHLConfig() domain.ShippingProviderConfig {
	return domain.ShippingProviderConfig{
		ModuleName:        "dhl",
		Name:              "DHL",
		IsEnabled:         true,
		ActiveEnvironment: domain.EnvSandbox,
		Environments: []domain.Environment{
			{Name: domain.EnvProduction, APIURL: "https://api-gw.dhlparcel.nl"},
			{Name: domain.EnvSandbox, APIURL: "https://api-gw-accept.dhlparcel.nl"},
		},
		RateCard: map[string][]domain.RateCardRow{
			"NL": {
				{MaxWeight: 2000, Price: 4.5, PackageName: "Small Parcel", ServiceLevel: "Standard", ProductCode: "DFY"},
				{MaxWeight: 10000, Price: 6.95, PackageName: "Medium Parcel", ServiceLevel: "Standard", ProductCode: "DFY"},
				{MaxWeight: 20000, Price: 10.95, PackageName: "Large Parcel", ServiceLevel: "Standard", ProductCode: "DFY"},
			},
			"BE": {
				{MaxWeight: 2000, Price: 6.5, PackageName: "Small Parcel", ServiceLevel: "Standard", ProductCode: "DFY"},
				{MaxWeight: 10000, Price: 9.5, PackageName: "Medium Parcel", ServiceLevel: "Standard", ProductCode: "DFY"},
				{MaxWeight: 20000, Price: 14.5, PackageName: "Large Parcel", ServiceLevel: "Standard", ProductCode: "DFY"},
			},
			"DE": {
				{MaxWeight: 2000, Price: 7.5, PackageName: "Small Parcel", ServiceLevel: "Standard", ProductCode: "DFY"},
				{MaxWeight: 10000, Price: 10.5, PackageName: "Medium Parcel", ServiceLevel: "Standard", ProductCode: "DFY"},
				{MaxWeight: 20000, Price: 15.5, PackageName: "Large Parcel", ServiceLevel: "Standard", ProductCode: "DFY"},
			},
		},
	}
}
