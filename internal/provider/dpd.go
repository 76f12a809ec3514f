package provider

import (
	"context"
	"fmt"
	"strings"

	"august/internal/domain"
)

// DPD адаптер DPD: тарифы Standard и Pickup, выпуск этикеток не реализован
type DPD struct{}

func NewDPD() *DPD { return &DPD{} }

var _ ShippingProvider = (*DPD)(nil)

func (p *DPD) Key() string { return "dpd" }

var dpdEU = []string{"DK", "FR", "IT", "AT", "ES", "PL", "PT", "CZ", "SE"}

// dpdZone BE и LU делят общую зону BELUX
func dpdZone(countryCode string) (string, bool) {
	cc := strings.ToUpper(countryCode)
	switch {
	case cc == "" || cc == "NL":
		return "NL", true
	case cc == "BE" || cc == "LU":
		return "BELUX", true
	case cc == "DE":
		return "DE", true
	case contains(dpdEU, cc):
		return "EU", true
	}
	return "", false
}

func (p *DPD) GetRates(ctx context.Context, addr domain.Address, fitting []domain.PackageDefinition, totalWeight float64, cfg domain.ShippingProviderConfig) ([]Rate, error) {
	zone, ok := dpdZone(addr.CountryCode)
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
			ID:       fmt.Sprintf("dpd-%s-%s-%s", zone, row.ProductCode, row.ServiceLevel),
			Name:     fmt.Sprintf("DPD - %s (%s) < %.0fg", row.PackageName, row.ServiceLevel, row.MaxWeight),
			Price:    row.Price,
			Provider: "dpd",
		})
	}
	return rates, nil
}

func (p *DPD) CreateLabel(ctx context.Context, order *domain.Order, productCode string, cfg domain.ShippingProviderConfig) (*LabelResult, error) {
	return nil, fmt.Errorf("dpd: %w", ErrLabelingNotImplemented)
}

// DefaultDPDConfig стартовая конфигурация, загружается явным bootstrap-шагом
func DefaultDPDConfig() domain.ShippingProviderConfig {
	return domain.ShippingProviderConfig{
		ModuleName:        "dpd",
		Name:              "DPD",
		IsEnabled:         true,
		ActiveEnvironment: domain.EnvSandbox,
		Environments: []domain.Environment{
			{Name: domain.EnvProduction, APIURL: "https://api.dpd.nl"},
			{Name: domain.EnvSandbox, APIURL: "https://api-stage.dpd.nl"},
		},
		RateCard: map[string][]domain.RateCardRow{
			"NL": {
				{MaxWeight: 3000, Price: 4.95, PackageName: "Small Parcel", ServiceLevel: "Standard", ProductCode: "CL"},
				{MaxWeight: 10000, Price: 6.5, PackageName: "Medium Parcel", ServiceLevel: "Standard", ProductCode: "CL"},
				{MaxWeight: 20000, Price: 9.95, PackageName: "Large Parcel", ServiceLevel: "Standard", ProductCode: "CL"},
				{MaxWeight: 10000, Price: 5.5, PackageName: "Medium Parcel", ServiceLevel: "Pickup", ProductCode: "PS"},
				{MaxWeight: 20000, Price: 8.5, PackageName: "Large Parcel", ServiceLevel: "Pickup", ProductCode: "PS"},
			},
			"BELUX": {
				{MaxWeight: 3000, Price: 6.95, PackageName: "Small Parcel", ServiceLevel: "Standard", ProductCode: "CL"},
				{MaxWeight: 10000, Price: 8.95, PackageName: "Medium Parcel", ServiceLevel: "Standard", ProductCode: "CL"},
				{MaxWeight: 20000, Price: 12.95, PackageName: "Large Parcel", ServiceLevel: "Standard", ProductCode: "CL"},
				{MaxWeight: 10000, Price: 7.5, PackageName: "Medium Parcel", ServiceLevel: "Pickup", ProductCode: "PS"},
			},
			"DE": {
				{MaxWeight: 3000, Price: 7.5, PackageName: "Small Parcel", ServiceLevel: "Standard", ProductCode: "CL"},
				{MaxWeight: 10000, Price: 9.95, PackageName: "Medium Parcel", ServiceLevel: "Standard", ProductCode: "CL"},
				{MaxWeight: 20000, Price: 13.95, PackageName: "Large Parcel", ServiceLevel: "Standard", ProductCode: "CL"},
			},
			"EU": {
				{MaxWeight: 3000, Price: 9.95, PackageName: "Small Parcel", ServiceLevel: "Standard", ProductCode: "CL"},
				{MaxWeight: 10000, Price: 13.95, PackageName: "Medium Parcel", ServiceLevel: "Standard", ProductCode: "CL"},
				{MaxWeight: 20000, Price: 19.95, PackageName: "Large Parcel", ServiceLevel: "Standard", ProductCode: "CL"},
			},
		},
	}
}
