package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"august/internal/domain"
)

// PostNL адаптер PostNL: тарифы по зонам и выпуск этикеток через shipment API
type PostNL struct {
	Client *http.Client
	Shop   domain.ShopAddress
}

func NewPostNL(client *http.Client, shop domain.ShopAddress) *PostNL {
	return &PostNL{Client: client, Shop: shop}
}

var _ ShippingProvider = (*PostNL)(nil)

func (p *PostNL) Key() string { return "postnl" }

var postnlEUR1 = []string{"BE", "DK", "DE", "FR", "IT", "LU", "AT", "ES", "GB", "SE"}
var postnlEUR2 = []string{"FI", "HU", "IE", "PL", "PT", "SI", "SK", "CZ"}

// postnlZone провайдерская таблица страна->зона
func postnlZone(countryCode string) string {
	cc := strings.ToUpper(countryCode)
	switch {
	case cc == "" || cc == "NL":
		return "NL"
	case contains(postnlEUR1, cc):
		return "EUR1"
	case contains(postnlEUR2, cc):
		return "EUR2"
	default:
		return "ROW"
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func (p *PostNL) GetRates(ctx context.Context, addr domain.Address, fitting []domain.PackageDefinition, totalWeight float64, cfg domain.ShippingProviderConfig) ([]Rate, error) {
	zone := postnlZone(addr.CountryCode)
	zoneRates, ok := cfg.RateCard[zone]
	if !ok {
		return nil, nil
	}
	cheapest := cheapestPerServiceLevel(zoneRates, totalWeight)

	rates := make([]Rate, 0, len(cheapest))
	for _, row := range cheapest {
		rates = append(rates, Rate{
			ID:       fmt.Sprintf("postnl-%s-%s-%s", zone, row.ProductCode, row.ServiceLevel),
			Name:     fmt.Sprintf("PostNL - %s (%s) < %.0fg", row.PackageName, row.ServiceLevel, row.MaxWeight),
			Price:    row.Price,
			Provider: "postnl",
		})
	}
	return rates, nil
}

// cheapestPerServiceLevel оставляет из применимых строк (порог веса
// включительно) самую дешёвую на каждый уровень сервиса
func cheapestPerServiceLevel(rows []domain.RateCardRow, totalWeight float64) map[string]domain.RateCardRow {
	cheapest := make(map[string]domain.RateCardRow)
	for _, row := range rows {
		if totalWeight > row.MaxWeight {
			continue
		}
		cur, ok := cheapest[row.ServiceLevel]
		if !ok || row.Price < cur.Price {
			cheapest[row.ServiceLevel] = row
		}
	}
	return cheapest
}

// Формы запроса/ответа PostNL shipment API v2_2
type postnlLabelRequest struct {
	Customer  postnlCustomer   `json:"Customer"`
	Message   postnlMessage    `json:"Message"`
	Shipments []postnlShipment `json:"Shipments"`
}

type postnlCustomer struct {
	CustomerCode   string        `json:"CustomerCode"`
	CustomerNumber string        `json:"CustomerNumber"`
	Address        postnlAddress `json:"Address"`
}

type postnlMessage struct {
	MessageID   string `json:"MessageID"`
	Printertype string `json:"Printertype"`
}

type postnlAddress struct {
	AddressType string `json:"AddressType"`
	CompanyName string `json:"CompanyName,omitempty"`
	FirstName   string `json:"FirstName,omitempty"`
	Name        string `json:"Name,omitempty"`
	Street      string `json:"Street"`
	HouseNr     string `json:"HouseNr,omitempty"`
	Zipcode     string `json:"Zipcode"`
	City        string `json:"City"`
	Countrycode string `json:"Countrycode"`
}

type postnlContact struct {
	ContactType string `json:"ContactType"`
	Email       string `json:"Email"`
}

type postnlShipment struct {
	Addresses           []postnlAddress `json:"Addresses"`
	Contacts            []postnlContact `json:"Contacts"`
	Dimension           postnlDimension `json:"Dimension"`
	ProductCodeDelivery string          `json:"ProductCodeDelivery"`
	Reference           string          `json:"Reference"`
}

type postnlDimension struct {
	Weight int64 `json:"Weight"`
}

type postnlLabelResponse struct {
	ResponseShipments []struct {
		Barcode string `json:"Barcode"`
		Labels  []struct {
			Content string `json:"Content"`
		} `json:"Labels"`
	} `json:"ResponseShipments"`
}

func (p *PostNL) CreateLabel(ctx context.Context, order *domain.Order, productCode string, cfg domain.ShippingProviderConfig) (*LabelResult, error) {
	env, ok := cfg.ActiveEnv()
	if !ok {
		return nil, fmt.Errorf("postnl: active environment %q not configured", cfg.ActiveEnvironment)
	}

	var totalWeight float64
	for _, it := range order.Items {
		totalWeight += it.Weight * float64(it.Quantity)
	}

	firstName, lastName := splitName(order.Customer.Name)
	reqBody := postnlLabelRequest{
		Customer: postnlCustomer{
			CustomerCode:   env.Credentials.CustomerCode,
			CustomerNumber: env.Credentials.CustomerNumber,
			Address: postnlAddress{
				AddressType: "02",
				CompanyName: p.Shop.Name,
				Street:      p.Shop.Street,
				Zipcode:     strings.ReplaceAll(p.Shop.ZipCode, " ", ""),
				City:        p.Shop.City,
				Countrycode: p.Shop.CountryCode,
			},
		},
		Message: postnlMessage{MessageID: "1", Printertype: "GraphicFile|PDF"},
		Shipments: []postnlShipment{{
			Addresses: []postnlAddress{{
				AddressType: "01",
				FirstName:   firstName,
				Name:        lastName,
				Street:      order.Customer.Address.Street,
				HouseNr:     order.Customer.Address.HouseNumber,
				Zipcode:     strings.ReplaceAll(order.Customer.Address.ZipCode, " ", ""),
				City:        order.Customer.Address.City,
				Countrycode: order.Customer.Address.CountryCode,
			}},
			Contacts:            []postnlContact{{ContactType: "01", Email: order.Customer.Email}},
			Dimension:           postnlDimension{Weight: int64(totalWeight)},
			ProductCodeDelivery: productCode,
			Reference:           order.OrderNumber,
		}},
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, env.APIURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", env.Credentials.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("postnl: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("postnl: %w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed postnlLabelResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("postnl: %w: invalid response", ErrUnavailable)
	}
	if len(parsed.ResponseShipments) == 0 ||
		parsed.ResponseShipments[0].Barcode == "" ||
		len(parsed.ResponseShipments[0].Labels) == 0 {
		return nil, fmt.Errorf("postnl: %w: invalid response structure", ErrUnavailable)
	}

	shipment := parsed.ResponseShipments[0]
	label, err := base64.StdEncoding.DecodeString(shipment.Labels[0].Content)
	if err != nil {
		return nil, fmt.Errorf("postnl: %w: malformed label content", ErrUnavailable)
	}
	return &LabelResult{TrackingNumber: shipment.Barcode, LabelData: label}, nil
}

func splitName(full string) (first, rest string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// DefaultPostNLConfig стартовая конфигурация, загружается явным bootstrap-шагом
func DefaultPostNLConfig() domain.ShippingProviderConfig {
	return domain.ShippingProviderConfig{
		ModuleName:        "postnl",
		Name:              "PostNL",
		IsEnabled:         true,
		ActiveEnvironment: domain.EnvSandbox,
		Environments: []domain.Environment{
			{Name: domain.EnvProduction, APIURL: "https://api.postnl.nl/shipment/v2_2/label"},
			{Name: domain.EnvSandbox, APIURL: "https://api-sandbox.postnl.nl/shipment/v2_2/label"},
		},
		RateCard: map[string][]domain.RateCardRow{
			"NL": {
				{MaxWeight: 20, Price: 1.21, PackageName: "Letter Small", ServiceLevel: "Untracked", ProductCode: "2928"},
				{MaxWeight: 50, Price: 2.42, PackageName: "Letter Small", ServiceLevel: "Untracked", ProductCode: "2928"},
				{MaxWeight: 350, Price: 3.92, PackageName: "Letter Small", ServiceLevel: "Untracked", ProductCode: "2928"},
				{MaxWeight: 2000, Price: 4.25, PackageName: "Letterbox", ServiceLevel: "Tracked", ProductCode: "2928"},
				{MaxWeight: 10000, Price: 7.95, PackageName: "Medium Parcel", ServiceLevel: "Tracked", ProductCode: "3085"},
				{MaxWeight: 23000, Price: 14.5, PackageName: "Large Parcel", ServiceLevel: "Tracked", ProductCode: "3085"},
			},
			"EUR1": {
				{MaxWeight: 350, Price: 7.6, PackageName: "Letter", ServiceLevel: "Untracked", ProductCode: "2940"},
				{MaxWeight: 2000, Price: 9.95, PackageName: "Letterbox", ServiceLevel: "Tracked", ProductCode: "3550"},
				{MaxWeight: 2000, Price: 14.5, PackageName: "Small Parcel", ServiceLevel: "Tracked", ProductCode: "4945"},
				{MaxWeight: 5000, Price: 19.5, PackageName: "Medium Parcel", ServiceLevel: "Tracked", ProductCode: "4945"},
			},
			"EUR2": {
				{MaxWeight: 350, Price: 7.6, PackageName: "Letter", ServiceLevel: "Untracked", ProductCode: "2940"},
				{MaxWeight: 2000, Price: 14.5, PackageName: "Letterbox", ServiceLevel: "Tracked", ProductCode: "3550"},
				{MaxWeight: 2000, Price: 20, PackageName: "Small Parcel", ServiceLevel: "Tracked", ProductCode: "4945"},
				{MaxWeight: 5000, Price: 26, PackageName: "Medium Parcel", ServiceLevel: "Tracked", ProductCode: "4945"},
			},
			"ROW": {
				{MaxWeight: 350, Price: 7.6, PackageName: "Letter", ServiceLevel: "Untracked", ProductCode: "2940"},
				{MaxWeight: 2000, Price: 29.5, PackageName: "Letterbox", ServiceLevel: "Tracked", ProductCode: "3530"},
				{MaxWeight: 2000, Price: 31, PackageName: "Small Parcel", ServiceLevel: "Tracked", ProductCode: "4950"},
				{MaxWeight: 5000, Price: 38, PackageName: "Medium Parcel", ServiceLevel: "Tracked", ProductCode: "4950"},
			},
		},
	}
}
