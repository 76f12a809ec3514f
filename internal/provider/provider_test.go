package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"august/internal/domain"
)

func testAddress(country string) domain.Address {
	return domain.Address{
		Street:      "Teststraat",
		HouseNumber: "1",
		ZipCode:     "1234 AB",
		City:        "Amsterdam",
		CountryCode: country,
	}
}

func TestPostNLZone(t *testing.T) {
	cases := []struct {
		country string
		zone    string
	}{
		{"NL", "NL"},
		{"", "NL"},
		{"de", "EUR1"},
		{"PL", "EUR2"},
		{"US", "ROW"},
	}
	for _, c := range cases {
		if got := postnlZone(c.country); got != c.zone {
			t.Errorf("postnlZone(%q) = %q, want %q", c.country, got, c.zone)
		}
	}
}

func TestDPDZone(t *testing.T) {
	if zone, ok := dpdZone("BE"); !ok || zone != "BELUX" {
		t.Errorf("dpdZone(BE) = %q, %v, want BELUX", zone, ok)
	}
	if zone, ok := dpdZone("LU"); !ok || zone != "BELUX" {
		t.Errorf("dpdZone(LU) = %q, %v, want BELUX", zone, ok)
	}
	if _, ok := dpdZone("US"); ok {
		t.Error("dpdZone(US) should not be served")
	}
}

func TestDHLZoneUnsupportedCountry(t *testing.T) {
	p := NewDHL()
	rates, err := p.GetRates(context.Background(), testAddress("FR"), nil, 500, DefaultDHLConfig())
	if err != nil {
		t.Fatalf("GetRates: %v", err)
	}
	if len(rates) != 0 {
		t.Errorf("expected no rates for FR, got %d", len(rates))
	}
}

func TestCheapestPerServiceLevel(t *testing.T) {
	rows := []domain.RateCardRow{
		{MaxWeight: 350, Price: 3.92, ServiceLevel: "Untracked"},
		{MaxWeight: 2000, Price: 4.25, ServiceLevel: "Tracked"},
		{MaxWeight: 10000, Price: 7.95, ServiceLevel: "Tracked"},
	}

	// 1500g: the 350g row drops out, two Tracked rows remain, cheapest wins
	cheapest := cheapestPerServiceLevel(rows, 1500)
	if len(cheapest) != 1 {
		t.Fatalf("expected 1 service level, got %d", len(cheapest))
	}
	if cheapest["Tracked"].Price != 4.25 {
		t.Errorf("Tracked price = %v, want 4.25", cheapest["Tracked"].Price)
	}

	// threshold is inclusive
	cheapest = cheapestPerServiceLevel(rows, 350)
	if _, ok := cheapest["Untracked"]; !ok {
		t.Error("weight equal to MaxWeight must still match the row")
	}
}

func TestPostNLRateIDFormat(t *testing.T) {
	p := NewPostNL(http.DefaultClient, domain.ShopAddress{})
	rates, err := p.GetRates(context.Background(), testAddress("NL"), nil, 1500, DefaultPostNLConfig())
	if err != nil {
		t.Fatalf("GetRates: %v", err)
	}
	if len(rates) != 1 {
		t.Fatalf("expected 1 rate for 1500g NL, got %d", len(rates))
	}
	r := rates[0]
	if r.ID != "postnl-NL-2928-Tracked" {
		t.Errorf("rate id = %q, want postnl-NL-2928-Tracked", r.ID)
	}
	if r.Price != 4.25 {
		t.Errorf("rate price = %v, want 4.25", r.Price)
	}
	parts := strings.SplitN(r.ID, "-", 4)
	if len(parts) != 4 || parts[0] != "postnl" {
		t.Errorf("rate id %q does not round-trip to module/zone/code/level", r.ID)
	}
}

func TestPostNLCreateLabel(t *testing.T) {
	labelPDF := []byte("%PDF-1.4 test label")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "test-key" {
			t.Errorf("missing apikey header")
		}
		var req postnlLabelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Shipments) != 1 {
			t.Fatalf("expected 1 shipment, got %d", len(req.Shipments))
		}
		sh := req.Shipments[0]
		if sh.Reference != "ORD-100001" {
			t.Errorf("reference = %q", sh.Reference)
		}
		if sh.Dimension.Weight != 900 {
			t.Errorf("weight = %d, want 900", sh.Dimension.Weight)
		}
		if sh.ProductCodeDelivery != "2928" {
			t.Errorf("product code = %q", sh.ProductCodeDelivery)
		}
		content := base64.StdEncoding.EncodeToString(labelPDF)
		w.Write([]byte(`{"ResponseShipments":[{"Barcode":"3STEST123","Labels":[{"Content":"` + content + `"}]}]}`))
	}))
	defer srv.Close()

	cfg := DefaultPostNLConfig()
	cfg.ActiveEnvironment = domain.EnvSandbox
	for i := range cfg.Environments {
		if cfg.Environments[i].Name == domain.EnvSandbox {
			cfg.Environments[i].APIURL = srv.URL
			cfg.Environments[i].Credentials = domain.Credentials{APIKey: "test-key", CustomerCode: "CC", CustomerNumber: "123"}
		}
	}

	order := &domain.Order{
		OrderNumber: "ORD-100001",
		Customer: domain.CustomerDetails{
			Name:    "Jan de Vries",
			Email:   "jan@example.com",
			Address: testAddress("NL"),
		},
		Items: []domain.OrderItem{
			{ProductID: 1, Name: "Widget", Weight: 300, Quantity: 3},
		},
	}

	p := NewPostNL(srv.Client(), domain.ShopAddress{Name: "Shop", Street: "Winkelstraat 2", ZipCode: "5678 CD", City: "Utrecht", CountryCode: "NL"})
	res, err := p.CreateLabel(context.Background(), order, "2928", cfg)
	if err != nil {
		t.Fatalf("CreateLabel: %v", err)
	}
	if res.TrackingNumber != "3STEST123" {
		t.Errorf("tracking = %q", res.TrackingNumber)
	}
	if string(res.LabelData) != string(labelPDF) {
		t.Errorf("label content mismatch")
	}
}

func TestPostNLCreateLabelUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := DefaultPostNLConfig()
	for i := range cfg.Environments {
		cfg.Environments[i].APIURL = srv.URL
	}
	p := NewPostNL(srv.Client(), domain.ShopAddress{})
	_, err := p.CreateLabel(context.Background(), &domain.Order{}, "2928", cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), ErrUnavailable.Error()) {
		t.Errorf("error %v should wrap ErrUnavailable", err)
	}
}

func TestDHLCreateLabelNotImplemented(t *testing.T) {
	p := NewDHL()
	_, err := p.CreateLabel(context.Background(), &domain.Order{}, "DFY", DefaultDHLConfig())
	if err == nil || !strings.Contains(err.Error(), ErrLabelingNotImplemented.Error()) {
		t.Errorf("expected ErrLabelingNotImplemented, got %v", err)
	}
}

func TestPayPalInitiateAndCapture(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/v1/oauth2/token"):
			user, pass, _ := r.BasicAuth()
			if user != "cid" || pass != "secret" {
				t.Errorf("unexpected basic auth %q/%q", user, pass)
			}
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
		case r.URL.Path == "/v2/checkout/orders":
			if r.Header.Get("Authorization") != "Bearer tok" {
				t.Errorf("missing bearer token")
			}
			json.NewEncoder(w).Encode(map[string]string{"id": "PAY-42", "status": "CREATED"})
		case strings.HasSuffix(r.URL.Path, "/capture"):
			json.NewEncoder(w).Encode(map[string]string{"id": "PAY-42", "status": "COMPLETED"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	cfg := DefaultPayPalConfig()
	for i := range cfg.Environments {
		cfg.Environments[i].APIURL = srv.URL
		cfg.Environments[i].Credentials = domain.Credentials{ClientID: "cid", ClientSecret: "secret"}
	}

	p := NewPayPal(srv.Client())
	init, err := p.Initiate(context.Background(), &domain.Order{TotalAmount: 49.99}, cfg)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if init.Action != "pay" || init.TransactionID != "PAY-42" {
		t.Errorf("initiate = %+v", init)
	}

	captured, err := p.Capture(context.Background(), init.TransactionID, cfg)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if captured.Status != "paid" {
		t.Errorf("capture status = %q, want paid", captured.Status)
	}
}

func TestBankTransferInitiateConfirms(t *testing.T) {
	p := NewBankTransfer()
	if p.IsOnline() {
		t.Error("banktransfer must be offline")
	}
	res, err := p.Initiate(context.Background(), &domain.Order{}, DefaultBankTransferConfig())
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if res.Action != "confirm" {
		t.Errorf("action = %q, want confirm", res.Action)
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry(
		[]ShippingProvider{NewPostNL(http.DefaultClient, domain.ShopAddress{}), NewDHL(), NewDPD()},
		[]PaymentProvider{NewPayPal(http.DefaultClient), NewBankTransfer()},
	)
	if _, ok := reg.Shipping("postnl"); !ok {
		t.Error("postnl not registered")
	}
	if _, ok := reg.Shipping("ups"); ok {
		t.Error("unknown carrier must not resolve")
	}
	if p, ok := reg.Payment("banktransfer"); !ok || p.IsOnline() {
		t.Error("banktransfer must resolve as offline")
	}
}
