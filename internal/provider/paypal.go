package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"august/internal/domain"
)

// PayPal онлайн-платёжный адаптер: oauth, создание и подтверждение заказа
// через REST API v2
type PayPal struct {
	Client *http.Client
}

func NewPayPal(client *http.Client) *PayPal {
	return &PayPal{Client: client}
}

var _ PaymentProvider = (*PayPal)(nil)

func (p *PayPal) Key() string    { return "paypal" }
func (p *PayPal) IsOnline() bool { return true }

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type paypalOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// accessToken обменивает client credentials на bearer-токен
func (p *PayPal) accessToken(ctx context.Context, env domain.Environment) (string, error) {
	body := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, env.APIURL+"/v1/oauth2/token", body)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(env.Credentials.ClientID, env.Credentials.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal: %w: auth status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed paypalTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || parsed.AccessToken == "" {
		return "", fmt.Errorf("paypal: %w: invalid auth response", ErrUnavailable)
	}
	return parsed.AccessToken, nil
}

func (p *PayPal) Initiate(ctx context.Context, draft *domain.Order, cfg domain.PaymentProviderConfig) (*InitiateResult, error) {
	env, ok := cfg.ActiveEnv()
	if !ok {
		return nil, fmt.Errorf("paypal: active environment %q not configured", cfg.ActiveEnvironment)
	}
	token, err := p.accessToken(ctx, env)
	if err != nil {
		return nil, err
	}

	reqBody := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"amount": map[string]string{
				"currency_code": "EUR",
				"value":         fmt.Sprintf("%.2f", draft.TotalAmount),
			},
		}},
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, env.APIURL+"/v2/checkout/orders", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("paypal: %w: create status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed paypalOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || parsed.ID == "" {
		return nil, fmt.Errorf("paypal: %w: invalid create response", ErrUnavailable)
	}
	return &InitiateResult{Action: "pay", TransactionID: parsed.ID}, nil
}

func (p *PayPal) Capture(ctx context.Context, transactionRef string, cfg domain.PaymentProviderConfig) (*CaptureResult, error) {
	env, ok := cfg.ActiveEnv()
	if !ok {
		return nil, fmt.Errorf("paypal: active environment %q not configured", cfg.ActiveEnvironment)
	}
	token, err := p.accessToken(ctx, env)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v2/checkout/orders/%s/capture", env.APIURL, transactionRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("paypal: %w: capture status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed paypalOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || parsed.Status == "" {
		return nil, fmt.Errorf("paypal: %w: invalid capture response", ErrUnavailable)
	}
	status := "paid"
	if parsed.Status != "COMPLETED" {
		status = "rejected"
	}
	return &CaptureResult{Status: status}, nil
}

// DefaultPayPalConfig стартовая конфигурация, загружается явным bootstrap-шагом
func DefaultPayPalConfig() domain.PaymentProviderConfig {
	return domain.PaymentProviderConfig{
		ModuleName:        "paypal",
		Name:              "PayPal",
		IsEnabled:         true,
		IsOnline:          true,
		ActiveEnvironment: domain.EnvSandbox,
		Environments: []domain.Environment{
			{Name: domain.EnvProduction, APIURL: "https://api-m.paypal.com"},
			{Name: domain.EnvSandbox, APIURL: "https://api-m.sandbox.paypal.com"},
		},
	}
}
