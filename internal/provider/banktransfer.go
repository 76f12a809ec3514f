package provider

import (
	"context"
	"fmt"

	"august/internal/domain"
)

// BankTransfer оффлайн-провайдер: заказ размещается сразу как ожидающий оплаты
type BankTransfer struct{}

func NewBankTransfer() *BankTransfer { return &BankTransfer{} }

var _ PaymentProvider = (*BankTransfer)(nil)

func (p *BankTransfer) Key() string    { return "banktransfer" }
func (p *BankTransfer) IsOnline() bool { return false }

func (p *BankTransfer) Initiate(ctx context.Context, draft *domain.Order, cfg domain.PaymentProviderConfig) (*InitiateResult, error) {
	return &InitiateResult{Action: "confirm"}, nil
}

func (p *BankTransfer) Capture(ctx context.Context, transactionRef string, cfg domain.PaymentProviderConfig) (*CaptureResult, error) {
	return nil, fmt.Errorf("banktransfer: capture is not supported for offline payments")
}

// DefaultBankTransferConfig стартовая конфигурация, загружается явным bootstrap-шагом
func DefaultBankTransferConfig() domain.PaymentProviderConfig {
	return domain.PaymentProviderConfig{
		ModuleName:   "banktransfer",
		Name:         "Bank Transfer",
		IsEnabled:    true,
		IsOnline:     false,
		Instructions: "Transfer the total amount to NL00 BANK 0123 4567 89 quoting your order number.",
	}
}
