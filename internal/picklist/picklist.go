package picklist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"august/internal/domain"
)

// Generator формирует пик-лист для сборки заказа и возвращает имя файла.
// Вызывается ровно один раз на заказ, при первом входе в статус received.
type Generator interface {
	Generate(ctx context.Context, order *domain.Order) (string, error)
}

// FileGenerator пишет пик-лист текстовым файлом в каталог
type FileGenerator struct {
	Dir string
}

func NewFileGenerator(dir string) *FileGenerator {
	return &FileGenerator{Dir: dir}
}

func (g *FileGenerator) Generate(ctx context.Context, order *domain.Order) (string, error) {
	filename := fmt.Sprintf("PickList-%s-%d.txt", order.OrderNumber, time.Now().Unix())

	var b strings.Builder
	fmt.Fprintf(&b, "PICK LIST - Order %s\n", order.OrderNumber)
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().Format(time.RFC3339))

	fmt.Fprintf(&b, "CUSTOMER\n")
	fmt.Fprintf(&b, "  %s\n", order.Customer.Name)
	fmt.Fprintf(&b, "  %s %s, %s %s, %s\n\n",
		order.Customer.Address.Street, order.Customer.Address.HouseNumber,
		order.Customer.Address.ZipCode, order.Customer.Address.City,
		order.Customer.Address.CountryCode)

	fmt.Fprintf(&b, "SHIPPING\n")
	fmt.Fprintf(&b, "  %s %s\n\n", order.Shipping.Provider, order.Shipping.MethodName)

	fmt.Fprintf(&b, "PAYMENT\n")
	fmt.Fprintf(&b, "  %s (%s)\n\n", order.Payment.Method, order.Payment.Status)

	fmt.Fprintf(&b, "ITEMS\n")
	for _, it := range order.Items {
		fmt.Fprintf(&b, "  [ ] %dx %s", it.Quantity, it.Name)
		if it.SKU != "" {
			fmt.Fprintf(&b, " (sku %s)", it.SKU)
		}
		fmt.Fprintf(&b, " %.0fg\n", it.Weight)
	}

	if err := os.MkdirAll(g.Dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(g.Dir, filename), []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return filename, nil
}
