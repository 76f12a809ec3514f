package repository

import (
	"context"
	"errors"
	"time"

	"august/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена
var ErrNotFound = errors.New("not found")

// ErrInsufficientStock возвращается условным списанием склада, когда остатка не хватает
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrStaleStatus возвращается, когда CAS-обновление статуса видит другой текущий статус
var ErrStaleStatus = errors.New("stale order status")

// ProductRepository интерфейс репозитория товаров
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetMany(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	// AdjustStock атомарно меняет остаток на delta одной условной операцией.
	// Если результат ушёл бы ниже нуля — ничего не меняет и возвращает
	// ErrInsufficientStock вместе с текущим остатком. Раздельные
	// "прочитал-проверил-записал" здесь запрещены: это гонка.
	AdjustStock(ctx context.Context, id int64, delta int64) (int64, error)
}

// OrderRepository интерфейс репозитория заказов. Заказы ключуются
// человекочитаемым orderNumber и никогда не удаляются.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	// UpdateStatus переводит заказ из from в to только если текущий
	// сохранённый статус равен from (оптимистическая блокировка).
	UpdateStatus(ctx context.Context, number string, from, to domain.OrderStatus) error
	// UpdateShipping пишет только детали доставки: статус и остальные поля,
	// изменённые параллельным переходом, не затираются.
	UpdateShipping(ctx context.Context, number string, shipping domain.ShippingDetails) error
	// UpdatePicklistFilename пишет только имя файла пик-листа
	UpdatePicklistFilename(ctx context.Context, number, filename string) error
	// ListExpiredReservations возвращает pending-заказы с истёкшей бронью склада
	ListExpiredReservations(ctx context.Context, now time.Time) ([]domain.Order, error)
	// ArchiveOlderThan помечает Active=false заказы в указанных статусах,
	// не менявшиеся с cutoff. Возвращает число заархивированных.
	ArchiveOlderThan(ctx context.Context, cutoff time.Time, statuses []domain.OrderStatus) (int, error)
}

// StatusLogRepository журнал аудита переходов: только добавление
type StatusLogRepository interface {
	Append(ctx context.Context, entry *domain.StatusLog) error
	ListByOrder(ctx context.Context, number string) ([]domain.StatusLog, error)
}

// ProviderConfigRepository конфигурации провайдеров доставки и оплаты
type ProviderConfigRepository interface {
	UpsertShipping(ctx context.Context, cfg domain.ShippingProviderConfig) error
	GetShipping(ctx context.Context, moduleName string) (*domain.ShippingProviderConfig, error)
	ListEnabledShipping(ctx context.Context) ([]domain.ShippingProviderConfig, error)
	UpsertPayment(ctx context.Context, cfg domain.PaymentProviderConfig) error
	GetPayment(ctx context.Context, moduleName string) (*domain.PaymentProviderConfig, error)
	ListEnabledPayment(ctx context.Context) ([]domain.PaymentProviderConfig, error)
}

// SettingsRepository singleton-настройки магазина
type SettingsRepository interface {
	Get(ctx context.Context) (*domain.Settings, error)
	Put(ctx context.Context, s *domain.Settings) error
}

// TxManager абстракция транзакции. Для in-memory — глобальная блокировка записи.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
