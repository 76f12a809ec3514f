package domain

// EnvironmentName имя окружения провайдера
type EnvironmentName string

const (
	EnvProduction EnvironmentName = "production"
	EnvSandbox    EnvironmentName = "sandbox"
)

// Credentials учётные данные окружения. Никогда не попадают в ответы и ошибки.
type Credentials struct {
	APIKey         string `json:"api_key"`
	APISecret      string `json:"api_secret"`
	ClientID       string `json:"client_id"`
	ClientSecret   string `json:"client_secret"`
	CustomerCode   string `json:"customer_code"`
	CustomerNumber string `json:"customer_number"`
}

// Environment конфигурация одного окружения (боевое/песочница)
type Environment struct {
	Name        EnvironmentName `json:"name"`
	APIURL      string          `json:"api_url"`
	Credentials Credentials     `json:"credentials"`
}

// RateCardRow строка тарифной сетки: порог веса и цена для уровня сервиса
type RateCardRow struct {
	MaxWeight    float64 `json:"max_weight"` // грамм, включительно
	Price        float64 `json:"price"`
	PackageName  string  `json:"package_name"`
	ServiceLevel string  `json:"service_level"`
	ProductCode  string  `json:"product_code"`
}

// ShippingProviderConfig конфигурация перевозчика. Читается ядром,
// мутируется только админской настройкой.
type ShippingProviderConfig struct {
	ModuleName        string                   `json:"module_name"`
	Name              string                   `json:"name"`
	IsEnabled         bool                     `json:"is_enabled"`
	ActiveEnvironment EnvironmentName          `json:"active_environment"`
	Environments      []Environment            `json:"environments"`
	RateCard          map[string][]RateCardRow `json:"rate_card"` // zone -> rows
}

// ActiveEnv возвращает конфигурацию активного окружения
func (c ShippingProviderConfig) ActiveEnv() (Environment, bool) {
	for _, env := range c.Environments {
		if env.Name == c.ActiveEnvironment {
			return env, true
		}
	}
	return Environment{}, false
}

// PaymentProviderConfig конфигурация платёжного провайдера
type PaymentProviderConfig struct {
	ModuleName        string          `json:"module_name"`
	Name              string          `json:"name"`
	IsEnabled         bool            `json:"is_enabled"`
	IsOnline          bool            `json:"is_online"`
	Instructions      string          `json:"instructions,omitempty"`
	ActiveEnvironment EnvironmentName `json:"active_environment"`
	Environments      []Environment   `json:"environments"`
}

// ActiveEnv возвращает конфигурацию активного окружения
func (c PaymentProviderConfig) ActiveEnv() (Environment, bool) {
	for _, env := range c.Environments {
		if env.Name == c.ActiveEnvironment {
			return env, true
		}
	}
	return Environment{}, false
}

// PackageDefinition настроенный магазином размер упаковки
type PackageDefinition struct {
	Name      string  `json:"name"`
	Length    float64 `json:"length"` // см
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	MaxWeight float64 `json:"max_weight"` // грамм
}

// Volume объём упаковки
func (p PackageDefinition) Volume() float64 {
	return p.Length * p.Width * p.Height
}

// MaxSide наибольшая сторона упаковки
func (p PackageDefinition) MaxSide() float64 {
	m := p.Length
	if p.Width > m {
		m = p.Width
	}
	if p.Height > m {
		m = p.Height
	}
	return m
}

// ShopAddress адрес отправителя для этикеток
type ShopAddress struct {
	Name        string `json:"name"`
	Street      string `json:"street"`
	ZipCode     string `json:"zip_code"`
	City        string `json:"city"`
	CountryCode string `json:"country_code"`
}

// Settings глобальные настройки магазина, нужные ядру фулфилмента
type Settings struct {
	ShopAddress           ShopAddress         `json:"shop_address"`
	ShippingPackages      []PackageDefinition `json:"shipping_packages"`
	ReservationDays       int                 `json:"reservation_days"`
	ArchiveOrdersDays     int                 `json:"archive_orders_days"`
	ArchiveOrdersStatuses []OrderStatus       `json:"archive_orders_statuses"`
}
