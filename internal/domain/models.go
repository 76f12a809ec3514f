package domain

import "time"

// Product представляет товар каталога. StockQuantity меняется только через
// StockLedger после создания.
type Product struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	SKU           string     `json:"sku"`
	Price         float64    `json:"price"`
	StockQuantity int64      `json:"stock_quantity"`
	Weight        float64    `json:"weight"` // грамм
	Dimensions    Dimensions `json:"dimensions"`
	Active        bool       `json:"active"`
}

// Dimensions габариты товара в сантиметрах
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Volume объём в кубических сантиметрах
func (d Dimensions) Volume() float64 {
	return d.Length * d.Width * d.Height
}

// MaxSide наибольшая сторона
func (d Dimensions) MaxSide() float64 {
	m := d.Length
	if d.Width > m {
		m = d.Width
	}
	if d.Height > m {
		m = d.Height
	}
	return m
}

// OrderStatus статус заказа — единственный источник истины о жизненном цикле
type OrderStatus string

const (
	OrderStatusCreated          OrderStatus = "created"
	OrderStatusPendingPayment   OrderStatus = "pending payment"
	OrderStatusReceived         OrderStatus = "received"
	OrderStatusProcessing       OrderStatus = "processing"
	OrderStatusReadyForShipment OrderStatus = "ready for shipment"
	OrderStatusShipped          OrderStatus = "shipped"
	OrderStatusCancelled        OrderStatus = "cancelled"
)

// PaymentStatus статус оплаты внутри paymentDetails
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRejected PaymentStatus = "rejected"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// OrderItem позиция заказа. Name, Price и Weight копируются при создании
// заказа, чтобы правки каталога не переписывали историю.
type OrderItem struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	SKU       string  `json:"sku,omitempty"`
	Price     float64 `json:"price"`
	Weight    float64 `json:"weight"`
	Quantity  int64   `json:"quantity"`
}

// PaymentDetails детали оплаты заказа
type PaymentDetails struct {
	Method        string        `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Date          time.Time     `json:"date,omitempty"`
}

// ShippingDetails детали доставки, заполняются при выборе тарифа и выпуске этикетки
type ShippingDetails struct {
	Provider       string  `json:"provider,omitempty"`
	MethodID       string  `json:"method_id,omitempty"`
	MethodName     string  `json:"method_name,omitempty"`
	TrackingNumber string  `json:"tracking_number,omitempty"`
	LabelURL       string  `json:"label_url,omitempty"`
	Cost           float64 `json:"cost"`
}

// Address структурированный адрес доставки
type Address struct {
	Street      string `json:"street"`
	HouseNumber string `json:"house_number"`
	ZipCode     string `json:"zip_code"`
	City        string `json:"city"`
	CountryCode string `json:"country_code"`
}

// CustomerDetails данные покупателя, зафиксированные на заказе
type CustomerDetails struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Address Address `json:"address"`
}

// Order сущность заказа. Статус мутируется только через OrderStatusMachine;
// заказ никогда не удаляется физически, только архивируется (Active=false).
type Order struct {
	OrderNumber string          `json:"order_number"`
	Customer    CustomerDetails `json:"customer"`
	Items       []OrderItem     `json:"items"`
	TotalAmount float64         `json:"total_amount"`
	Status      OrderStatus     `json:"status"`
	Payment     PaymentDetails  `json:"payment"`
	Shipping    ShippingDetails `json:"shipping"`
	// ReservationExpiresAt выставляется только для pending-оплат: до этого
	// момента неоплаченный заказ держит зарезервированный склад.
	ReservationExpiresAt time.Time `json:"reservation_expires_at,omitempty"`
	// StockCommitted склад по заказу списан ровно один раз; флаг не даёт
	// краю fulfillment-перехода списать его повторно после checkout.
	StockCommitted       bool      `json:"stock_committed"`
	ViewToken            string    `json:"-"`
	ViewTokenExpires     time.Time `json:"-"`
	PicklistFilename     string    `json:"picklist_filename,omitempty"`
	Active               bool      `json:"active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// StatusLog неизменяемая запись аудита: одна строка на принятый переход
type StatusLog struct {
	OrderNumber string      `json:"order_number"`
	OldStatus   OrderStatus `json:"old_status"`
	NewStatus   OrderStatus `json:"new_status"`
	ChangedBy   string      `json:"changed_by"`
	Comment     string      `json:"comment,omitempty"`
	ChangedAt   time.Time   `json:"changed_at"`
}
