package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus estado del ciclo de vida de un pedido.
type OrderStatus string

// Estados del pedido.
const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderReturned   OrderStatus = "RETURNED"
)

// orderFlow orden del flujo principal; las transiciones solo avanzan.
var orderFlow = map[OrderStatus]int{
	OrderPending:    0,
	OrderConfirmed:  1,
	OrderProcessing: 2,
	OrderShipped:    3,
	OrderDelivered:  4,
}

// Valid indica si el estado es conocido.
func (s OrderStatus) Valid() bool {
	if _, ok := orderFlow[s]; ok {
		return true
	}
	return s == OrderCancelled || s == OrderReturned
}

// IsTerminal DELIVERED, CANCELLED y RETURNED no admiten más transiciones.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled || s == OrderReturned
}

// CanTransitionTo valida una transición: hacia adelante en el flujo principal,
// o a CANCELLED/RETURNED desde cualquier estado no terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() || !next.Valid() || s == next {
		return false
	}
	if next == OrderCancelled || next == OrderReturned {
		return true
	}
	from, okFrom := orderFlow[s]
	to, okTo := orderFlow[next]
	return okFrom && okTo && to > from
}

// Address dirección de envío o facturación (se persiste como JSONB).
type Address struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// Order cabecera del pedido. Los montos se calculan al crear y no cambian después.
type Order struct {
	ID                 string
	OrderNumber        string
	CustomerID         string
	CustomerName       string
	CustomerEmail      string
	WarehouseLocation  string
	Status             OrderStatus
	Subtotal           decimal.Decimal
	TaxAmount          decimal.Decimal
	ShippingAmount     decimal.Decimal
	Total              decimal.Decimal
	ShippingAddress    Address
	BillingAddress     Address
	Notes              string
	CancellationReason string
	CreatedBy          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ShippedAt          *time.Time
	DeliveredAt        *time.Time
	CancelledAt        *time.Time
}

// OrderItem línea de pedido.
type OrderItem struct {
	ID              string
	OrderID         string
	ProductID       string
	SKU             string
	ProductName     string
	Quantity        int
	QuantityShipped int
	UnitPrice       decimal.Decimal
	Subtotal        decimal.Decimal
	CreatedAt       time.Time
}

// Outstanding cantidad aún reservada (pedida y no despachada).
func (i OrderItem) Outstanding() int {
	if i.QuantityShipped >= i.Quantity {
		return 0
	}
	return i.Quantity - i.QuantityShipped
}

// OrderStatusChange entrada del historial de estados de un pedido.
type OrderStatusChange struct {
	ID        string
	OrderID   string
	From      OrderStatus
	To        OrderStatus
	Notes     string
	ChangedBy string
	CreatedAt time.Time
}
