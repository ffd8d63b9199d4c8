package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AddressDTO dirección de envío o facturación.
type AddressDTO struct {
	Name       string `json:"name,omitempty" validate:"max=200"`
	Line1      string `json:"line1" validate:"required,max=300"`
	Line2      string `json:"line2,omitempty" validate:"max=300"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state,omitempty" validate:"max=100"`
	PostalCode string `json:"postal_code,omitempty" validate:"max=20"`
	Country    string `json:"country" validate:"required,max=100"`
	Phone      string `json:"phone,omitempty" validate:"max=50"`
}

// OrderItemRequest línea del pedido. Sin unit_price se usa el precio del producto.
type OrderItemRequest struct {
	ProductID string           `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"gt=0,lte=2147483647"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// CreateOrderRequest body para POST /api/orders.
type CreateOrderRequest struct {
	CustomerID        string             `json:"customer_id" validate:"required,max=100"`
	CustomerName      string             `json:"customer_name" validate:"max=200"`
	CustomerEmail     string             `json:"customer_email" validate:"omitempty,email"`
	WarehouseLocation string             `json:"warehouse_location" validate:"max=100"`
	Items             []OrderItemRequest `json:"items" validate:"required,min=1,max=200,dive"`
	ShippingAddress   AddressDTO         `json:"shipping_address"`
	BillingAddress    *AddressDTO        `json:"billing_address,omitempty"`
	Notes             string             `json:"notes" validate:"max=2000"`
}

// CancelOrderRequest body para POST /api/orders/:id/cancel.
type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// UpdateOrderStatusRequest body para PATCH /api/orders/:id/status.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING CONFIRMED PROCESSING SHIPPED DELIVERED CANCELLED RETURNED"`
	Notes  string `json:"notes" validate:"max=500"`
}

// OrderItemResponse línea del pedido.
type OrderItemResponse struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"product_id"`
	SKU             string          `json:"sku"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	QuantityShipped int             `json:"quantity_shipped"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

// OrderResponse pedido con sus líneas.
type OrderResponse struct {
	ID                 string              `json:"id"`
	OrderNumber        string              `json:"order_number"`
	CustomerID         string              `json:"customer_id"`
	CustomerName       string              `json:"customer_name,omitempty"`
	CustomerEmail      string              `json:"customer_email,omitempty"`
	WarehouseLocation  string              `json:"warehouse_location"`
	Status             string              `json:"status"`
	Subtotal           decimal.Decimal     `json:"subtotal"`
	TaxAmount          decimal.Decimal     `json:"tax_amount"`
	ShippingAmount     decimal.Decimal     `json:"shipping_amount"`
	Total              decimal.Decimal     `json:"total"`
	ShippingAddress    AddressDTO          `json:"shipping_address"`
	BillingAddress     AddressDTO          `json:"billing_address"`
	Notes              string              `json:"notes,omitempty"`
	CancellationReason string              `json:"cancellation_reason,omitempty"`
	CreatedBy          string              `json:"created_by"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	ShippedAt          *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
	Items              []OrderItemResponse `json:"items,omitempty"`
}

// OrderListResponse lista paginada de pedidos (sin líneas).
type OrderListResponse struct {
	Items []OrderResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}

// OrderStatusChangeResponse entrada del historial de estados.
type OrderStatusChangeResponse struct {
	ID         string    `json:"id"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status"`
	Notes      string    `json:"notes,omitempty"`
	ChangedBy  string    `json:"changed_by"`
	CreatedAt  time.Time `json:"created_at"`
}
