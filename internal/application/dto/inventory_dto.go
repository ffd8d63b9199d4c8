package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/backoffice-api/internal/domain/inventory"
)

// AdjustInventoryRequest body para POST /api/inventory/adjust.
type AdjustInventoryRequest struct {
	ProductID         string           `json:"product_id" validate:"required"`
	WarehouseLocation string           `json:"warehouse_location" validate:"max=100"`
	Type              string           `json:"type" validate:"required,oneof=INCREASE DECREASE SET"`
	Quantity          int              `json:"quantity" validate:"gte=0,lte=2147483647"`
	Reason            string           `json:"reason" validate:"required,max=500"`
	UnitCost          *decimal.Decimal `json:"unit_cost,omitempty"`
}

// ReservationRequest body para POST /api/inventory/allocate y /release.
type ReservationRequest struct {
	ProductID         string `json:"product_id" validate:"required"`
	WarehouseLocation string `json:"warehouse_location" validate:"max=100"`
	Quantity          int    `json:"quantity" validate:"gte=0,lte=2147483647"`
	ReferenceID       string `json:"reference_id" validate:"required,max=100"`
	Reason            string `json:"reason" validate:"max=500"`
}

// AvailabilityItemRequest línea de la verificación de disponibilidad.
type AvailabilityItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0,lte=2147483647"`
}

// CheckAvailabilityRequest body para POST /api/inventory/check-availability.
type CheckAvailabilityRequest struct {
	WarehouseLocation string                    `json:"warehouse_location" validate:"max=100"`
	Items             []AvailabilityItemRequest `json:"items" validate:"required,min=1,max=200,dive"`
}

// CreateInventoryRecordRequest body para POST /api/inventory/records (bodega adicional).
type CreateInventoryRecordRequest struct {
	ProductID         string `json:"product_id" validate:"required"`
	WarehouseLocation string `json:"warehouse_location" validate:"required,max=100"`
	ReorderLevel      int    `json:"reorder_level" validate:"gte=0,lte=2147483647"`
	ReorderQuantity   int    `json:"reorder_quantity" validate:"gte=0,lte=2147483647"`
}

// InventoryRecordResponse saldo de un producto en una bodega.
type InventoryRecordResponse struct {
	ID                string     `json:"id"`
	ProductID         string     `json:"product_id"`
	SKU               string     `json:"sku,omitempty"`
	ProductName       string     `json:"product_name,omitempty"`
	WarehouseLocation string     `json:"warehouse_location"`
	QuantityOnHand    int        `json:"quantity_on_hand"`
	QuantityAllocated int        `json:"quantity_allocated"`
	QuantityAvailable int        `json:"quantity_available"`
	ReorderLevel      int        `json:"reorder_level"`
	ReorderQuantity   int        `json:"reorder_quantity"`
	StockStatus       string     `json:"stock_status"` // OUT_OF_STOCK, CRITICAL, LOW o IN_STOCK
	LastMovementAt    *time.Time `json:"last_movement_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// InventoryListResponse lista paginada de saldos.
type InventoryListResponse struct {
	Items []InventoryRecordResponse `json:"items"`
	Page  PageResponse              `json:"page"`
}

// MovementResponse entrada del libro de movimientos.
type MovementResponse struct {
	ID                string    `json:"id"`
	ProductID         string    `json:"product_id"`
	WarehouseLocation string    `json:"warehouse_location"`
	Type              string    `json:"movement_type"`
	Quantity          int       `json:"quantity"`
	PreviousQuantity  int       `json:"previous_quantity"`
	NewQuantity       int       `json:"new_quantity"`
	Reason            string    `json:"reason"`
	ReferenceID       string    `json:"reference_id,omitempty"`
	CreatedBy         string    `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
}

// MovementListResponse historial paginado.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// MutationResponse respuesta de ajuste/liberación: saldos antes y después para conciliación del cliente.
type MutationResponse struct {
	ProductID         string            `json:"product_id"`
	WarehouseLocation string            `json:"warehouse_location"`
	Type              string            `json:"movement_type"`
	Before            inventory.Balance `json:"before"`
	After             inventory.Balance `json:"after"`
	Movement          *MovementResponse `json:"movement,omitempty"`
}

// AllocationResponse respuesta de una asignación; Success=false trae el faltante.
type AllocationResponse struct {
	MutationResponse
	Success   bool `json:"success"`
	Requested int  `json:"requested"`
	Shortfall int  `json:"shortfall"`
}

// AvailabilityItemResponse resultado por línea de la verificación.
type AvailabilityItemResponse struct {
	ProductID  string `json:"product_id"`
	Requested  int    `json:"requested"`
	Available  int    `json:"available"`
	Shortfall  int    `json:"shortfall"`
	Sufficient bool   `json:"sufficient"`
	Found      bool   `json:"found"`
}

// AvailabilityResponse verificación previa (consultiva, no reserva nada).
type AvailabilityResponse struct {
	WarehouseLocation string                     `json:"warehouse_location"`
	AllAvailable      bool                       `json:"all_available"`
	Items             []AvailabilityItemResponse `json:"items"`
}

// InventoryStatsResponse agregados de inventario.
type InventoryStatsResponse struct {
	WarehouseLocation string          `json:"warehouse_location,omitempty"`
	Records           int             `json:"records"`
	TotalOnHand       int             `json:"total_on_hand"`
	TotalAllocated    int             `json:"total_allocated"`
	TotalAvailable    int             `json:"total_available"`
	LowStock          int             `json:"low_stock"`
	OutOfStock        int             `json:"out_of_stock"`
	Valuation         decimal.Decimal `json:"valuation"`
}

// ReorderAlertDTO alerta de reorden calculada al vuelo.
type ReorderAlertDTO struct {
	ProductID         string `json:"product_id"`
	SKU               string `json:"sku"`
	ProductName       string `json:"product_name"`
	WarehouseLocation string `json:"warehouse_location"`
	QuantityOnHand    int    `json:"quantity_on_hand"`
	QuantityAllocated int    `json:"quantity_allocated"`
	QuantityAvailable int    `json:"quantity_available"`
	ReorderLevel      int    `json:"reorder_level"`
	ReorderQuantity   int    `json:"reorder_quantity"`
	Severity          string `json:"severity"`
}

// ReplenishmentSuggestionDTO sugerencia de reposición para un SKU bajo su nivel de reorden.
type ReplenishmentSuggestionDTO struct {
	ReorderAlertDTO
	IdealStock         int             `json:"ideal_stock"`          // ReorderLevel * 1.5
	SuggestedOrderQty  int             `json:"suggested_order_qty"`  // max(ReorderQuantity, IdealStock - Available)
	UnitCost           decimal.Decimal `json:"unit_cost"`            // costo promedio ponderado
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"` // SuggestedOrderQty * UnitCost
	Priority           int             `json:"priority"`             // 1 = más urgente
}
