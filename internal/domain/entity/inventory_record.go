package entity

import "time"

// InventoryRecord saldo de un producto en una ubicación de bodega (clave única product_id+warehouse_location).
// Invariante: QuantityOnHand == QuantityAllocated + QuantityAvailable, las tres >= 0.
type InventoryRecord struct {
	ID                string
	ProductID         string
	WarehouseLocation string
	QuantityOnHand    int
	QuantityAllocated int
	QuantityAvailable int
	ReorderLevel      int
	ReorderQuantity   int
	LastMovementAt    *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// Datos del producto para listados (no persistidos en inventory_records).
	ProductSKU  string
	ProductName string
}
