package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/backoffice-api/internal/domain/entity"
)

// InventoryRecordFilter filtros del listado de saldos.
type InventoryRecordFilter struct {
	Warehouse  string
	ProductID  string
	Search     string // SKU o nombre del producto
	LowStock   bool   // available <= reorder_level
	OutOfStock bool   // available == 0
}

// InventoryStats agregados de inventario (totales y valorización al costo promedio).
type InventoryStats struct {
	Records    int
	OnHand     int
	Allocated  int
	Available  int
	LowStock   int
	OutOfStock int
	Valuation  decimal.Decimal
}

// InventoryRecordRepository puerto de persistencia de saldos por producto+bodega.
// Las escrituras solo deben hacerse dentro de una transacción que además registre el movimiento.
type InventoryRecordRepository interface {
	// Create inserta un registro; ErrDuplicate si ya existe la clave producto+bodega.
	Create(ctx context.Context, rec *entity.InventoryRecord) error
	// Get devuelve domain.ErrNotFound si no existe.
	Get(ctx context.Context, productID, warehouse string) (*entity.InventoryRecord, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, productID, warehouse string) (*entity.InventoryRecord, error)
	UpdateBalance(ctx context.Context, rec *entity.InventoryRecord) error
	TouchLastMovement(ctx context.Context, productID, warehouse string, at time.Time) error
	List(ctx context.Context, filter InventoryRecordFilter, limit, offset int) ([]*entity.InventoryRecord, int, error)
	// ListBelowReorder registros con available == 0 o available <= reorder_level.
	ListBelowReorder(ctx context.Context, warehouse string) ([]*entity.InventoryRecord, error)
	Stats(ctx context.Context, warehouse string) (*InventoryStats, error)
}
