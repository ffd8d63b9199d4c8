package repository

import (
	"context"
	"time"

	"github.com/jhoicas/backoffice-api/internal/domain/entity"
)

// StockMovementFilter filtros del historial de movimientos.
type StockMovementFilter struct {
	ProductID   string
	Warehouse   string
	Type        entity.MovementType
	ReferenceID string
	From        *time.Time
	To          *time.Time
}

// StockMovementRepository puerto del libro de movimientos. Solo inserción y lectura:
// no existe API de actualización ni borrado.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	GetByID(ctx context.Context, id string) (*entity.StockMovement, error)
	List(ctx context.Context, filter StockMovementFilter, limit, offset int) ([]*entity.StockMovement, int, error)
	// ReservedQuantity unidades que la referencia mantiene asignadas en el registro:
	// asignado menos liberado menos despachado.
	ReservedQuantity(ctx context.Context, productID, warehouse, referenceID string) (int, error)
}
