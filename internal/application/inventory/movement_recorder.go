package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/backoffice-api/internal/application/dto"
	"github.com/jhoicas/backoffice-api/internal/application/ports"
	"github.com/jhoicas/backoffice-api/internal/domain"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	"github.com/jhoicas/backoffice-api/internal/domain/inventory"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
)

// maxExportRows tope de filas por exportación.
const maxExportRows = 50000

// MovementInput datos de una entrada del libro. La cantidad y los snapshots
// salen de la transición ya aplicada al saldo.
type MovementInput struct {
	ProductID   string
	Warehouse   string
	Type        entity.MovementType
	Quantity    int
	Previous    int
	New         int
	Reason      string
	ReferenceID string
	ActorID     string
}

// MovementRecorder escribe y consulta el libro de movimientos (solo inserción).
type MovementRecorder struct {
	movements repository.StockMovementRepository
	exporter  ports.MovementExporter
	log       zerolog.Logger
	now       func() time.Time
}

// NewMovementRecorder construye el registrador. exporter puede ser nil si no se exporta.
func NewMovementRecorder(movements repository.StockMovementRepository, exporter ports.MovementExporter, log zerolog.Logger) *MovementRecorder {
	return &MovementRecorder{
		movements: movements,
		exporter:  exporter,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Record inserta el movimiento usando los repos de la transacción del caller y marca
// last_movement_at del registro. Nunca abre su propia transacción: el movimiento y el
// cambio de saldo se confirman juntos.
func (r *MovementRecorder) Record(ctx context.Context, repos repository.TxRepos, in MovementInput) (*entity.StockMovement, error) {
	if in.ProductID == "" || in.Warehouse == "" || in.Type == "" {
		return nil, fmt.Errorf("%w: movimiento incompleto", domain.ErrInvalidInput)
	}
	m := &entity.StockMovement{
		ID:                uuid.New().String(),
		ProductID:         in.ProductID,
		WarehouseLocation: in.Warehouse,
		Type:              in.Type,
		Quantity:          in.Quantity,
		PreviousQuantity:  in.Previous,
		NewQuantity:       in.New,
		Reason:            in.Reason,
		ReferenceID:       in.ReferenceID,
		CreatedBy:         in.ActorID,
		CreatedAt:         r.now(),
	}
	if err := repos.Movements.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("registrar movimiento: %w", err)
	}
	if err := repos.Inventory.TouchLastMovement(ctx, in.ProductID, in.Warehouse, m.CreatedAt); err != nil {
		return nil, fmt.Errorf("actualizar last_movement_at: %w", err)
	}
	return m, nil
}

// List historial paginado, más reciente primero.
func (r *MovementRecorder) List(ctx context.Context, filter repository.StockMovementFilter, page dto.PageRequest) (*dto.MovementListResponse, error) {
	page.DefaultPage()
	if filter.Type != "" {
		if _, err := inventory.KindOf(filter.Type); err != nil {
			return nil, err
		}
	}
	list, total, err := r.movements.List(ctx, filter, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, ToMovementResponse(m))
	}
	return &dto.MovementListResponse{
		Items: out,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}, nil
}

// Export genera el archivo del historial filtrado.
func (r *MovementRecorder) Export(ctx context.Context, filter repository.StockMovementFilter) ([]byte, string, error) {
	if r.exporter == nil {
		return nil, "", fmt.Errorf("%w: exportación no configurada", domain.ErrInvalidInput)
	}
	list, total, err := r.movements.List(ctx, filter, maxExportRows, 0)
	if err != nil {
		return nil, "", err
	}
	if total > len(list) {
		r.log.Warn().Int("total", total).Int("exported", len(list)).Msg("exportación de movimientos truncada")
	}
	return r.exporter.ExportMovements(ctx, list)
}
