package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/backoffice-api/internal/domain"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo libro de movimientos. Un trigger en la tabla rechaza UPDATE y DELETE.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, product_id, warehouse_location, movement_type, quantity, previous_quantity,
		new_quantity, reason, reference_id, created_by, created_at`

// Create registra un movimiento.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.ProductID, m.WarehouseLocation, string(m.Type), m.Quantity, m.PreviousQuantity,
		m.NewQuantity, m.Reason, nullIfEmpty(m.ReferenceID), nullIfEmpty(m.CreatedBy), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID.
func (r *StockMovementRepo) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get stock movement: %w", err)
	}
	return m, nil
}

// List más reciente primero; seq desempata movimientos con el mismo created_at.
func (r *StockMovementRepo) List(ctx context.Context, f repository.StockMovementFilter, limit, offset int) ([]*entity.StockMovement, int, error) {
	var w whereClause
	if f.ProductID != "" {
		w.add("product_id = $%d", f.ProductID)
	}
	if f.Warehouse != "" {
		w.add("warehouse_location = $%d", f.Warehouse)
	}
	if f.Type != "" {
		w.add("movement_type = $%d", string(f.Type))
	}
	if f.ReferenceID != "" {
		w.add("reference_id = $%d", f.ReferenceID)
	}
	if f.From != nil {
		w.add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		w.add("created_at <= $%d", *f.To)
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count stock movements: %w", err)
	}
	pageSQL, args := w.page(limit, offset)
	rows, err := r.q.Query(ctx, `SELECT `+movementColumns+` FROM stock_movements`+w.String()+` ORDER BY created_at DESC, seq DESC`+pageSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	return list, total, rows.Err()
}

// ReservedQuantity ALLOCATION y RELEASE registran el delta de available; CONSUME el de on_hand.
func (r *StockMovementRepo) ReservedQuantity(ctx context.Context, productID, warehouse, referenceID string) (int, error) {
	query := `
		SELECT COALESCE(SUM(CASE movement_type
			WHEN 'ALLOCATION' THEN -quantity
			WHEN 'RELEASE' THEN -quantity
			WHEN 'CONSUME' THEN quantity
			ELSE 0 END), 0)
		FROM stock_movements
		WHERE product_id = $1 AND warehouse_location = $2 AND reference_id = $3`
	var reserved int64
	if err := r.q.QueryRow(ctx, query, productID, warehouse, referenceID).Scan(&reserved); err != nil {
		return 0, fmt.Errorf("reserved quantity: %w", err)
	}
	return int(reserved), nil
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var movementType string
	var referenceID, createdBy *string
	err := row.Scan(&m.ID, &m.ProductID, &m.WarehouseLocation, &movementType, &m.Quantity, &m.PreviousQuantity,
		&m.NewQuantity, &m.Reason, &referenceID, &createdBy, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	m.Type = entity.MovementType(movementType)
	m.ReferenceID = derefStr(referenceID)
	m.CreatedBy = derefStr(createdBy)
	return &m, nil
}
