package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/backoffice-api/internal/domain"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
)

var _ repository.InventoryRecordRepository = (*InventoryRecordRepo)(nil)

// InventoryRecordRepo saldos por producto+bodega (usable con pool o tx).
type InventoryRecordRepo struct {
	q Querier
}

// NewInventoryRecordRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryRecordRepository(q Querier) *InventoryRecordRepo {
	return &InventoryRecordRepo{q: q}
}

const recordSelect = `
		SELECT r.id, r.product_id, r.warehouse_location, r.quantity_on_hand, r.quantity_allocated,
		       r.quantity_available, r.reorder_level, r.reorder_quantity, r.last_movement_at,
		       r.created_at, r.updated_at, p.sku, p.name
		FROM inventory_records r
		JOIN products p ON p.id = r.product_id`

// Create inserta un registro; ErrDuplicate si ya existe la clave producto+bodega.
func (r *InventoryRecordRepo) Create(ctx context.Context, rec *entity.InventoryRecord) error {
	query := `
		INSERT INTO inventory_records (id, product_id, warehouse_location, quantity_on_hand, quantity_allocated,
			quantity_available, reorder_level, reorder_quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.ProductID, rec.WarehouseLocation, rec.QuantityOnHand, rec.QuantityAllocated,
		rec.QuantityAvailable, rec.ReorderLevel, rec.ReorderQuantity, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		if isCheckViolation(err) {
			return domain.ErrInvariantViolation
		}
		return fmt.Errorf("insert inventory record: %w", err)
	}
	return nil
}

// Get devuelve domain.ErrNotFound si no existe.
func (r *InventoryRecordRepo) Get(ctx context.Context, productID, warehouse string) (*entity.InventoryRecord, error) {
	rec, err := scanRecord(r.q.QueryRow(ctx, recordSelect+` WHERE r.product_id = $1 AND r.warehouse_location = $2`, productID, warehouse))
	if err != nil {
		return nil, fmt.Errorf("get inventory record: %w", err)
	}
	return rec, nil
}

// GetForUpdate bloquea solo la fila del saldo; products no se bloquea.
func (r *InventoryRecordRepo) GetForUpdate(ctx context.Context, productID, warehouse string) (*entity.InventoryRecord, error) {
	query := recordSelect + ` WHERE r.product_id = $1 AND r.warehouse_location = $2 FOR UPDATE OF r`
	rec, err := scanRecord(r.q.QueryRow(ctx, query, productID, warehouse))
	if err != nil {
		return nil, fmt.Errorf("lock inventory record: %w", err)
	}
	return rec, nil
}

// UpdateBalance escribe las tres cantidades; el CHECK de la tabla rechaza saldos inconsistentes.
func (r *InventoryRecordRepo) UpdateBalance(ctx context.Context, rec *entity.InventoryRecord) error {
	query := `
		UPDATE inventory_records
		SET quantity_on_hand = $3, quantity_allocated = $4, quantity_available = $5, updated_at = $6
		WHERE product_id = $1 AND warehouse_location = $2`
	tag, err := r.q.Exec(ctx, query,
		rec.ProductID, rec.WarehouseLocation, rec.QuantityOnHand, rec.QuantityAllocated, rec.QuantityAvailable, rec.UpdatedAt,
	)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInvariantViolation
		}
		return fmt.Errorf("update inventory balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *InventoryRecordRepo) TouchLastMovement(ctx context.Context, productID, warehouse string, at time.Time) error {
	_, err := r.q.Exec(ctx,
		`UPDATE inventory_records SET last_movement_at = $3 WHERE product_id = $1 AND warehouse_location = $2`,
		productID, warehouse, at)
	if err != nil {
		return fmt.Errorf("touch last movement: %w", err)
	}
	return nil
}

// List ordenado por SKU y bodega.
func (r *InventoryRecordRepo) List(ctx context.Context, f repository.InventoryRecordFilter, limit, offset int) ([]*entity.InventoryRecord, int, error) {
	var w whereClause
	if f.Warehouse != "" {
		w.add("r.warehouse_location = $%d", f.Warehouse)
	}
	if f.ProductID != "" {
		w.add("r.product_id = $%d", f.ProductID)
	}
	if f.Search != "" {
		w.add("(p.sku ILIKE '%%' || $%[1]d || '%%' OR p.name ILIKE '%%' || $%[1]d || '%%')", f.Search)
	}
	if f.LowStock {
		w.addRaw("r.quantity_available <= r.reorder_level")
	}
	if f.OutOfStock {
		w.addRaw("r.quantity_available = 0")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM inventory_records r JOIN products p ON p.id = r.product_id` + w.String()
	if err := r.q.QueryRow(ctx, countQuery, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count inventory records: %w", err)
	}
	pageSQL, args := w.page(limit, offset)
	rows, err := r.q.Query(ctx, recordSelect+w.String()+` ORDER BY p.sku, r.warehouse_location`+pageSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list inventory records: %w", err)
	}
	list, err := collectRecords(rows)
	return list, total, err
}

// ListBelowReorder registros con available == 0 o available <= reorder_level.
func (r *InventoryRecordRepo) ListBelowReorder(ctx context.Context, warehouse string) ([]*entity.InventoryRecord, error) {
	var w whereClause
	w.addRaw("(r.quantity_available = 0 OR r.quantity_available <= r.reorder_level)")
	if warehouse != "" {
		w.add("r.warehouse_location = $%d", warehouse)
	}
	rows, err := r.q.Query(ctx, recordSelect+w.String()+` ORDER BY p.sku, r.warehouse_location`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list below reorder: %w", err)
	}
	return collectRecords(rows)
}

// Stats totales y valorización al costo promedio del producto.
func (r *InventoryRecordRepo) Stats(ctx context.Context, warehouse string) (*repository.InventoryStats, error) {
	var w whereClause
	if warehouse != "" {
		w.add("r.warehouse_location = $%d", warehouse)
	}
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(r.quantity_on_hand), 0),
		       COALESCE(SUM(r.quantity_allocated), 0),
		       COALESCE(SUM(r.quantity_available), 0),
		       COUNT(*) FILTER (WHERE r.quantity_available > 0 AND r.quantity_available <= r.reorder_level),
		       COUNT(*) FILTER (WHERE r.quantity_available = 0),
		       COALESCE(SUM(r.quantity_on_hand * p.cost), 0)
		FROM inventory_records r
		JOIN products p ON p.id = r.product_id` + w.String()
	var s repository.InventoryStats
	err := r.q.QueryRow(ctx, query, w.args...).Scan(
		&s.Records, &s.OnHand, &s.Allocated, &s.Available, &s.LowStock, &s.OutOfStock, &s.Valuation,
	)
	if err != nil {
		return nil, fmt.Errorf("inventory stats: %w", err)
	}
	return &s, nil
}

func scanRecord(row pgx.Row) (*entity.InventoryRecord, error) {
	var rec entity.InventoryRecord
	err := row.Scan(&rec.ID, &rec.ProductID, &rec.WarehouseLocation, &rec.QuantityOnHand, &rec.QuantityAllocated,
		&rec.QuantityAvailable, &rec.ReorderLevel, &rec.ReorderQuantity, &rec.LastMovementAt,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.ProductSKU, &rec.ProductName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func collectRecords(rows pgx.Rows) ([]*entity.InventoryRecord, error) {
	defer rows.Close()
	var list []*entity.InventoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory record: %w", err)
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}
