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

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo pedidos, líneas e historial de estados (usable con pool o tx).
// Las direcciones se guardan como JSONB; pgx codifica el struct con encoding/json.
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

const orderColumns = `id, order_number, customer_id, customer_name, customer_email, warehouse_location, status,
		subtotal, tax_amount, shipping_amount, total, shipping_address, billing_address, notes,
		cancellation_reason, created_by, created_at, updated_at, shipped_at, delivered_at, cancelled_at`

// Create persiste la cabecera del pedido.
func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := r.q.Exec(ctx, query,
		o.ID, o.OrderNumber, o.CustomerID, nullIfEmpty(o.CustomerName), nullIfEmpty(o.CustomerEmail), o.WarehouseLocation,
		string(o.Status), o.Subtotal, o.TaxAmount, o.ShippingAmount, o.Total, o.ShippingAddress, o.BillingAddress,
		nullIfEmpty(o.Notes), nullIfEmpty(o.CancellationReason), nullIfEmpty(o.CreatedBy), o.CreatedAt, o.UpdatedAt,
		o.ShippedAt, o.DeliveredAt, o.CancelledAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// CreateItem persiste una línea del pedido.
func (r *OrderRepo) CreateItem(ctx context.Context, it *entity.OrderItem) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, sku, product_name, quantity, quantity_shipped, unit_price, subtotal, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		it.ID, it.OrderID, it.ProductID, it.SKU, it.ProductName, it.Quantity, it.QuantityShipped,
		it.UnitPrice, it.Subtotal, it.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

// GetByID obtiene la cabecera del pedido.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// GetByIDForUpdate bloquea la cabecera hasta el fin de la transacción.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return o, nil
}

// GetItems líneas en el orden en que se crearon.
func (r *OrderRepo) GetItems(ctx context.Context, orderID string) ([]*entity.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, sku, product_name, quantity, quantity_shipped, unit_price, subtotal, created_at
		FROM order_items WHERE order_id = $1 ORDER BY seq`
	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()
	var list []*entity.OrderItem
	for rows.Next() {
		var it entity.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.SKU, &it.ProductName, &it.Quantity,
			&it.QuantityShipped, &it.UnitPrice, &it.Subtotal, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		list = append(list, &it)
	}
	return list, rows.Err()
}

// Update persiste estado, notas y marcas de tiempo. Los montos no cambian después de crear.
func (r *OrderRepo) Update(ctx context.Context, o *entity.Order) error {
	query := `
		UPDATE orders
		SET status = $2, notes = $3, cancellation_reason = $4, updated_at = $5,
		    shipped_at = $6, delivered_at = $7, cancelled_at = $8
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		o.ID, string(o.Status), nullIfEmpty(o.Notes), nullIfEmpty(o.CancellationReason), o.UpdatedAt,
		o.ShippedAt, o.DeliveredAt, o.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepo) UpdateItemShipped(ctx context.Context, itemID string, quantityShipped int) error {
	tag, err := r.q.Exec(ctx, `UPDATE order_items SET quantity_shipped = $2 WHERE id = $1`, itemID, quantityShipped)
	if err != nil {
		return fmt.Errorf("update order item shipped: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List más reciente primero, sin líneas.
func (r *OrderRepo) List(ctx context.Context, f repository.OrderFilter, limit, offset int) ([]*entity.Order, int, error) {
	var w whereClause
	if f.Status != "" {
		w.add("status = $%d", string(f.Status))
	}
	if f.CustomerID != "" {
		w.add("customer_id = $%d", f.CustomerID)
	}
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	pageSQL, args := w.page(limit, offset)
	rows, err := r.q.Query(ctx, `SELECT `+orderColumns+` FROM orders`+w.String()+` ORDER BY created_at DESC, order_number DESC`+pageSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	var list []*entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		list = append(list, o)
	}
	return list, total, rows.Err()
}

func (r *OrderRepo) AddStatusChange(ctx context.Context, c *entity.OrderStatusChange) error {
	query := `
		INSERT INTO order_status_history (id, order_id, from_status, to_status, notes, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.OrderID, nullIfEmpty(string(c.From)), string(c.To), nullIfEmpty(c.Notes), nullIfEmpty(c.ChangedBy), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order status change: %w", err)
	}
	return nil
}

// ListStatusChanges historial en orden cronológico.
func (r *OrderRepo) ListStatusChanges(ctx context.Context, orderID string) ([]*entity.OrderStatusChange, error) {
	query := `
		SELECT id, order_id, from_status, to_status, notes, changed_by, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY seq`
	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order status history: %w", err)
	}
	defer rows.Close()
	var list []*entity.OrderStatusChange
	for rows.Next() {
		var c entity.OrderStatusChange
		var to string
		var from, notes, changedBy *string
		if err := rows.Scan(&c.ID, &c.OrderID, &from, &to, &notes, &changedBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order status change: %w", err)
		}
		c.From = entity.OrderStatus(derefStr(from))
		c.To = entity.OrderStatus(to)
		c.Notes = derefStr(notes)
		c.ChangedBy = derefStr(changedBy)
		list = append(list, &c)
	}
	return list, rows.Err()
}

func scanOrder(row pgx.Row) (*entity.Order, error) {
	var o entity.Order
	var status string
	var customerName, customerEmail, notes, cancellationReason, createdBy *string
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &customerName, &customerEmail, &o.WarehouseLocation, &status,
		&o.Subtotal, &o.TaxAmount, &o.ShippingAmount, &o.Total, &o.ShippingAddress, &o.BillingAddress, &notes,
		&cancellationReason, &createdBy, &o.CreatedAt, &o.UpdatedAt, &o.ShippedAt, &o.DeliveredAt, &o.CancelledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	o.Status = entity.OrderStatus(status)
	o.CustomerName = derefStr(customerName)
	o.CustomerEmail = derefStr(customerEmail)
	o.Notes = derefStr(notes)
	o.CancellationReason = derefStr(cancellationReason)
	o.CreatedBy = derefStr(createdBy)
	return &o, nil
}
