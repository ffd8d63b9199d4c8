package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/backoffice-api/internal/application/dto"
	"github.com/jhoicas/backoffice-api/internal/application/inventory"
	"github.com/jhoicas/backoffice-api/internal/application/ports"
	"github.com/jhoicas/backoffice-api/internal/domain"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
)

var tracer = otel.Tracer("github.com/jhoicas/backoffice-api/internal/application/order")

// FulfillmentCoordinator orquesta el ciclo de vida del pedido y sus efectos en inventario.
// Cada operación corre en una sola transacción: el pedido y sus asignaciones se confirman juntos.
type FulfillmentCoordinator struct {
	txRunner  inventory.TxRunner
	allocator Allocator
	orders    repository.OrderRepository
	products  repository.ProductRepository
	renderer  ports.PackingSlipRenderer
	pricing   Pricing
	log       zerolog.Logger
	now       func() time.Time
}

// NewFulfillmentCoordinator construye el coordinador. orders y products son los repos fuera de transacción (lecturas).
func NewFulfillmentCoordinator(
	txRunner inventory.TxRunner,
	allocator Allocator,
	orders repository.OrderRepository,
	products repository.ProductRepository,
	renderer ports.PackingSlipRenderer,
	pricing Pricing,
	log zerolog.Logger,
) *FulfillmentCoordinator {
	return &FulfillmentCoordinator{
		txRunner:  txRunner,
		allocator: allocator,
		orders:    orders,
		products:  products,
		renderer:  renderer,
		pricing:   pricing,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder valida, calcula totales, persiste el pedido y asigna stock de todas sus líneas.
// Cualquier faltante revierte todo y se devuelve como *domain.InsufficientStockError.
func (c *FulfillmentCoordinator) CreateOrder(ctx context.Context, actorID string, in dto.CreateOrderRequest) (resp *dto.OrderResponse, err error) {
	ctx, span := tracer.Start(ctx, "order.Create", trace.WithAttributes(
		attribute.String("order.customer_id", in.CustomerID),
		attribute.Int("order.items", len(in.Items)),
	))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(in.CustomerID) == "" || len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: customer_id e items requeridos", domain.ErrInvalidInput)
	}
	if in.ShippingAddress.Line1 == "" || in.ShippingAddress.City == "" || in.ShippingAddress.Country == "" {
		return nil, fmt.Errorf("%w: dirección de envío incompleta", domain.ErrInvalidInput)
	}
	warehouse := strings.TrimSpace(in.WarehouseLocation)
	if warehouse == "" {
		warehouse = c.allocator.DefaultWarehouse()
	}

	// Validar productos y precios fuera de la tx (solo lectura).
	productsByID := make(map[string]*entity.Product, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: línea inválida", domain.ErrInvalidInput)
		}
		if it.UnitPrice != nil && it.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: precio negativo", domain.ErrInvalidInput)
		}
		if _, ok := productsByID[it.ProductID]; ok {
			continue
		}
		p, err := c.products.GetByID(ctx, it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("producto %s: %w", it.ProductID, err)
		}
		productsByID[it.ProductID] = p
	}

	now := c.now()
	order := &entity.Order{
		ID:                uuid.New().String(),
		OrderNumber:       newOrderNumber(now),
		CustomerID:        in.CustomerID,
		CustomerName:      in.CustomerName,
		CustomerEmail:     in.CustomerEmail,
		WarehouseLocation: warehouse,
		Status:            entity.OrderPending,
		ShippingAddress:   toAddress(in.ShippingAddress),
		Notes:             in.Notes,
		CreatedBy:         actorID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	order.BillingAddress = order.ShippingAddress
	if in.BillingAddress != nil {
		order.BillingAddress = toAddress(*in.BillingAddress)
	}

	items := make([]*entity.OrderItem, 0, len(in.Items))
	requested := make(map[string]int, len(productsByID))
	firstLine := make(map[string]int, len(productsByID))
	subtotal := decimal.Zero
	for _, it := range in.Items {
		p := productsByID[it.ProductID]
		price := p.Price
		if it.UnitPrice != nil {
			price = *it.UnitPrice
		}
		line := price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		items = append(items, &entity.OrderItem{
			ID:          uuid.New().String(),
			OrderID:     order.ID,
			ProductID:   p.ID,
			SKU:         p.SKU,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   price,
			Subtotal:    line,
			CreatedAt:   now,
		})
		if _, ok := requested[p.ID]; !ok {
			firstLine[p.ID] = len(firstLine)
		}
		requested[p.ID] += it.Quantity
		subtotal = subtotal.Add(line)
	}
	order.Subtotal = subtotal
	order.TaxAmount, order.ShippingAmount, order.Total = c.pricing.Totals(subtotal)

	err = c.txRunner.Run(ctx, func(repos repository.TxRepos) error {
		// Bloqueos en orden de producto para evitar deadlocks entre pedidos concurrentes.
		// Con varios faltantes se reporta el de la línea más temprana del pedido.
		var short *domain.InsufficientStockError
		for _, pid := range sortedKeys(requested) {
			res, err := c.allocator.AllocateInTx(ctx, repos, inventory.ReservationInput{
				ProductID:   pid,
				Warehouse:   warehouse,
				Quantity:    requested[pid],
				ReferenceID: order.ID,
				Reason:      "pedido " + order.OrderNumber,
				ActorID:     actorID,
			})
			if err != nil {
				return err
			}
			if !res.OK && (short == nil || firstLine[pid] < firstLine[short.ProductID]) {
				short = &domain.InsufficientStockError{
					ProductID: pid,
					Warehouse: warehouse,
					Requested: res.Requested,
					Available: res.Before.Available,
					Shortfall: res.Shortfall,
				}
			}
		}
		if short != nil {
			return short
		}
		if err := repos.Orders.Create(ctx, order); err != nil {
			return err
		}
		for _, it := range items {
			if err := repos.Orders.CreateItem(ctx, it); err != nil {
				return err
			}
		}
		return repos.Orders.AddStatusChange(ctx, c.statusChange(order.ID, "", entity.OrderPending, "pedido creado", actorID))
	})
	if err != nil {
		var short *domain.InsufficientStockError
		if errors.As(err, &short) {
			c.log.Warn().Str("customer_id", in.CustomerID).Str("product_id", short.ProductID).
				Int("shortfall", short.Shortfall).Msg("pedido rechazado por stock insuficiente")
		}
		return nil, err
	}
	c.log.Info().Str("order_id", order.ID).Str("order_number", order.OrderNumber).
		Str("total", order.Total.String()).Msg("pedido creado")
	out := toOrderResponse(order, items)
	return &out, nil
}

// CancelOrder cancela un pedido no terminal y libera lo asignado y no despachado.
func (c *FulfillmentCoordinator) CancelOrder(ctx context.Context, actorID, orderID, reason string) (resp *dto.OrderResponse, err error) {
	ctx, span := tracer.Start(ctx, "order.Cancel", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { endSpan(span, err) }()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: la cancelación requiere un motivo", domain.ErrInvalidInput)
	}
	return c.transition(ctx, actorID, orderID, entity.OrderCancelled, reason)
}

// UpdateStatus avanza el estado del pedido. SHIPPED (o DELIVERED sin despacho previo) consume
// lo asignado; RETURNED libera
// lo no despachado; CANCELLED equivale a CancelOrder con notes como motivo.
func (c *FulfillmentCoordinator) UpdateStatus(ctx context.Context, actorID, orderID string, in dto.UpdateOrderStatusRequest) (resp *dto.OrderResponse, err error) {
	next := entity.OrderStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !next.Valid() {
		return nil, fmt.Errorf("%w: estado desconocido %q", domain.ErrInvalidInput, in.Status)
	}
	if next == entity.OrderCancelled {
		return c.CancelOrder(ctx, actorID, orderID, in.Notes)
	}

	ctx, span := tracer.Start(ctx, "order.UpdateStatus", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.status", string(next)),
	))
	defer func() { endSpan(span, err) }()
	return c.transition(ctx, actorID, orderID, next, strings.TrimSpace(in.Notes))
}

// transition bloquea el pedido, valida la transición y aplica sus efectos de inventario.
func (c *FulfillmentCoordinator) transition(ctx context.Context, actorID, orderID string, next entity.OrderStatus, notes string) (*dto.OrderResponse, error) {
	var (
		order *entity.Order
		items []*entity.OrderItem
	)
	err := c.txRunner.Run(ctx, func(repos repository.TxRepos) error {
		o, err := repos.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, o.Status, next)
		}
		its, err := repos.Orders.GetItems(ctx, orderID)
		if err != nil {
			return err
		}
		sort.SliceStable(its, func(i, j int) bool { return its[i].ProductID < its[j].ProductID })

		now := c.now()
		// Entregar sin haber pasado por SHIPPED también despacha lo asignado.
		if next == entity.OrderShipped || (next == entity.OrderDelivered && o.ShippedAt == nil) {
			if err := c.ship(ctx, repos, o, its, actorID); err != nil {
				return err
			}
			o.ShippedAt = &now
		}
		switch next {
		case entity.OrderDelivered:
			o.DeliveredAt = &now
		case entity.OrderCancelled, entity.OrderReturned:
			label := "cancelación"
			if next == entity.OrderReturned {
				label = "devolución"
			}
			for _, it := range its {
				if out := it.Outstanding(); out > 0 {
					if _, err := c.allocator.ReleaseInTx(ctx, repos, c.reservation(o, it, out, actorID, label)); err != nil {
						return err
					}
				}
			}
			if next == entity.OrderCancelled {
				o.CancellationReason = notes
				o.CancelledAt = &now
			}
		}

		prev := o.Status
		o.Status = next
		o.UpdatedAt = now
		if err := repos.Orders.Update(ctx, o); err != nil {
			return err
		}
		if err := repos.Orders.AddStatusChange(ctx, c.statusChange(o.ID, prev, next, notes, actorID)); err != nil {
			return err
		}
		order, items = o, its
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("order_id", orderID).Str("status", string(next)).Str("actor", actorID).Msg("estado de pedido actualizado")
	out := toOrderResponse(order, items)
	return &out, nil
}

// ship consume lo pendiente de cada línea y la marca como despachada completa.
func (c *FulfillmentCoordinator) ship(ctx context.Context, repos repository.TxRepos, o *entity.Order, its []*entity.OrderItem, actorID string) error {
	for _, it := range its {
		if out := it.Outstanding(); out > 0 {
			if _, err := c.allocator.ConsumeInTx(ctx, repos, c.reservation(o, it, out, actorID, "despacho")); err != nil {
				return err
			}
		}
		if it.QuantityShipped != it.Quantity {
			if err := repos.Orders.UpdateItemShipped(ctx, it.ID, it.Quantity); err != nil {
				return err
			}
			it.QuantityShipped = it.Quantity
		}
	}
	return nil
}

// GetOrder pedido con sus líneas.
func (c *FulfillmentCoordinator) GetOrder(ctx context.Context, orderID string) (*dto.OrderResponse, error) {
	o, err := c.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := c.orders.GetItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := toOrderResponse(o, items)
	return &out, nil
}

// ListOrders listado paginado, más reciente primero.
func (c *FulfillmentCoordinator) ListOrders(ctx context.Context, filter repository.OrderFilter, page dto.PageRequest) (*dto.OrderListResponse, error) {
	page.DefaultPage()
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: estado desconocido %q", domain.ErrInvalidInput, filter.Status)
	}
	list, total, err := c.orders.List(ctx, filter, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.OrderResponse, 0, len(list))
	for _, o := range list {
		items = append(items, toOrderResponse(o, nil))
	}
	return &dto.OrderListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}, nil
}

// History historial de estados del pedido, en orden cronológico.
func (c *FulfillmentCoordinator) History(ctx context.Context, orderID string) ([]dto.OrderStatusChangeResponse, error) {
	if _, err := c.orders.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	list, err := c.orders.ListStatusChanges(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.OrderStatusChangeResponse, 0, len(list))
	for _, ch := range list {
		out = append(out, dto.OrderStatusChangeResponse{
			ID:         ch.ID,
			FromStatus: string(ch.From),
			ToStatus:   string(ch.To),
			Notes:      ch.Notes,
			ChangedBy:  ch.ChangedBy,
			CreatedAt:  ch.CreatedAt,
		})
	}
	return out, nil
}

// PackingSlip genera la guía de despacho en PDF. No aplica a pedidos cancelados.
func (c *FulfillmentCoordinator) PackingSlip(ctx context.Context, orderID string) ([]byte, string, error) {
	if c.renderer == nil {
		return nil, "", fmt.Errorf("%w: generador de PDF no configurado", domain.ErrInvalidInput)
	}
	o, err := c.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, "", err
	}
	if o.Status == entity.OrderCancelled {
		return nil, "", fmt.Errorf("%w: el pedido %s está cancelado", domain.ErrConflict, o.OrderNumber)
	}
	items, err := c.orders.GetItems(ctx, orderID)
	if err != nil {
		return nil, "", err
	}
	pdf, err := c.renderer.RenderPackingSlip(ctx, o, items)
	if err != nil {
		return nil, "", fmt.Errorf("packing slip: %w", err)
	}
	return pdf, fmt.Sprintf("guia-%s.pdf", o.OrderNumber), nil
}

func (c *FulfillmentCoordinator) reservation(o *entity.Order, it *entity.OrderItem, qty int, actorID, label string) inventory.ReservationInput {
	return inventory.ReservationInput{
		ProductID:   it.ProductID,
		Warehouse:   o.WarehouseLocation,
		Quantity:    qty,
		ReferenceID: o.ID,
		Reason:      label + " pedido " + o.OrderNumber,
		ActorID:     actorID,
	}
}

func (c *FulfillmentCoordinator) statusChange(orderID string, from, to entity.OrderStatus, notes, actorID string) *entity.OrderStatusChange {
	return &entity.OrderStatusChange{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		From:      from,
		To:        to,
		Notes:     notes,
		ChangedBy: actorID,
		CreatedAt: c.now(),
	}
}

// newOrderNumber formato ORD-YYYYMMDD-XXXXXX.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
