package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/backoffice-api/internal/application/dto"
	"github.com/jhoicas/backoffice-api/internal/application/inventory"
	"github.com/jhoicas/backoffice-api/internal/application/order"
	"github.com/jhoicas/backoffice-api/internal/domain"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
	"github.com/jhoicas/backoffice-api/internal/infrastructure/memory"
)

type stubRenderer struct{}

func (stubRenderer) RenderPackingSlip(_ context.Context, o *entity.Order, items []*entity.OrderItem) ([]byte, error) {
	return []byte("%PDF-" + o.OrderNumber), nil
}

type orderFixture struct {
	store  *memory.Store
	repos  repository.TxRepos
	engine *inventory.AllocationEngine
	coord  *order.FulfillmentCoordinator
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repos()
	recorder := inventory.NewMovementRecorder(repos.Movements, nil, zerolog.Nop())
	engine := inventory.NewAllocationEngine(store, repos.Inventory, recorder, "MAIN", zerolog.Nop())
	coord := order.NewFulfillmentCoordinator(store, engine, repos.Orders, repos.Products, stubRenderer{}, order.DefaultPricing(), zerolog.Nop())
	return &orderFixture{store: store, repos: repos, engine: engine, coord: coord}
}

func (f *orderFixture) seed(t *testing.T, sku string, price int64, available int) *entity.Product {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	p := &entity.Product{ID: uuid.New().String(), SKU: sku, Name: "Producto " + sku, Price: decimal.NewFromInt(price), CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.store.Run(ctx, func(repos repository.TxRepos) error {
		if err := repos.Products.Create(ctx, p); err != nil {
			return err
		}
		return repos.Inventory.Create(ctx, inventory.NewZeroRecord(p, "MAIN", now))
	}))
	if available > 0 {
		_, err := f.engine.Adjust(ctx, inventory.AdjustInput{ProductID: p.ID, Type: entity.MovementIncrease, Quantity: available, Reason: "carga"})
		require.NoError(t, err)
	}
	return p
}

func (f *orderFixture) balance(t *testing.T, productID string) (onHand, allocated, available int) {
	t.Helper()
	rec, err := f.repos.Inventory.Get(context.Background(), productID, "MAIN")
	require.NoError(t, err)
	return rec.QuantityOnHand, rec.QuantityAllocated, rec.QuantityAvailable
}

func address() dto.AddressDTO {
	return dto.AddressDTO{Line1: "Calle 1 # 2-3", City: "Bogotá", Country: "CO"}
}

func TestCreateOrder_AsignaYCalculaTotales(t *testing.T) {
	f := newOrderFixture(t)
	a := f.seed(t, "SKU-A", 20, 10)

	out, err := f.coord.CreateOrder(context.Background(), "vendedor-1", dto.CreateOrderRequest{
		CustomerID:      "cli-1",
		Items:           []dto.OrderItemRequest{{ProductID: a.ID, Quantity: 2}},
		ShippingAddress: address(),
	})
	require.NoError(t, err)
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{6}$`, out.OrderNumber)
	assert.Equal(t, "PENDING", out.Status)
	assert.Equal(t, "40", out.Subtotal.String())
	assert.Equal(t, "4", out.TaxAmount.String())
	assert.Equal(t, "10", out.ShippingAmount.String())
	assert.Equal(t, "54", out.Total.String())
	assert.Equal(t, "Bogotá", out.BillingAddress.City, "sin facturación se usa la dirección de envío")
	require.Len(t, out.Items, 1)

	onHand, allocated, available := f.balance(t, a.ID)
	assert.Equal(t, 10, onHand)
	assert.Equal(t, 2, allocated)
	assert.Equal(t, 8, available)

	movs, _, err := f.repos.Movements.List(context.Background(), repository.StockMovementFilter{ReferenceID: out.ID}, 0, 0)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementAllocation, movs[0].Type)

	history, err := f.coord.History(context.Background(), out.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "PENDING", history[0].ToStatus)
}

func TestCreateOrder_EnvioGratisDesdeUmbralYPrecioExplicito(t *testing.T) {
	f := newOrderFixture(t)
	a := f.seed(t, "SKU-A", 20, 10)
	price := decimal.NewFromInt(25)

	out, err := f.coord.CreateOrder(context.Background(), "v", dto.CreateOrderRequest{
		CustomerID:      "cli-1",
		Items:           []dto.OrderItemRequest{{ProductID: a.ID, Quantity: 4, UnitPrice: &price}},
		ShippingAddress: address(),
	})
	require.NoError(t, err)
	assert.Equal(t, "100", out.Subtotal.String())
	assert.True(t, out.ShippingAmount.IsZero())
	assert.Equal(t, "110", out.Total.String())
}

func TestCreateOrder_EscenarioC_FaltanteRevierteTodo(t *testing.T) {
	f := newOrderFixture(t)
	a := f.seed(t, "SKU-A", 10, 10)
	b := f.seed(t, "SKU-B", 10, 1)

	_, err := f.coord.CreateOrder(context.Background(), "v", dto.CreateOrderRequest{
		CustomerID: "cli-1",
		Items: []dto.OrderItemRequest{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 5},
		},
		ShippingAddress: address(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	var short *domain.InsufficientStockError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, b.ID, short.ProductID)
	assert.Equal(t, 5, short.Requested)
	assert.Equal(t, 1, short.Available)
	assert.Equal(t, 4, short.Shortfall)

	onHand, allocated, available := f.balance(t, a.ID)
	assert.Equal(t, []int{10, 0, 10}, []int{onHand, allocated, available}, "el producto A queda intacto")
	onHand, allocated, available = f.balance(t, b.ID)
	assert.Equal(t, []int{1, 0, 1}, []int{onHand, allocated, available})

	list, err := f.coord.ListOrders(context.Background(), repository.OrderFilter{}, dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, list.Page.Total, "no se persiste el pedido")
}

func TestCreateOrder_Validaciones(t *testing.T) {
	f := newOrderFixture(t)
	a := f.seed(t, "SKU-A", 10, 10)
	ctx := context.Background()

	_, err := f.coord.CreateOrder(ctx, "v", dto.CreateOrderRequest{CustomerID: "c", ShippingAddress: address()})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.coord.CreateOrder(ctx, "v", dto.CreateOrderRequest{
		CustomerID: "c", Items: []dto.OrderItemRequest{{ProductID: a.ID, Quantity: 0}}, ShippingAddress: address(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.coord.CreateOrder(ctx, "v", dto.CreateOrderRequest{
		CustomerID: "c", Items: []dto.OrderItemRequest{{ProductID: a.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "dirección de envío requerida")

	_, err = f.coord.CreateOrder(ctx, "v", dto.CreateOrderRequest{
		CustomerID: "c", Items: []dto.OrderItemRequest{{ProductID: "no-existe", Quantity: 1}}, ShippingAddress: address(),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelOrder_LiberaAsignacion(t *testing.T) {
	f := newOrderFixture(t)
	a := f.seed(t, "SKU-A", 10, 10)
	ctx := context.Background()
	created, err := f.coord.CreateOrder(ctx, "v", dto.CreateOrderRequest{
		CustomerID: "c", Items: []dto.OrderItemRequest{{ProductID: a.ID, Quantity: 3}}, ShippingAddress: address(),
	})
	require.NoError(t, err)

	_, err = f.coord.CancelOrder(ctx, "v", created.ID, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "motivo requerido")

	out, err := f.coord.CancelOrder(ctx, "v", created.ID, "cliente desistió")
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", out.Status)
	assert.Equal(t, "cliente desistió", out.CancellationReason)
	assert.NotNil(t, out.CancelledAt)

	_, allocated, available := f.balance(t, a.ID)
	assert.Equal(t, 0, allocated)
	assert.Equal(t, 10, available)

	_, err = f.coord.CancelOrder(ctx, "v", created.ID, "otra vez")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestUpdateStatus_EnvioConsumeAsignado(t *testing.T) {
	f := newOrderFixture(t)
	a := f.seed(t, "SKU-A", 10, 10)
	ctx := context.Background()
	created, err := f.coord.CreateOrder(ctx, "v", dto.CreateOrderRequest{
		CustomerID: "c", Items: []dto.OrderItemRequest{{ProductID: a.ID, Quantity: 3}}, ShippingAddress: address(),
	})
	require.NoError(t, err)

	for _, st := range []string{"CONFIRMED", "PROCESSING"} {
		_, err := f.coord.UpdateStatus(ctx, "bodega", created.ID, dto.UpdateOrderStatusRequest{Status: st})
		require.NoError(t, err)
	}
	shipped, err := f.coord.UpdateStatus(ctx, "bodega", created.ID, dto.UpdateOrderStatusRequest{Status: "SHIPPED", Notes: "guía 123"})
	require.NoError(t, err)
	assert.NotNil(t, shipped.ShippedAt)
	require.Len(t, shipped.Items, 1)
	assert.Equal(t, 3, shipped.Items[0].QuantityShipped)

	onHand, allocated, available := f.balance(t, a.ID)
	assert.Equal(t, []int{7, 0, 7}, []int{onHand, allocated, available})

	_, err = f.coord.UpdateStatus(ctx, "bodega", created.ID, dto.UpdateOrderStatusRequest{Status: "CONFIRMED"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "no se retrocede")

	delivered, err := f.coord.UpdateStatus(ctx, "bodega", created.ID, dto.UpdateOrderStatusRequest{Status: "DELIVERED"})
	require.NoError(t, err)
	assert.NotNil(t, delivered.DeliveredAt)

	history, err := f.coord.History(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, history, 5)
	assert.Equal(t, "SHIPPED", history[3].ToStatus)
	assert.Equal(t, "PROCESSING", history[3].FromStatus)
}

func TestUpdateStatus_DevolucionLiberaNoDespachado(t *testing.T) {
	f := newOrderFixture(t)
	a := f.seed(t, "SKU-A", 10, 10)
	ctx := context.Background()
	created, err := f.coord.CreateOrder(ctx, "v", dto.CreateOrderRequest{
		CustomerID: "c", Items: []dto.OrderItemRequest{{ProductID: a.ID, Quantity: 4}}, ShippingAddress: address(),
	})
	require.NoError(t, err)

	out, err := f.coord.UpdateStatus(ctx, "v", created.ID, dto.UpdateOrderStatusRequest{Status: "RETURNED"})
	require.NoError(t, err)
	assert.Equal(t, "RETURNED", out.Status)
	_, allocated, available := f.balance(t, a.ID)
	assert.Equal(t, 0, allocated)
	assert.Equal(t, 10, available)
}

func TestUpdateStatus_CancelladoPorPatchRequiereMotivo(t *testing.T) {
	f := newOrderFixture(t)
	a := f.seed(t, "SKU-A", 10, 10)
	ctx := context.Background()
	created, err := f.coord.CreateOrder(ctx, "v", dto.CreateOrderRequest{
		CustomerID: "c", Items: []dto.OrderItemRequest{{ProductID: a.ID, Quantity: 1}}, ShippingAddress: address(),
	})
	require.NoError(t, err)

	_, err = f.coord.UpdateStatus(ctx, "v", created.ID, dto.UpdateOrderStatusRequest{Status: "CANCELLED"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.coord.UpdateStatus(ctx, "v", created.ID, dto.UpdateOrderStatusRequest{Status: "ARCHIVED"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.coord.UpdateStatus(ctx, "v", "no-existe", dto.UpdateOrderStatusRequest{Status: "CONFIRMED"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPackingSlip(t *testing.T) {
	f := newOrderFixture(t)
	a := f.seed(t, "SKU-A", 10, 10)
	ctx := context.Background()
	created, err := f.coord.CreateOrder(ctx, "v", dto.CreateOrderRequest{
		CustomerID: "c", Items: []dto.OrderItemRequest{{ProductID: a.ID, Quantity: 1}}, ShippingAddress: address(),
	})
	require.NoError(t, err)

	pdf, name, err := f.coord.PackingSlip(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "guia-"+created.OrderNumber+".pdf", name)
	assert.Contains(t, string(pdf), created.OrderNumber)

	_, err = f.coord.CancelOrder(ctx, "v", created.ID, "x")
	require.NoError(t, err)
	_, _, err = f.coord.PackingSlip(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestPricing_Totals(t *testing.T) {
	p := order.DefaultPricing()
	tax, ship, total := p.Totals(decimal.RequireFromString("99.99"))
	assert.Equal(t, "10", tax.String())
	assert.Equal(t, "10", ship.String())
	assert.Equal(t, "119.99", total.String())
}

func TestUpdateStatus_EntregaDirectaConsumeAsignado(t *testing.T) {
	f := newOrderFixture(t)
	a := f.seed(t, "SKU-A", 10, 10)
	ctx := context.Background()
	created, err := f.coord.CreateOrder(ctx, "v", dto.CreateOrderRequest{
		CustomerID: "c", Items: []dto.OrderItemRequest{{ProductID: a.ID, Quantity: 4}}, ShippingAddress: address(),
	})
	require.NoError(t, err)

	delivered, err := f.coord.UpdateStatus(ctx, "bodega", created.ID, dto.UpdateOrderStatusRequest{Status: "DELIVERED"})
	require.NoError(t, err)
	assert.Equal(t, "DELIVERED", delivered.Status)
	assert.NotNil(t, delivered.ShippedAt)
	assert.NotNil(t, delivered.DeliveredAt)
	require.Len(t, delivered.Items, 1)
	assert.Equal(t, 4, delivered.Items[0].QuantityShipped)

	onHand, allocated, available := f.balance(t, a.ID)
	assert.Equal(t, []int{6, 0, 6}, []int{onHand, allocated, available}, "no quedan unidades asignadas")

	movs, _, err := f.repos.Movements.List(ctx, repository.StockMovementFilter{ReferenceID: created.ID}, 0, 0)
	require.NoError(t, err)
	types := make([]entity.MovementType, 0, len(movs))
	for _, m := range movs {
		types = append(types, m.Type)
	}
	assert.ElementsMatch(t, []entity.MovementType{entity.MovementAllocation, entity.MovementConsume}, types)
}

func TestCreateOrder_VariosFaltantes_ReportaLaPrimeraLinea(t *testing.T) {
	f := newOrderFixture(t)
	x := f.seed(t, "SKU-X", 10, 1)
	y := f.seed(t, "SKU-Y", 10, 2)
	// La primera línea del pedido es la de mayor ID, opuesta al orden de bloqueo.
	first, second := x, y
	if first.ID < second.ID {
		first, second = second, first
	}

	_, err := f.coord.CreateOrder(context.Background(), "v", dto.CreateOrderRequest{
		CustomerID: "c",
		Items: []dto.OrderItemRequest{
			{ProductID: first.ID, Quantity: 5},
			{ProductID: second.ID, Quantity: 5},
		},
		ShippingAddress: address(),
	})
	var short *domain.InsufficientStockError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, first.ID, short.ProductID)
}

func TestCancelOrder_TrasLiberacionManualDeSuReserva(t *testing.T) {
	f := newOrderFixture(t)
	a := f.seed(t, "SKU-A", 10, 10)
	ctx := context.Background()
	created, err := f.coord.CreateOrder(ctx, "v", dto.CreateOrderRequest{
		CustomerID: "c", Items: []dto.OrderItemRequest{{ProductID: a.ID, Quantity: 3}}, ShippingAddress: address(),
	})
	require.NoError(t, err)
	_, err = f.engine.Release(ctx, inventory.ReservationInput{ProductID: a.ID, Quantity: 3, ReferenceID: created.ID})
	require.NoError(t, err)

	out, err := f.coord.CancelOrder(ctx, "v", created.ID, "sin reserva")
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", out.Status)
	_, allocated, available := f.balance(t, a.ID)
	assert.Equal(t, 0, allocated)
	assert.Equal(t, 10, available)
}
