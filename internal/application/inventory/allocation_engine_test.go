package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/backoffice-api/internal/application/dto"
	"github.com/jhoicas/backoffice-api/internal/application/inventory"
	"github.com/jhoicas/backoffice-api/internal/domain"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	invdomain "github.com/jhoicas/backoffice-api/internal/domain/inventory"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
)

func TestAdjust_IncreaseRegistraMovimiento(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "SKU-1", 0, 0, 0)

	res, err := f.engine.Adjust(context.Background(), inventory.AdjustInput{
		ProductID: p.ID, Type: entity.MovementIncrease, Quantity: 100, Reason: "recepción", ActorID: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, invdomain.Balance{OnHand: 100, Allocated: 0, Available: 100}, res.After)
	require.NotNil(t, res.Movement)
	assert.Equal(t, 100, res.Movement.Quantity)
	assert.Equal(t, 0, res.Movement.PreviousQuantity)
	assert.Equal(t, 100, res.Movement.NewQuantity)
	assert.Equal(t, "u1", res.Movement.CreatedBy)

	rec := f.record(t, p.ID)
	assert.Equal(t, 100, rec.QuantityOnHand)
	require.NotNil(t, rec.LastMovementAt)
	assert.Equal(t, res.Movement.CreatedAt, *rec.LastMovementAt)
}

func TestAdjust_IncreaseConCostoActualizaPromedio(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "SKU-1", 10, 0, 0) // costo inicial 8
	cost := decimal.NewFromInt(12)

	_, err := f.engine.Adjust(context.Background(), inventory.AdjustInput{
		ProductID: p.ID, Type: entity.MovementIncrease, Quantity: 10, Reason: "compra", UnitCost: &cost,
	})
	require.NoError(t, err)

	got, err := f.repos.Products.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, got.Cost.Equal(decimal.NewFromInt(10)), "costo promedio esperado 10, got %s", got.Cost)
}

func TestAdjust_DecreaseBajoAsignado_RechazaSinEscribir(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, "SKU-1", 50, 0, 0)
	_, err := f.engine.Allocate(ctx, inventory.ReservationInput{ProductID: p.ID, Quantity: 20, ReferenceID: "ORD-1"})
	require.NoError(t, err)
	before := len(f.movements(t, p.ID))

	_, err = f.engine.Adjust(ctx, inventory.AdjustInput{
		ProductID: p.ID, Type: entity.MovementDecrease, Quantity: 40, Reason: "merma",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAllocatedExceedsOnHand)
	assert.ErrorIs(t, err, domain.ErrConflict)

	rec := f.record(t, p.ID)
	assert.Equal(t, 50, rec.QuantityOnHand)
	assert.Equal(t, 20, rec.QuantityAllocated)
	assert.Equal(t, 30, rec.QuantityAvailable)
	assert.Len(t, f.movements(t, p.ID), before, "un ajuste rechazado no deja movimiento")
}

func TestAdjust_EntradasInvalidas(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "SKU-1", 10, 0, 0)
	ctx := context.Background()
	negative := decimal.NewFromInt(-1)

	cases := []struct {
		name string
		in   inventory.AdjustInput
	}{
		{"tipo de reserva", inventory.AdjustInput{ProductID: p.ID, Type: entity.MovementAllocation, Quantity: 1, Reason: "x"}},
		{"sin motivo", inventory.AdjustInput{ProductID: p.ID, Type: entity.MovementIncrease, Quantity: 1}},
		{"sin producto", inventory.AdjustInput{Type: entity.MovementIncrease, Quantity: 1, Reason: "x"}},
		{"costo negativo", inventory.AdjustInput{ProductID: p.ID, Type: entity.MovementIncrease, Quantity: 1, Reason: "x", UnitCost: &negative}},
		{"costo en decrease", inventory.AdjustInput{ProductID: p.ID, Type: entity.MovementDecrease, Quantity: 1, Reason: "x", UnitCost: &negative}},
		{"entrada que desborda", inventory.AdjustInput{ProductID: p.ID, Type: entity.MovementIncrease, Quantity: invdomain.MaxQuantity, Reason: "x"}},
		{"conteo sobre el máximo", inventory.AdjustInput{ProductID: p.ID, Type: entity.MovementSet, Quantity: invdomain.MaxQuantity + 1, Reason: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Adjust(ctx, tc.in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	assert.Equal(t, 10, f.record(t, p.ID).QuantityOnHand)
}

func TestAdjust_SetAlMismoValorNoEscribeMovimiento(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "SKU-1", 10, 0, 0)
	before := len(f.movements(t, p.ID))

	res, err := f.engine.Adjust(context.Background(), inventory.AdjustInput{
		ProductID: p.ID, Type: entity.MovementSet, Quantity: 10, Reason: "conteo",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Movement)
	assert.Len(t, f.movements(t, p.ID), before)
}

func TestAdjust_RegistroInexistente_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Adjust(context.Background(), inventory.AdjustInput{
		ProductID: "no-existe", Type: entity.MovementIncrease, Quantity: 1, Reason: "x",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAllocate_Exitosa(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "SKU-1", 100, 0, 0)

	res, err := f.engine.Allocate(context.Background(), inventory.ReservationInput{
		ProductID: p.ID, Quantity: 30, ReferenceID: "ORD-1", ActorID: "u1",
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 0, res.Shortfall)
	assert.Equal(t, invdomain.Balance{OnHand: 100, Allocated: 0, Available: 100}, res.Before)
	assert.Equal(t, invdomain.Balance{OnHand: 100, Allocated: 30, Available: 70}, res.After)
	require.NotNil(t, res.Movement)
	assert.Equal(t, entity.MovementAllocation, res.Movement.Type)
	assert.Equal(t, -30, res.Movement.Quantity)
	assert.Equal(t, 100, res.Movement.PreviousQuantity)
	assert.Equal(t, 70, res.Movement.NewQuantity)
	assert.Equal(t, "ORD-1", res.Movement.ReferenceID)
}

func TestAllocate_Insuficiente_DevuelveFaltanteSinEscribir(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "SKU-1", 5, 0, 0)
	before := len(f.movements(t, p.ID))

	res, err := f.engine.Allocate(context.Background(), inventory.ReservationInput{
		ProductID: p.ID, Quantity: 10, ReferenceID: "ORD-1",
	})
	require.NoError(t, err, "el faltante es un resultado, no un error")
	assert.False(t, res.OK)
	assert.Equal(t, 5, res.Shortfall)
	assert.Equal(t, 10, res.Requested)
	assert.Equal(t, res.Before, res.After)
	assert.Nil(t, res.Movement)

	rec := f.record(t, p.ID)
	assert.Equal(t, 0, rec.QuantityAllocated)
	assert.Equal(t, 5, rec.QuantityAvailable)
	assert.Len(t, f.movements(t, p.ID), before)
}

func TestAllocate_CantidadInvalida(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "SKU-1", 5, 0, 0)
	_, err := f.engine.Allocate(context.Background(), inventory.ReservationInput{ProductID: p.ID, Quantity: 0, ReferenceID: "R"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.engine.Allocate(context.Background(), inventory.ReservationInput{ProductID: p.ID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRelease_CeroEsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, "SKU-1", 100, 0, 0)
	_, err := f.engine.Allocate(ctx, inventory.ReservationInput{ProductID: p.ID, Quantity: 30, ReferenceID: "ORD-1"})
	require.NoError(t, err)
	before := len(f.movements(t, p.ID))

	res, err := f.engine.Release(ctx, inventory.ReservationInput{ProductID: p.ID, Quantity: 0, ReferenceID: "ORD-1"})
	require.NoError(t, err)
	assert.Nil(t, res.Movement)
	assert.Equal(t, res.Before, res.After)
	assert.Len(t, f.movements(t, p.ID), before)
}

func TestRelease_MasQueAsignado_LiberaSoloLoAsignado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, "SKU-1", 100, 0, 0)
	_, err := f.engine.Allocate(ctx, inventory.ReservationInput{ProductID: p.ID, Quantity: 20, ReferenceID: "ORD-1"})
	require.NoError(t, err)

	res, err := f.engine.Release(ctx, inventory.ReservationInput{ProductID: p.ID, Quantity: 50, ReferenceID: "ORD-1"})
	require.NoError(t, err)
	assert.Equal(t, invdomain.Balance{OnHand: 100, Allocated: 0, Available: 100}, res.After)
	require.NotNil(t, res.Movement)
	assert.Equal(t, 20, res.Movement.Quantity)
}

func TestRelease_SoloLoAsignadoALaReferencia(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, "SKU-1", 100, 0, 0)
	for ref, qty := range map[string]int{"ORD-1": 10, "ORD-2": 25} {
		_, err := f.engine.Allocate(ctx, inventory.ReservationInput{ProductID: p.ID, Quantity: qty, ReferenceID: ref})
		require.NoError(t, err)
	}

	_, err := f.engine.Release(ctx, inventory.ReservationInput{ProductID: p.ID, Quantity: 5, ReferenceID: "OTRA"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	res, err := f.engine.Release(ctx, inventory.ReservationInput{ProductID: p.ID, Quantity: 30, ReferenceID: "ORD-1"})
	require.NoError(t, err)
	assert.Equal(t, invdomain.Balance{OnHand: 100, Allocated: 25, Available: 75}, res.After, "ORD-2 conserva su reserva")

	_, err = f.engine.Release(ctx, inventory.ReservationInput{ProductID: p.ID, Quantity: 1, ReferenceID: "ORD-1"})
	assert.ErrorIs(t, err, domain.ErrConflict, "ORD-1 ya no tiene unidades asignadas")

	_, err = f.engine.Consume(ctx, inventory.ReservationInput{ProductID: p.ID, Quantity: 10, ReferenceID: "ORD-2"})
	require.NoError(t, err)
	res, err = f.engine.Release(ctx, inventory.ReservationInput{ProductID: p.ID, Quantity: 25, ReferenceID: "ORD-2"})
	require.NoError(t, err)
	assert.Equal(t, 15, res.Movement.Quantity, "lo despachado ya no está reservado")
	assert.Equal(t, invdomain.Balance{OnHand: 90, Allocated: 0, Available: 90}, res.After)
}

func TestConsume_DescuentaFisicoYAsignado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, "SKU-1", 100, 0, 0)
	_, err := f.engine.Allocate(ctx, inventory.ReservationInput{ProductID: p.ID, Quantity: 30, ReferenceID: "ORD-1"})
	require.NoError(t, err)

	res, err := f.engine.Consume(ctx, inventory.ReservationInput{ProductID: p.ID, Quantity: 30, ReferenceID: "ORD-1"})
	require.NoError(t, err)
	assert.Equal(t, invdomain.Balance{OnHand: 70, Allocated: 0, Available: 70}, res.After)
	assert.Equal(t, entity.MovementConsume, res.Movement.Type)

	_, err = f.engine.Consume(ctx, inventory.ReservationInput{ProductID: p.ID, Quantity: 1, ReferenceID: "ORD-1"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCheckAvailability_SumaRepetidosYReportaFaltantes(t *testing.T) {
	f := newFixture(t)
	a := f.seedProduct(t, "SKU-A", 10, 0, 0)
	b := f.seedProduct(t, "SKU-B", 3, 0, 0)

	out, err := f.engine.CheckAvailability(context.Background(), dto.CheckAvailabilityRequest{
		Items: []dto.AvailabilityItemRequest{
			{ProductID: a.ID, Quantity: 6},
			{ProductID: a.ID, Quantity: 4},
			{ProductID: b.ID, Quantity: 5},
			{ProductID: "desconocido", Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "MAIN", out.WarehouseLocation)
	assert.False(t, out.AllAvailable)
	require.Len(t, out.Items, 3)

	assert.Equal(t, 10, out.Items[0].Requested)
	assert.True(t, out.Items[0].Sufficient)
	assert.Equal(t, 2, out.Items[1].Shortfall)
	assert.False(t, out.Items[2].Found)
	assert.Equal(t, 1, out.Items[2].Shortfall)

	// Consultiva: no reserva nada.
	assert.Equal(t, 0, f.record(t, a.ID).QuantityAllocated)
}

func TestAllocate_ConcurrenteMantieneInvariante(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "SKU-1", 100, 0, 0)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.engine.Allocate(context.Background(), inventory.ReservationInput{
				ProductID: p.ID, Quantity: 3, ReferenceID: "ORD",
			})
			if err != nil {
				t.Error(err)
				return
			}
			if res.OK {
				mu.Lock()
				granted += 3
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	rec := f.record(t, p.ID)
	assert.Equal(t, 99, granted, "33 asignaciones de 3 caben en 100")
	assert.Equal(t, granted, rec.QuantityAllocated)
	assert.Equal(t, rec.QuantityOnHand, rec.QuantityAllocated+rec.QuantityAvailable)
	assert.GreaterOrEqual(t, rec.QuantityAvailable, 0)

	var allocations int
	for _, m := range f.movements(t, p.ID) {
		if m.Type == entity.MovementAllocation {
			allocations++
		}
	}
	assert.Equal(t, 33, allocations)
}

func TestAllocateInTx_ErrorRevierteTodo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, "SKU-1", 10, 0, 0)
	boom := errors.New("fallo posterior")

	err := f.store.Run(ctx, func(repos repository.TxRepos) error {
		res, err := f.engine.AllocateInTx(ctx, repos, inventory.ReservationInput{ProductID: p.ID, Quantity: 4, ReferenceID: "ORD-1"})
		require.NoError(t, err)
		require.True(t, res.OK)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, f.record(t, p.ID).QuantityAllocated, "el rollback descarta la asignación")
}
