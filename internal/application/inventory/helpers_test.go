package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/backoffice-api/internal/application/inventory"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
	"github.com/jhoicas/backoffice-api/internal/infrastructure/memory"
)

type fixture struct {
	store    *memory.Store
	repos    repository.TxRepos
	recorder *inventory.MovementRecorder
	engine   *inventory.AllocationEngine
	ledger   *inventory.LedgerUseCase
	monitor  *inventory.ReorderMonitor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repos()
	recorder := inventory.NewMovementRecorder(repos.Movements, nil, zerolog.Nop())
	return &fixture{
		store:    store,
		repos:    repos,
		recorder: recorder,
		engine:   inventory.NewAllocationEngine(store, repos.Inventory, recorder, "MAIN", zerolog.Nop()),
		ledger:   inventory.NewLedgerUseCase(repos.Inventory, repos.Products, "MAIN"),
		monitor:  inventory.NewReorderMonitor(repos.Inventory, repos.Products),
	}
}

// seedProduct crea el producto con su registro en MAIN y, si onHand > 0, un INCREASE inicial.
func (f *fixture) seedProduct(t *testing.T, sku string, onHand, reorderLevel, reorderQty int) *entity.Product {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	p := &entity.Product{
		ID:              uuid.New().String(),
		SKU:             sku,
		Name:            "Producto " + sku,
		Price:           decimal.NewFromInt(20),
		Cost:            decimal.NewFromInt(8),
		ReorderLevel:    reorderLevel,
		ReorderQuantity: reorderQty,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := f.store.Run(ctx, func(repos repository.TxRepos) error {
		if err := repos.Products.Create(ctx, p); err != nil {
			return err
		}
		return repos.Inventory.Create(ctx, inventory.NewZeroRecord(p, "MAIN", now))
	})
	require.NoError(t, err)
	if onHand > 0 {
		_, err := f.engine.Adjust(ctx, inventory.AdjustInput{
			ProductID: p.ID,
			Type:      entity.MovementIncrease,
			Quantity:  onHand,
			Reason:    "carga inicial",
			ActorID:   "tester",
		})
		require.NoError(t, err)
	}
	return p
}

func (f *fixture) record(t *testing.T, productID string) *entity.InventoryRecord {
	t.Helper()
	rec, err := f.repos.Inventory.Get(context.Background(), productID, "MAIN")
	require.NoError(t, err)
	return rec
}

func (f *fixture) movements(t *testing.T, productID string) []*entity.StockMovement {
	t.Helper()
	list, _, err := f.repos.Movements.List(context.Background(), repository.StockMovementFilter{ProductID: productID}, 0, 0)
	require.NoError(t, err)
	return list
}
