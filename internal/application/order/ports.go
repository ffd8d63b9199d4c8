package order

import (
	"context"

	"github.com/jhoicas/backoffice-api/internal/application/inventory"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
)

// Allocator operaciones del motor de inventario que el coordinador compone dentro de su propia transacción.
type Allocator interface {
	AllocateInTx(ctx context.Context, repos repository.TxRepos, in inventory.ReservationInput) (*inventory.AllocationResult, error)
	ReleaseInTx(ctx context.Context, repos repository.TxRepos, in inventory.ReservationInput) (*inventory.MutationResult, error)
	ConsumeInTx(ctx context.Context, repos repository.TxRepos, in inventory.ReservationInput) (*inventory.MutationResult, error)
	DefaultWarehouse() string
}

var _ Allocator = (*inventory.AllocationEngine)(nil)
