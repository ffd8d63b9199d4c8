package memory

import (
	"context"

	"github.com/jhoicas/backoffice-api/internal/domain"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
)

// StockMovementRepo implementa repository.StockMovementRepository (solo inserción).
type StockMovementRepo struct {
	a accessor
}

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

func (r *StockMovementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	return r.a.do(func(d *dataset) error {
		x := *m
		d.movements = append(d.movements, &x)
		return nil
	})
}

func (r *StockMovementRepo) GetByID(_ context.Context, id string) (*entity.StockMovement, error) {
	var out *entity.StockMovement
	err := r.a.do(func(d *dataset) error {
		for _, m := range d.movements {
			if m.ID == id {
				x := *m
				out = &x
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

// List más reciente primero; el orden de inserción desempata.
func (r *StockMovementRepo) List(_ context.Context, f repository.StockMovementFilter, limit, offset int) ([]*entity.StockMovement, int, error) {
	var (
		out   []*entity.StockMovement
		total int
	)
	err := r.a.do(func(d *dataset) error {
		var all []*entity.StockMovement
		for i := len(d.movements) - 1; i >= 0; i-- {
			m := d.movements[i]
			if f.ProductID != "" && m.ProductID != f.ProductID {
				continue
			}
			if f.Warehouse != "" && m.WarehouseLocation != f.Warehouse {
				continue
			}
			if f.Type != "" && m.Type != f.Type {
				continue
			}
			if f.ReferenceID != "" && m.ReferenceID != f.ReferenceID {
				continue
			}
			if f.From != nil && m.CreatedAt.Before(*f.From) {
				continue
			}
			if f.To != nil && m.CreatedAt.After(*f.To) {
				continue
			}
			x := *m
			all = append(all, &x)
		}
		total = len(all)
		out = paginate(all, limit, offset)
		return nil
	})
	return out, total, err
}

func (r *StockMovementRepo) ReservedQuantity(_ context.Context, productID, warehouse, referenceID string) (int, error) {
	var reserved int
	err := r.a.do(func(d *dataset) error {
		for _, m := range d.movements {
			if m.ProductID != productID || m.WarehouseLocation != warehouse || m.ReferenceID != referenceID {
				continue
			}
			// ALLOCATION y RELEASE registran el delta de available; CONSUME el de on_hand.
			switch m.Type {
			case entity.MovementAllocation, entity.MovementRelease:
				reserved -= m.Quantity
			case entity.MovementConsume:
				reserved += m.Quantity
			}
		}
		return nil
	})
	return reserved, err
}
