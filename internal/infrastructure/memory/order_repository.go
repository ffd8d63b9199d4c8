package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/backoffice-api/internal/domain"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
)

// OrderRepo implementa repository.OrderRepository.
type OrderRepo struct {
	a accessor
}

var _ repository.OrderRepository = (*OrderRepo)(nil)

func (r *OrderRepo) Create(_ context.Context, o *entity.Order) error {
	return r.a.do(func(d *dataset) error {
		if _, ok := d.orders[o.ID]; ok {
			return domain.ErrDuplicate
		}
		for _, existing := range d.orders {
			if existing.OrderNumber == o.OrderNumber {
				return domain.ErrDuplicate
			}
		}
		d.orders[o.ID] = copyOrder(o)
		return nil
	})
}

func (r *OrderRepo) CreateItem(_ context.Context, it *entity.OrderItem) error {
	return r.a.do(func(d *dataset) error {
		if _, ok := d.orders[it.OrderID]; !ok {
			return domain.ErrNotFound
		}
		x := *it
		d.items[it.OrderID] = append(d.items[it.OrderID], &x)
		return nil
	})
}

func (r *OrderRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	var out *entity.Order
	err := r.a.do(func(d *dataset) error {
		o, ok := d.orders[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = copyOrder(o)
		return nil
	})
	return out, err
}

func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *OrderRepo) GetItems(_ context.Context, orderID string) ([]*entity.OrderItem, error) {
	var out []*entity.OrderItem
	err := r.a.do(func(d *dataset) error {
		for _, it := range d.items[orderID] {
			x := *it
			out = append(out, &x)
		}
		return nil
	})
	return out, err
}

func (r *OrderRepo) Update(_ context.Context, o *entity.Order) error {
	return r.a.do(func(d *dataset) error {
		if _, ok := d.orders[o.ID]; !ok {
			return domain.ErrNotFound
		}
		d.orders[o.ID] = copyOrder(o)
		return nil
	})
}

func (r *OrderRepo) UpdateItemShipped(_ context.Context, itemID string, quantityShipped int) error {
	return r.a.do(func(d *dataset) error {
		for _, list := range d.items {
			for _, it := range list {
				if it.ID == itemID {
					it.QuantityShipped = quantityShipped
					return nil
				}
			}
		}
		return domain.ErrNotFound
	})
}

func (r *OrderRepo) List(_ context.Context, f repository.OrderFilter, limit, offset int) ([]*entity.Order, int, error) {
	var (
		out   []*entity.Order
		total int
	)
	err := r.a.do(func(d *dataset) error {
		var all []*entity.Order
		for _, o := range d.orders {
			if f.Status != "" && o.Status != f.Status {
				continue
			}
			if f.CustomerID != "" && o.CustomerID != f.CustomerID {
				continue
			}
			all = append(all, copyOrder(o))
		}
		sort.Slice(all, func(i, j int) bool {
			if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
				return all[i].CreatedAt.After(all[j].CreatedAt)
			}
			return all[i].OrderNumber > all[j].OrderNumber
		})
		total = len(all)
		out = paginate(all, limit, offset)
		return nil
	})
	return out, total, err
}

func (r *OrderRepo) AddStatusChange(_ context.Context, c *entity.OrderStatusChange) error {
	return r.a.do(func(d *dataset) error {
		x := *c
		d.history[c.OrderID] = append(d.history[c.OrderID], &x)
		return nil
	})
}

func (r *OrderRepo) ListStatusChanges(_ context.Context, orderID string) ([]*entity.OrderStatusChange, error) {
	var out []*entity.OrderStatusChange
	err := r.a.do(func(d *dataset) error {
		for _, c := range d.history[orderID] {
			x := *c
			out = append(out, &x)
		}
		return nil
	})
	return out, err
}
