package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/backoffice-api/internal/domain"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
)

// ProductRepo implementa repository.ProductRepository.
type ProductRepo struct {
	a accessor
}

var _ repository.ProductRepository = (*ProductRepo)(nil)

func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	return r.a.do(func(d *dataset) error {
		for _, existing := range d.products {
			if existing.SKU == p.SKU {
				return domain.ErrDuplicate
			}
		}
		if _, ok := d.products[p.ID]; ok {
			return domain.ErrDuplicate
		}
		d.products[p.ID] = copyProduct(p)
		return nil
	})
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	err := r.a.do(func(d *dataset) error {
		p, ok := d.products[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = copyProduct(p)
		return nil
	})
	return out, err
}

func (r *ProductRepo) GetBySKU(_ context.Context, sku string) (*entity.Product, error) {
	var out *entity.Product
	err := r.a.do(func(d *dataset) error {
		for _, p := range d.products {
			if p.SKU == sku {
				out = copyProduct(p)
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r *ProductRepo) List(_ context.Context, limit, offset int) ([]*entity.Product, int, error) {
	var (
		out   []*entity.Product
		total int
	)
	err := r.a.do(func(d *dataset) error {
		all := make([]*entity.Product, 0, len(d.products))
		for _, p := range d.products {
			all = append(all, copyProduct(p))
		}
		sort.Slice(all, func(i, j int) bool { return all[i].SKU < all[j].SKU })
		total = len(all)
		out = paginate(all, limit, offset)
		return nil
	})
	return out, total, err
}

func (r *ProductRepo) UpdateCost(_ context.Context, id string, cost decimal.Decimal) error {
	return r.a.do(func(d *dataset) error {
		p, ok := d.products[id]
		if !ok {
			return domain.ErrNotFound
		}
		p.Cost = cost
		return nil
	})
}
