package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/backoffice-api/internal/domain"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
)

// InventoryRecordRepo implementa repository.InventoryRecordRepository.
type InventoryRecordRepo struct {
	a accessor
}

var _ repository.InventoryRecordRepository = (*InventoryRecordRepo)(nil)

func (r *InventoryRecordRepo) Create(_ context.Context, rec *entity.InventoryRecord) error {
	return r.a.do(func(d *dataset) error {
		k := recordKey{rec.ProductID, rec.WarehouseLocation}
		if _, ok := d.records[k]; ok {
			return domain.ErrDuplicate
		}
		if _, ok := d.products[rec.ProductID]; !ok {
			return domain.ErrNotFound
		}
		d.records[k] = copyRecord(rec)
		return nil
	})
}

func (r *InventoryRecordRepo) Get(_ context.Context, productID, warehouse string) (*entity.InventoryRecord, error) {
	var out *entity.InventoryRecord
	err := r.a.do(func(d *dataset) error {
		rec, ok := d.records[recordKey{productID, warehouse}]
		if !ok {
			return domain.ErrNotFound
		}
		out = d.joined(rec)
		return nil
	})
	return out, err
}

// GetForUpdate dentro de Run el mutex del store ya serializa la transacción completa.
func (r *InventoryRecordRepo) GetForUpdate(ctx context.Context, productID, warehouse string) (*entity.InventoryRecord, error) {
	return r.Get(ctx, productID, warehouse)
}

func (r *InventoryRecordRepo) UpdateBalance(_ context.Context, rec *entity.InventoryRecord) error {
	return r.a.do(func(d *dataset) error {
		cur, ok := d.records[recordKey{rec.ProductID, rec.WarehouseLocation}]
		if !ok {
			return domain.ErrNotFound
		}
		// Mismo CHECK que la tabla.
		if rec.QuantityOnHand < 0 || rec.QuantityAllocated < 0 || rec.QuantityAvailable < 0 ||
			rec.QuantityOnHand != rec.QuantityAllocated+rec.QuantityAvailable {
			return domain.ErrInvariantViolation
		}
		cur.QuantityOnHand = rec.QuantityOnHand
		cur.QuantityAllocated = rec.QuantityAllocated
		cur.QuantityAvailable = rec.QuantityAvailable
		cur.UpdatedAt = rec.UpdatedAt
		return nil
	})
}

func (r *InventoryRecordRepo) TouchLastMovement(_ context.Context, productID, warehouse string, at time.Time) error {
	return r.a.do(func(d *dataset) error {
		cur, ok := d.records[recordKey{productID, warehouse}]
		if !ok {
			return domain.ErrNotFound
		}
		cur.LastMovementAt = &at
		return nil
	})
}

func (r *InventoryRecordRepo) List(_ context.Context, f repository.InventoryRecordFilter, limit, offset int) ([]*entity.InventoryRecord, int, error) {
	var (
		out   []*entity.InventoryRecord
		total int
	)
	err := r.a.do(func(d *dataset) error {
		search := strings.ToLower(f.Search)
		var all []*entity.InventoryRecord
		for _, rec := range d.records {
			if f.Warehouse != "" && rec.WarehouseLocation != f.Warehouse {
				continue
			}
			if f.ProductID != "" && rec.ProductID != f.ProductID {
				continue
			}
			if f.LowStock && rec.QuantityAvailable > rec.ReorderLevel {
				continue
			}
			if f.OutOfStock && rec.QuantityAvailable != 0 {
				continue
			}
			j := d.joined(rec)
			if search != "" &&
				!strings.Contains(strings.ToLower(j.ProductSKU), search) &&
				!strings.Contains(strings.ToLower(j.ProductName), search) {
				continue
			}
			all = append(all, j)
		}
		sortRecords(all)
		total = len(all)
		out = paginate(all, limit, offset)
		return nil
	})
	return out, total, err
}

func (r *InventoryRecordRepo) ListBelowReorder(_ context.Context, warehouse string) ([]*entity.InventoryRecord, error) {
	var out []*entity.InventoryRecord
	err := r.a.do(func(d *dataset) error {
		for _, rec := range d.records {
			if warehouse != "" && rec.WarehouseLocation != warehouse {
				continue
			}
			if rec.QuantityAvailable == 0 || rec.QuantityAvailable <= rec.ReorderLevel {
				out = append(out, d.joined(rec))
			}
		}
		sortRecords(out)
		return nil
	})
	return out, err
}

func (r *InventoryRecordRepo) Stats(_ context.Context, warehouse string) (*repository.InventoryStats, error) {
	s := &repository.InventoryStats{Valuation: decimal.Zero}
	err := r.a.do(func(d *dataset) error {
		for _, rec := range d.records {
			if warehouse != "" && rec.WarehouseLocation != warehouse {
				continue
			}
			s.Records++
			s.OnHand += rec.QuantityOnHand
			s.Allocated += rec.QuantityAllocated
			s.Available += rec.QuantityAvailable
			switch {
			case rec.QuantityAvailable == 0:
				s.OutOfStock++
			case rec.QuantityAvailable <= rec.ReorderLevel:
				s.LowStock++
			}
			if p, ok := d.products[rec.ProductID]; ok {
				s.Valuation = s.Valuation.Add(p.Cost.Mul(decimal.NewFromInt(int64(rec.QuantityOnHand))))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// joined copia del registro con SKU y nombre del producto (equivalente al JOIN en postgres).
func (d *dataset) joined(rec *entity.InventoryRecord) *entity.InventoryRecord {
	out := copyRecord(rec)
	if p, ok := d.products[rec.ProductID]; ok {
		out.ProductSKU = p.SKU
		out.ProductName = p.Name
	}
	return out
}

func sortRecords(list []*entity.InventoryRecord) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].ProductSKU != list[j].ProductSKU {
			return list[i].ProductSKU < list[j].ProductSKU
		}
		return list[i].WarehouseLocation < list[j].WarehouseLocation
	})
}
