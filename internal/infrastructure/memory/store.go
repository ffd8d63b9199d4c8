// Package memory implementa los puertos de repositorio sobre mapas en memoria.
// Se usa en tests y con DB_DRIVER=memory para desarrollo local.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
)

type recordKey struct {
	productID string
	warehouse string
}

// dataset estado completo del store. Una transacción trabaja sobre un clon y lo
// reemplaza al confirmar; si falla el clon se descarta.
type dataset struct {
	products  map[string]*entity.Product
	records   map[recordKey]*entity.InventoryRecord
	movements []*entity.StockMovement
	orders    map[string]*entity.Order
	items     map[string][]*entity.OrderItem
	history   map[string][]*entity.OrderStatusChange
	users     map[string]*entity.User
}

func newDataset() *dataset {
	return &dataset{
		products: make(map[string]*entity.Product),
		records:  make(map[recordKey]*entity.InventoryRecord),
		orders:   make(map[string]*entity.Order),
		items:    make(map[string][]*entity.OrderItem),
		history:  make(map[string][]*entity.OrderStatusChange),
		users:    make(map[string]*entity.User),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.products {
		c.products[k] = copyProduct(v)
	}
	for k, v := range d.records {
		c.records[k] = copyRecord(v)
	}
	// Los movimientos son inmutables: basta con copiar el slice.
	c.movements = append(make([]*entity.StockMovement, 0, len(d.movements)), d.movements...)
	for k, v := range d.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, list := range d.items {
		cp := make([]*entity.OrderItem, len(list))
		for i, it := range list {
			x := *it
			cp[i] = &x
		}
		c.items[k] = cp
	}
	for k, list := range d.history {
		c.history[k] = append([]*entity.OrderStatusChange(nil), list...)
	}
	for k, v := range d.users {
		u := *v
		c.users[k] = &u
	}
	return c
}

// accessor abstrae si el repo corre dentro de una transacción (estado ya bloqueado)
// o fuera de ella (bloquea por llamada).
type accessor interface {
	do(fn func(d *dataset) error) error
}

type txAccessor struct{ d *dataset }

func (a txAccessor) do(fn func(d *dataset) error) error { return fn(a.d) }

type storeAccessor struct{ s *Store }

func (a storeAccessor) do(fn func(d *dataset) error) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return fn(a.s.data)
}

// Store almacén en memoria. Un único mutex serializa transacciones y lecturas,
// lo que equivale a bloquear cada fila durante toda la transacción.
type Store struct {
	mu   sync.Mutex
	data *dataset
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{data: newDataset()}
}

// Run ejecuta fn sobre una copia del estado; confirma reemplazando el estado si fn no falla.
func (s *Store) Run(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.data.clone()
	if err := fn(reposFor(txAccessor{d: work})); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Repos repositorios fuera de transacción. No deben usarse dentro de un Run (el mutex no es reentrante).
func (s *Store) Repos() repository.TxRepos {
	return reposFor(storeAccessor{s: s})
}

// Users repositorio de usuarios.
func (s *Store) Users() repository.UserRepository {
	return &UserRepo{a: storeAccessor{s: s}}
}

func reposFor(a accessor) repository.TxRepos {
	return repository.TxRepos{
		Inventory: &InventoryRecordRepo{a: a},
		Movements: &StockMovementRepo{a: a},
		Products:  &ProductRepo{a: a},
		Orders:    &OrderRepo{a: a},
	}
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyProduct(p *entity.Product) *entity.Product {
	x := *p
	return &x
}

func copyRecord(r *entity.InventoryRecord) *entity.InventoryRecord {
	x := *r
	x.LastMovementAt = copyPtr(r.LastMovementAt)
	return &x
}

func copyOrder(o *entity.Order) *entity.Order {
	x := *o
	x.ShippedAt = copyPtr(o.ShippedAt)
	x.DeliveredAt = copyPtr(o.DeliveredAt)
	x.CancelledAt = copyPtr(o.CancelledAt)
	return &x
}

func paginate[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return []T{}
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end]
}
