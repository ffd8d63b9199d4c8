package repository

import (
	"context"

	"github.com/jhoicas/backoffice-api/internal/domain/entity"
)

// OrderFilter filtros del listado de pedidos.
type OrderFilter struct {
	Status     entity.OrderStatus
	CustomerID string
}

// OrderRepository puerto de persistencia de pedidos, líneas e historial de estados.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	CreateItem(ctx context.Context, item *entity.OrderItem) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	// GetByIDForUpdate bloquea la cabecera para serializar cambios de estado del mismo pedido.
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Order, error)
	GetItems(ctx context.Context, orderID string) ([]*entity.OrderItem, error)
	Update(ctx context.Context, order *entity.Order) error
	UpdateItemShipped(ctx context.Context, itemID string, quantityShipped int) error
	List(ctx context.Context, filter OrderFilter, limit, offset int) ([]*entity.Order, int, error)
	AddStatusChange(ctx context.Context, change *entity.OrderStatusChange) error
	ListStatusChanges(ctx context.Context, orderID string) ([]*entity.OrderStatusChange, error)
}
