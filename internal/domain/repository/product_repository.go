package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/backoffice-api/internal/domain/entity"
)

// ProductRepository puerto de persistencia de productos (solo lo que necesita el inventario).
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Product, int, error)
	UpdateCost(ctx context.Context, id string, cost decimal.Decimal) error
}
