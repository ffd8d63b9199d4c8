package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo. El catálogo completo vive fuera de este servicio;
// aquí solo lo necesario para precios, valorización y puntos de reorden.
type Product struct {
	ID              string
	SKU             string // código único
	Name            string
	Description     string
	Price           decimal.Decimal // precio de venta
	Cost            decimal.Decimal // costo promedio ponderado (inicia en 0)
	ReorderLevel    int             // valor por defecto para nuevos registros de inventario
	ReorderQuantity int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
