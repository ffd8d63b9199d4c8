package ports

import (
	"context"

	"github.com/jhoicas/backoffice-api/internal/domain/entity"
)

// MovementExporter puerto de salida para exportar el libro de movimientos a un archivo.
// La aplicación solo conoce el contrato; la implementación (xlsx, csv) vive en infraestructura.
type MovementExporter interface {
	// ExportMovements devuelve los bytes del archivo y su nombre sugerido.
	ExportMovements(ctx context.Context, movements []*entity.StockMovement) (data []byte, filename string, err error)
}

// PackingSlipRenderer genera la guía de despacho (PDF) de un pedido.
type PackingSlipRenderer interface {
	RenderPackingSlip(ctx context.Context, order *entity.Order, items []*entity.OrderItem) ([]byte, error)
}
