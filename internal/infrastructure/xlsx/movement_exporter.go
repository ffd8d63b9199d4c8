// Package xlsx exporta el libro de movimientos a Excel con excelize.
package xlsx

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/backoffice-api/internal/application/ports"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
)

const sheetName = "Movimientos"

var movementHeaders = []any{
	"Fecha", "Producto", "Bodega", "Tipo", "Cantidad", "Anterior", "Nuevo", "Motivo", "Referencia", "Usuario",
}

var _ ports.MovementExporter = (*MovementExporter)(nil)

// MovementExporter implementa ports.MovementExporter.
type MovementExporter struct {
	now func() time.Time
}

// NewMovementExporter construye el exportador.
func NewMovementExporter() *MovementExporter {
	return &MovementExporter{now: time.Now}
}

// ExportMovements una fila por movimiento, en el orden recibido, con fila de encabezado congelada.
func (e *MovementExporter) ExportMovements(ctx context.Context, movements []*entity.StockMovement) ([]byte, string, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, "", fmt.Errorf("xlsx: renombrar hoja: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &movementHeaders); err != nil {
		return nil, "", fmt.Errorf("xlsx: encabezados: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, "", fmt.Errorf("xlsx: estilo: %w", err)
	}
	_ = f.SetRowStyle(sheetName, 1, 1, bold)
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i, m := range movements {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, "", err
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, "", err
		}
		values := []any{
			m.CreatedAt.UTC().Format(time.RFC3339),
			m.ProductID,
			m.WarehouseLocation,
			string(m.Type),
			m.Quantity,
			m.PreviousQuantity,
			m.NewQuantity,
			m.Reason,
			m.ReferenceID,
			m.CreatedBy,
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, "", fmt.Errorf("xlsx: fila %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(sheetName, "A", "A", 22)
	_ = f.SetColWidth(sheetName, "B", "B", 38)
	_ = f.SetColWidth(sheetName, "H", "H", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("xlsx: escribir: %w", err)
	}
	filename := fmt.Sprintf("movimientos-%s.xlsx", e.now().UTC().Format("20060102-150405"))
	return buf.Bytes(), filename, nil
}
