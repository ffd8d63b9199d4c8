package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/backoffice-api/internal/application/inventory"
)

// Options formato del archivo. Los exportes de hojas de cálculo en español suelen venir
// en ISO-8859-1 y separados por ';'.
type Options struct {
	Comma  rune // ',' por defecto
	Latin1 bool
}

// ErrMissingColumn el encabezado no trae una columna obligatoria.
var ErrMissingColumn = errors.New("csvimport: columna requerida ausente")

// ParseStockCount lee un conteo físico con encabezado sku, quantity y opcionalmente warehouse
// (sin distinguir mayúsculas). Las filas vacías se ignoran; la bodega vacía queda para el default.
func ParseStockCount(r io.Reader, opts Options) ([]inventory.StockCountLine, error) {
	if opts.Latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.Comma = ','
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("csvimport: encabezado: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	skuCol, ok := cols["sku"]
	if !ok {
		return nil, fmt.Errorf("%w: sku", ErrMissingColumn)
	}
	qtyCol, ok := cols["quantity"]
	if !ok {
		return nil, fmt.Errorf("%w: quantity", ErrMissingColumn)
	}
	whCol, hasWarehouse := cols["warehouse"]

	var out []inventory.StockCountLine
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvimport: línea %d: %w", line, err)
		}
		sku := field(rec, skuCol)
		if sku == "" && field(rec, qtyCol) == "" {
			continue
		}
		if sku == "" {
			return nil, fmt.Errorf("csvimport: línea %d: sku vacío", line)
		}
		qty, err := strconv.Atoi(field(rec, qtyCol))
		if err != nil || qty < 0 {
			return nil, fmt.Errorf("csvimport: línea %d: cantidad inválida %q", line, field(rec, qtyCol))
		}
		l := inventory.StockCountLine{Line: line, SKU: sku, Quantity: qty}
		if hasWarehouse {
			l.Warehouse = field(rec, whCol)
		}
		out = append(out, l)
	}
	return out, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
