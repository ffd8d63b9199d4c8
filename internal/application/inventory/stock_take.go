package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
)

// StockCountLine una fila del conteo físico: cantidad contada de un SKU en una bodega.
type StockCountLine struct {
	Line      int
	SKU       string
	Warehouse string
	Quantity  int
}

// StockTakeFailure fila que no se pudo aplicar.
type StockTakeFailure struct {
	Line  int
	SKU   string
	Error string
}

// StockTakeResult resumen de la carga.
type StockTakeResult struct {
	Applied  int
	Failures []StockTakeFailure
}

// StockTake aplica un conteo físico como ajustes SET, uno por fila y cada uno en su propia transacción.
// Una fila fallida no detiene las demás.
type StockTake struct {
	engine   *AllocationEngine
	products repository.ProductRepository
	log      zerolog.Logger
}

// NewStockTake construye el importador.
func NewStockTake(engine *AllocationEngine, products repository.ProductRepository, log zerolog.Logger) *StockTake {
	return &StockTake{engine: engine, products: products, log: log}
}

// Apply fija on_hand de cada fila al valor contado. reason se guarda en cada movimiento.
func (s *StockTake) Apply(ctx context.Context, lines []StockCountLine, actorID, reason string) *StockTakeResult {
	if strings.TrimSpace(reason) == "" {
		reason = "conteo físico"
	}
	out := &StockTakeResult{}
	fail := func(l StockCountLine, err error) {
		out.Failures = append(out.Failures, StockTakeFailure{Line: l.Line, SKU: l.SKU, Error: err.Error()})
		s.log.Warn().Int("line", l.Line).Str("sku", l.SKU).Err(err).Msg("fila de conteo rechazada")
	}
	for _, l := range lines {
		if err := ctx.Err(); err != nil {
			fail(l, err)
			continue
		}
		product, err := s.products.GetBySKU(ctx, l.SKU)
		if err != nil {
			fail(l, fmt.Errorf("sku %s: %w", l.SKU, err))
			continue
		}
		_, err = s.engine.Adjust(ctx, AdjustInput{
			ProductID: product.ID,
			Warehouse: l.Warehouse,
			Type:      entity.MovementSet,
			Quantity:  l.Quantity,
			Reason:    reason,
			ActorID:   actorID,
		})
		if err != nil {
			fail(l, err)
			continue
		}
		out.Applied++
	}
	s.log.Info().Int("applied", out.Applied).Int("failed", len(out.Failures)).Msg("conteo físico aplicado")
	return out
}
