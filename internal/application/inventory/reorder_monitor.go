package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/backoffice-api/internal/application/dto"
	"github.com/jhoicas/backoffice-api/internal/domain"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	"github.com/jhoicas/backoffice-api/internal/domain/inventory"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
)

// ReorderMonitor calcula alertas de reorden al leer el ledger. No persiste nada ni corre en segundo plano.
type ReorderMonitor struct {
	records  repository.InventoryRecordRepository
	products repository.ProductRepository
}

// NewReorderMonitor construye el monitor.
func NewReorderMonitor(records repository.InventoryRecordRepository, products repository.ProductRepository) *ReorderMonitor {
	return &ReorderMonitor{records: records, products: products}
}

// Alerts registros bajo su nivel de reorden con severidad igual o mayor a minSeverity
// (vacío = todas). Ordenadas por severidad y luego por disponible ascendente.
func (m *ReorderMonitor) Alerts(ctx context.Context, warehouse, minSeverity string) ([]dto.ReorderAlertDTO, error) {
	threshold, ok := inventory.ParseSeverity(strings.ToUpper(strings.TrimSpace(minSeverity)))
	if !ok {
		return nil, fmt.Errorf("%w: severidad desconocida %q", domain.ErrInvalidInput, minSeverity)
	}
	recs, err := m.records.ListBelowReorder(ctx, strings.TrimSpace(warehouse))
	if err != nil {
		return nil, err
	}
	alerts := make([]dto.ReorderAlertDTO, 0, len(recs))
	for _, rec := range recs {
		sev := inventory.Classify(rec.QuantityAvailable, rec.ReorderLevel)
		if sev == inventory.SeverityNone || !sev.AtLeast(threshold) {
			continue
		}
		alerts = append(alerts, toAlert(rec, sev))
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		ra, rb := inventory.Severity(a.Severity).Rank(), inventory.Severity(b.Severity).Rank()
		if ra != rb {
			return ra < rb
		}
		if a.QuantityAvailable != b.QuantityAvailable {
			return a.QuantityAvailable < b.QuantityAvailable
		}
		return a.SKU < b.SKU
	})
	return alerts, nil
}

// ReplenishmentSuggestions lista de reposición: por cada alerta, cantidad sugerida =
// max(reorder_quantity, reorder_level × 1.5 − available) y costo estimado al costo promedio.
func (m *ReorderMonitor) ReplenishmentSuggestions(ctx context.Context, warehouse string) ([]dto.ReplenishmentSuggestionDTO, error) {
	alerts, err := m.Alerts(ctx, warehouse, "")
	if err != nil {
		return nil, err
	}
	if len(alerts) == 0 {
		return []dto.ReplenishmentSuggestionDTO{}, nil
	}

	costs := make(map[string]decimal.Decimal, len(alerts))
	out := make([]dto.ReplenishmentSuggestionDTO, 0, len(alerts))
	for _, a := range alerts {
		cost, seen := costs[a.ProductID]
		if !seen {
			p, err := m.products.GetByID(ctx, a.ProductID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				cost = decimal.Zero
			case err != nil:
				return nil, err
			default:
				cost = p.Cost
			}
			costs[a.ProductID] = cost
		}

		ideal := decimal.NewFromInt(int64(a.ReorderLevel)).Mul(decimal.NewFromFloat(1.5)).Ceil().IntPart()
		qty := int(ideal) - a.QuantityAvailable
		if qty < a.ReorderQuantity {
			qty = a.ReorderQuantity
		}
		if qty < 0 {
			qty = 0
		}
		out = append(out, dto.ReplenishmentSuggestionDTO{
			ReorderAlertDTO:    a,
			IdealStock:         int(ideal),
			SuggestedOrderQty:  qty,
			UnitCost:           cost,
			EstimatedOrderCost: cost.Mul(decimal.NewFromInt(int64(qty))),
		})
	}
	// Ya vienen ordenadas por urgencia.
	for i := range out {
		out[i].Priority = i + 1
	}
	return out, nil
}

func toAlert(rec *entity.InventoryRecord, sev inventory.Severity) dto.ReorderAlertDTO {
	return dto.ReorderAlertDTO{
		ProductID:         rec.ProductID,
		SKU:               rec.ProductSKU,
		ProductName:       rec.ProductName,
		WarehouseLocation: rec.WarehouseLocation,
		QuantityOnHand:    rec.QuantityOnHand,
		QuantityAllocated: rec.QuantityAllocated,
		QuantityAvailable: rec.QuantityAvailable,
		ReorderLevel:      rec.ReorderLevel,
		ReorderQuantity:   rec.ReorderQuantity,
		Severity:          string(sev),
	}
}
