package inventory

import (
	"github.com/jhoicas/backoffice-api/internal/application/dto"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	"github.com/jhoicas/backoffice-api/internal/domain/inventory"
)

// ToMovementResponse convierte un movimiento del libro a DTO.
func ToMovementResponse(m *entity.StockMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:                m.ID,
		ProductID:         m.ProductID,
		WarehouseLocation: m.WarehouseLocation,
		Type:              string(m.Type),
		Quantity:          m.Quantity,
		PreviousQuantity:  m.PreviousQuantity,
		NewQuantity:       m.NewQuantity,
		Reason:            m.Reason,
		ReferenceID:       m.ReferenceID,
		CreatedBy:         m.CreatedBy,
		CreatedAt:         m.CreatedAt,
	}
}

// ToRecordResponse convierte un registro de inventario a DTO con su estado de stock derivado.
func ToRecordResponse(rec *entity.InventoryRecord) dto.InventoryRecordResponse {
	status := string(inventory.Classify(rec.QuantityAvailable, rec.ReorderLevel))
	if status == "" {
		status = "IN_STOCK"
	}
	return dto.InventoryRecordResponse{
		ID:                rec.ID,
		ProductID:         rec.ProductID,
		SKU:               rec.ProductSKU,
		ProductName:       rec.ProductName,
		WarehouseLocation: rec.WarehouseLocation,
		QuantityOnHand:    rec.QuantityOnHand,
		QuantityAllocated: rec.QuantityAllocated,
		QuantityAvailable: rec.QuantityAvailable,
		ReorderLevel:      rec.ReorderLevel,
		ReorderQuantity:   rec.ReorderQuantity,
		StockStatus:       status,
		LastMovementAt:    rec.LastMovementAt,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
}

// ToResponse convierte el resultado de una mutación a DTO.
func (r *MutationResult) ToResponse() dto.MutationResponse {
	out := dto.MutationResponse{
		ProductID:         r.ProductID,
		WarehouseLocation: r.Warehouse,
		Type:              string(r.Type),
		Before:            r.Before,
		After:             r.After,
	}
	if r.Movement != nil {
		m := ToMovementResponse(r.Movement)
		out.Movement = &m
	}
	return out
}

// ToResponse convierte el resultado de una asignación a DTO.
func (r *AllocationResult) ToResponse() dto.AllocationResponse {
	return dto.AllocationResponse{
		MutationResponse: r.MutationResult.ToResponse(),
		Success:          r.OK,
		Requested:        r.Requested,
		Shortfall:        r.Shortfall,
	}
}
