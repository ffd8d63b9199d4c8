package order

import (
	"github.com/jhoicas/backoffice-api/internal/application/dto"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
)

func toAddress(a dto.AddressDTO) entity.Address {
	return entity.Address{
		Name:       a.Name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

func fromAddress(a entity.Address) dto.AddressDTO {
	return dto.AddressDTO{
		Name:       a.Name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

func toOrderResponse(o *entity.Order, items []*entity.OrderItem) dto.OrderResponse {
	out := dto.OrderResponse{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		CustomerID:         o.CustomerID,
		CustomerName:       o.CustomerName,
		CustomerEmail:      o.CustomerEmail,
		WarehouseLocation:  o.WarehouseLocation,
		Status:             string(o.Status),
		Subtotal:           o.Subtotal,
		TaxAmount:          o.TaxAmount,
		ShippingAmount:     o.ShippingAmount,
		Total:              o.Total,
		ShippingAddress:    fromAddress(o.ShippingAddress),
		BillingAddress:     fromAddress(o.BillingAddress),
		Notes:              o.Notes,
		CancellationReason: o.CancellationReason,
		CreatedBy:          o.CreatedBy,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		ShippedAt:          o.ShippedAt,
		DeliveredAt:        o.DeliveredAt,
		CancelledAt:        o.CancelledAt,
	}
	for _, it := range items {
		out.Items = append(out.Items, dto.OrderItemResponse{
			ID:              it.ID,
			ProductID:       it.ProductID,
			SKU:             it.SKU,
			ProductName:     it.ProductName,
			Quantity:        it.Quantity,
			QuantityShipped: it.QuantityShipped,
			UnitPrice:       it.UnitPrice,
			Subtotal:        it.Subtotal,
		})
	}
	return out
}
