package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/backoffice-api/internal/application/dto"
	"github.com/jhoicas/backoffice-api/internal/domain"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
)

// LedgerUseCase lectura de saldos por producto+bodega. La única escritura que expone es
// la apertura de un registro en cero; los saldos solo cambian a través del AllocationEngine.
type LedgerUseCase struct {
	records          repository.InventoryRecordRepository
	products         repository.ProductRepository
	defaultWarehouse string
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(records repository.InventoryRecordRepository, products repository.ProductRepository, defaultWarehouse string) *LedgerUseCase {
	if defaultWarehouse == "" {
		defaultWarehouse = "MAIN"
	}
	return &LedgerUseCase{records: records, products: products, defaultWarehouse: defaultWarehouse}
}

// GetByProduct devuelve el saldo del producto en la bodega (por defecto la principal).
func (uc *LedgerUseCase) GetByProduct(ctx context.Context, productID, warehouse string) (*dto.InventoryRecordResponse, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	if warehouse = strings.TrimSpace(warehouse); warehouse == "" {
		warehouse = uc.defaultWarehouse
	}
	rec, err := uc.records.Get(ctx, productID, warehouse)
	if err != nil {
		return nil, err
	}
	out := ToRecordResponse(rec)
	return &out, nil
}

// List listado paginado con filtros.
func (uc *LedgerUseCase) List(ctx context.Context, filter repository.InventoryRecordFilter, page dto.PageRequest) (*dto.InventoryListResponse, error) {
	page.DefaultPage()
	filter.Search = strings.TrimSpace(filter.Search)
	list, total, err := uc.records.List(ctx, filter, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.InventoryRecordResponse, 0, len(list))
	for _, rec := range list {
		items = append(items, ToRecordResponse(rec))
	}
	return &dto.InventoryListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}, nil
}

// Stats totales y valorización (on_hand × costo promedio) de una bodega o de todas.
func (uc *LedgerUseCase) Stats(ctx context.Context, warehouse string) (*dto.InventoryStatsResponse, error) {
	warehouse = strings.TrimSpace(warehouse)
	s, err := uc.records.Stats(ctx, warehouse)
	if err != nil {
		return nil, err
	}
	return &dto.InventoryStatsResponse{
		WarehouseLocation: warehouse,
		Records:           s.Records,
		TotalOnHand:       s.OnHand,
		TotalAllocated:    s.Allocated,
		TotalAvailable:    s.Available,
		LowStock:          s.LowStock,
		OutOfStock:        s.OutOfStock,
		Valuation:         s.Valuation,
	}, nil
}

// CreateRecord abre el registro del producto en una bodega adicional con saldo cero.
// ErrDuplicate (Conflict) si ya existe.
func (uc *LedgerUseCase) CreateRecord(ctx context.Context, in dto.CreateInventoryRecordRequest) (*dto.InventoryRecordResponse, error) {
	warehouse := strings.TrimSpace(in.WarehouseLocation)
	if in.ProductID == "" || warehouse == "" {
		return nil, fmt.Errorf("%w: product_id y warehouse_location requeridos", domain.ErrInvalidInput)
	}
	if in.ReorderLevel < 0 || in.ReorderQuantity < 0 {
		return nil, fmt.Errorf("%w: niveles de reorden negativos", domain.ErrInvalidInput)
	}
	product, err := uc.products.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	rec := NewZeroRecord(product, warehouse, time.Now().UTC())
	rec.ReorderLevel = in.ReorderLevel
	rec.ReorderQuantity = in.ReorderQuantity
	if err := uc.records.Create(ctx, rec); err != nil {
		return nil, err
	}
	out := ToRecordResponse(rec)
	return &out, nil
}

// NewZeroRecord registro en cero para un producto; hereda los niveles de reorden del producto.
func NewZeroRecord(product *entity.Product, warehouse string, now time.Time) *entity.InventoryRecord {
	return &entity.InventoryRecord{
		ID:                uuid.New().String(),
		ProductID:         product.ID,
		WarehouseLocation: warehouse,
		ReorderLevel:      product.ReorderLevel,
		ReorderQuantity:   product.ReorderQuantity,
		CreatedAt:         now,
		UpdatedAt:         now,
		ProductSKU:        product.SKU,
		ProductName:       product.Name,
	}
}
