package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/backoffice-api/internal/application/dto"
	"github.com/jhoicas/backoffice-api/internal/application/inventory"
	"github.com/jhoicas/backoffice-api/internal/domain"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
)

// InventoryHandler saldos, ajustes, asignaciones, alertas y libro de movimientos (protegido).
type InventoryHandler struct {
	engine   *inventory.AllocationEngine
	ledger   *inventory.LedgerUseCase
	recorder *inventory.MovementRecorder
	monitor  *inventory.ReorderMonitor
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(
	engine *inventory.AllocationEngine,
	ledger *inventory.LedgerUseCase,
	recorder *inventory.MovementRecorder,
	monitor *inventory.ReorderMonitor,
) *InventoryHandler {
	return &InventoryHandler{engine: engine, ledger: ledger, recorder: recorder, monitor: monitor}
}

// List godoc
// @Summary      Listar saldos de inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse     query  string  false  "Bodega"
// @Param        product_id    query  string  false  "Producto"
// @Param        search        query  string  false  "SKU o nombre"
// @Param        low_stock     query  bool    false  "Solo available <= reorder_level"
// @Param        out_of_stock  query  bool    false  "Solo available = 0"
// @Param        limit         query  int     false  "Máximo 100"
// @Param        offset        query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.InventoryListResponse
// @Router       /api/inventory [get]
func (h *InventoryHandler) List(c *fiber.Ctx) error {
	page, err := pageFromQuery(c)
	if err != nil {
		return badQuery(c, err.Error())
	}
	filter := repository.InventoryRecordFilter{
		Warehouse:  strings.TrimSpace(c.Query("warehouse")),
		ProductID:  c.Query("product_id"),
		Search:     c.Query("search"),
		LowStock:   c.QueryBool("low_stock"),
		OutOfStock: c.QueryBool("out_of_stock"),
	}
	out, err := h.ledger.List(c.Context(), filter, page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Get godoc
// @Summary      Saldo de un producto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  path   string  true   "ID del producto"
// @Param        warehouse   query  string  false  "Bodega (por defecto MAIN)"
// @Success      200  {object}  dto.InventoryRecordResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{product_id} [get]
func (h *InventoryHandler) Get(c *fiber.Ctx) error {
	out, err := h.ledger.GetByProduct(c.Context(), c.Params("product_id"), c.Query("warehouse"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Stats godoc
// @Summary      Totales y valorización del inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse  query  string  false  "Bodega; vacío = todas"
// @Success      200  {object}  dto.InventoryStatsResponse
// @Router       /api/inventory/stats [get]
func (h *InventoryHandler) Stats(c *fiber.Ctx) error {
	out, err := h.ledger.Stats(c.Context(), c.Query("warehouse"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// CreateRecord godoc
// @Summary      Abrir registro en otra bodega
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateInventoryRecordRequest  true  "product_id, warehouse_location, niveles de reorden"
// @Success      201  {object}  dto.InventoryRecordResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/records [post]
func (h *InventoryHandler) CreateRecord(c *fiber.Ctx) error {
	var in dto.CreateInventoryRecordRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	out, err := h.ledger.CreateRecord(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Adjust godoc
// @Summary      Ajustar inventario (INCREASE, DECREASE, SET)
// @Description  Un DECREASE o SET que deje el físico por debajo de lo asignado se rechaza con 409; details lleva el saldo actual.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustInventoryRequest  true  "product_id, type, quantity, reason, unit_cost (solo INCREASE)"
// @Success      200  {object}  dto.MutationResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/adjust [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustInventoryRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	res, err := h.engine.Adjust(c.Context(), inventory.AdjustInput{
		ProductID: in.ProductID,
		Warehouse: in.WarehouseLocation,
		Type:      entity.MovementType(in.Type),
		Quantity:  in.Quantity,
		Reason:    in.Reason,
		ActorID:   GetUserID(c),
		UnitCost:  in.UnitCost,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			if cur, getErr := h.ledger.GetByProduct(c.Context(), in.ProductID, in.WarehouseLocation); getErr == nil {
				return writeErrorWithDetails(c, err, cur)
			}
		}
		return writeError(c, err)
	}
	return c.JSON(res.ToResponse())
}

// Allocate godoc
// @Summary      Reservar unidades
// @Description  Con stock insuficiente responde 422; details lleva el faltante y el saldo sin cambios.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReservationRequest  true  "product_id, quantity, reference_id"
// @Success      200  {object}  dto.AllocationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/inventory/allocate [post]
func (h *InventoryHandler) Allocate(c *fiber.Ctx) error {
	var in dto.ReservationRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	res, err := h.engine.Allocate(c.Context(), reservationInput(c, in))
	if err != nil {
		return writeError(c, err)
	}
	if !res.OK {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Code:    "INSUFFICIENT_STOCK",
			Message: "stock insuficiente",
			Details: res.ToResponse(),
		})
	}
	return c.JSON(res.ToResponse())
}

// Release godoc
// @Summary      Liberar una reserva
// @Description  Solo libera lo asignado bajo reference_id; pedir más libera ese saldo.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReservationRequest  true  "product_id, quantity, reference_id"
// @Success      200  {object}  dto.MutationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/release [post]
func (h *InventoryHandler) Release(c *fiber.Ctx) error {
	var in dto.ReservationRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	res, err := h.engine.Release(c.Context(), reservationInput(c, in))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res.ToResponse())
}

// CheckAvailability godoc
// @Summary      Verificar disponibilidad de varias líneas
// @Description  Solo lectura: no reserva nada.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CheckAvailabilityRequest  true  "warehouse_location, items"
// @Success      200  {object}  dto.AvailabilityResponse
// @Router       /api/inventory/check-availability [post]
func (h *InventoryHandler) CheckAvailability(c *fiber.Ctx) error {
	var in dto.CheckAvailabilityRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	out, err := h.engine.CheckAvailability(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Alerts godoc
// @Summary      Alertas de reorden
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse     query  string  false  "Bodega"
// @Param        min_severity  query  string  false  "OUT_OF_STOCK, CRITICAL o LOW (por defecto)"
// @Success      200  {array}  dto.ReorderAlertDTO
// @Router       /api/inventory/alerts [get]
func (h *InventoryHandler) Alerts(c *fiber.Ctx) error {
	out, err := h.monitor.Alerts(c.Context(), c.Query("warehouse"), c.Query("min_severity"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ReplenishmentList godoc
// @Summary      Lista de reposición
// @Description  Cantidad sugerida y costo estimado por cada registro bajo su nivel de reorden, por prioridad.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse  query  string  false  "Bodega; vacío = todas"
// @Success      200  {array}  dto.ReplenishmentSuggestionDTO
// @Router       /api/inventory/replenishment-list [get]
func (h *InventoryHandler) ReplenishmentList(c *fiber.Ctx) error {
	out, err := h.monitor.ReplenishmentSuggestions(c.Context(), c.Query("warehouse"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Movements godoc
// @Summary      Historial de movimientos
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  false  "Producto"
// @Param        warehouse     query  string  false  "Bodega"
// @Param        type          query  string  false  "INCREASE, DECREASE, SET, ALLOCATION, RELEASE, CONSUME"
// @Param        reference_id  query  string  false  "Referencia (p. ej. ID del pedido)"
// @Param        from          query  string  false  "RFC3339 o YYYY-MM-DD"
// @Param        to            query  string  false  "RFC3339 o YYYY-MM-DD"
// @Param        limit         query  int     false  "Máximo 100"
// @Param        offset        query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.MovementListResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) Movements(c *fiber.Ctx) error {
	filter, err := movementFilter(c)
	if err != nil {
		return badQuery(c, err.Error())
	}
	page, err := pageFromQuery(c)
	if err != nil {
		return badQuery(c, err.Error())
	}
	out, err := h.recorder.List(c.Context(), filter, page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ExportMovements godoc
// @Summary      Exportar historial de movimientos a Excel
// @Tags         inventory
// @Security     Bearer
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        product_id    query  string  false  "Producto"
// @Param        warehouse     query  string  false  "Bodega"
// @Param        type          query  string  false  "Tipo de movimiento"
// @Param        from          query  string  false  "RFC3339 o YYYY-MM-DD"
// @Param        to            query  string  false  "RFC3339 o YYYY-MM-DD"
// @Success      200  {file}  binary
// @Router       /api/inventory/movements/export [get]
func (h *InventoryHandler) ExportMovements(c *fiber.Ctx) error {
	filter, err := movementFilter(c)
	if err != nil {
		return badQuery(c, err.Error())
	}
	data, filename, err := h.recorder.Export(c.Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Attachment(filename)
	return c.Send(data)
}

func reservationInput(c *fiber.Ctx, in dto.ReservationRequest) inventory.ReservationInput {
	return inventory.ReservationInput{
		ProductID:   in.ProductID,
		Warehouse:   in.WarehouseLocation,
		Quantity:    in.Quantity,
		ReferenceID: in.ReferenceID,
		Reason:      in.Reason,
		ActorID:     GetUserID(c),
	}
}

func movementFilter(c *fiber.Ctx) (repository.StockMovementFilter, error) {
	from, err := timeQuery(c, "from", false)
	if err != nil {
		return repository.StockMovementFilter{}, err
	}
	to, err := timeQuery(c, "to", true)
	if err != nil {
		return repository.StockMovementFilter{}, err
	}
	return repository.StockMovementFilter{
		ProductID:   c.Query("product_id"),
		Warehouse:   strings.TrimSpace(c.Query("warehouse")),
		Type:        entity.MovementType(strings.ToUpper(c.Query("type"))),
		ReferenceID: c.Query("reference_id"),
		From:        from,
		To:          to,
	}, nil
}
