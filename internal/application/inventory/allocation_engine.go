package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/backoffice-api/internal/application/dto"
	"github.com/jhoicas/backoffice-api/internal/domain"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	"github.com/jhoicas/backoffice-api/internal/domain/inventory"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
)

var tracer = otel.Tracer("github.com/jhoicas/backoffice-api/internal/application/inventory")

// AdjustInput ajuste manual (INCREASE, DECREASE o SET). UnitCost solo aplica a INCREASE
// y recalcula el costo promedio ponderado del producto.
type AdjustInput struct {
	ProductID string
	Warehouse string
	Type      entity.MovementType
	Quantity  int
	Reason    string
	ActorID   string
	UnitCost  *decimal.Decimal
}

// ReservationInput entrada de asignación, liberación o despacho. ReferenceID suele ser el ID del pedido.
type ReservationInput struct {
	ProductID   string
	Warehouse   string
	Quantity    int
	ReferenceID string
	Reason      string
	ActorID     string
}

// MutationResult saldos antes y después de una operación y el movimiento escrito
// (nil si la operación no cambió el saldo).
type MutationResult struct {
	ProductID string
	Warehouse string
	Type      entity.MovementType
	Before    inventory.Balance
	After     inventory.Balance
	Movement  *entity.StockMovement
}

// AllocationResult resultado de una asignación. Con OK=false no se escribió nada y
// Shortfall indica cuántas unidades faltaron.
type AllocationResult struct {
	MutationResult
	OK        bool
	Requested int
	Shortfall int
}

// AllocationEngine único punto de escritura de saldos: ajustes, asignaciones, liberaciones
// y despachos. Cada operación bloquea la fila (SELECT FOR UPDATE), aplica la variante de
// movimiento, valida la invariante y registra el movimiento en la misma transacción.
type AllocationEngine struct {
	txRunner         TxRunner
	records          repository.InventoryRecordRepository
	recorder         *MovementRecorder
	defaultWarehouse string
	log              zerolog.Logger
	now              func() time.Time
}

// NewAllocationEngine construye el motor. records se usa solo para lecturas fuera de transacción.
func NewAllocationEngine(
	txRunner TxRunner,
	records repository.InventoryRecordRepository,
	recorder *MovementRecorder,
	defaultWarehouse string,
	log zerolog.Logger,
) *AllocationEngine {
	if defaultWarehouse == "" {
		defaultWarehouse = "MAIN"
	}
	return &AllocationEngine{
		txRunner:         txRunner,
		records:          records,
		recorder:         recorder,
		defaultWarehouse: defaultWarehouse,
		log:              log,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// DefaultWarehouse bodega usada cuando la entrada no indica una.
func (e *AllocationEngine) DefaultWarehouse() string {
	return e.defaultWarehouse
}

func (e *AllocationEngine) warehouse(w string) string {
	if w = strings.TrimSpace(w); w != "" {
		return w
	}
	return e.defaultWarehouse
}

// Adjust aplica un ajuste manual en su propia transacción.
func (e *AllocationEngine) Adjust(ctx context.Context, in AdjustInput) (res *MutationResult, err error) {
	ctx, span := e.startSpan(ctx, "inventory.Adjust", in.ProductID, in.Warehouse, in.Quantity)
	defer func() { endSpan(span, err) }()

	kind, err := inventory.AdjustmentKind(in.Type)
	if err != nil {
		return nil, err
	}
	if in.ProductID == "" {
		return nil, fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, fmt.Errorf("%w: el ajuste requiere un motivo", domain.ErrInvalidInput)
	}
	if in.UnitCost != nil && (in.Type != entity.MovementIncrease || in.UnitCost.IsNegative()) {
		return nil, fmt.Errorf("%w: unit_cost solo aplica a INCREASE y no puede ser negativo", domain.ErrInvalidInput)
	}
	wh := e.warehouse(in.Warehouse)

	err = e.txRunner.Run(ctx, func(repos repository.TxRepos) error {
		var product *entity.Product
		if in.UnitCost != nil {
			p, err := repos.Products.GetByID(ctx, in.ProductID)
			if err != nil {
				return err
			}
			product = p
		}
		r, err := e.mutateInTx(ctx, repos, kind, in.ProductID, wh, in.Quantity, in.Reason, "", in.ActorID)
		if err != nil {
			return err
		}
		if product != nil && r.Movement != nil {
			cost := inventory.WeightedAverageCost(r.Before.OnHand, product.Cost, in.Quantity, *in.UnitCost)
			if err := repos.Products.UpdateCost(ctx, product.ID, cost); err != nil {
				return err
			}
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().
		Str("product_id", in.ProductID).
		Str("warehouse", wh).
		Str("type", string(in.Type)).
		Int("quantity", in.Quantity).
		Str("actor", in.ActorID).
		Msg("ajuste de inventario aplicado")
	return res, nil
}

// Allocate reserva unidades en su propia transacción. Un faltante no es error:
// se devuelve OK=false con el detalle y no se escribe nada.
func (e *AllocationEngine) Allocate(ctx context.Context, in ReservationInput) (res *AllocationResult, err error) {
	ctx, span := e.startSpan(ctx, "inventory.Allocate", in.ProductID, in.Warehouse, in.Quantity)
	defer func() { endSpan(span, err) }()

	err = e.txRunner.Run(ctx, func(repos repository.TxRepos) error {
		r, err := e.AllocateInTx(ctx, repos, in)
		res = r
		return err
	})
	if err != nil {
		return nil, err
	}
	if !res.OK {
		span.SetAttributes(attribute.Int("inventory.shortfall", res.Shortfall))
	}
	return res, nil
}

// AllocateInTx asigna usando los repos de la transacción del caller.
func (e *AllocationEngine) AllocateInTx(ctx context.Context, repos repository.TxRepos, in ReservationInput) (*AllocationResult, error) {
	if err := validateReservation(in); err != nil {
		return nil, err
	}
	wh := e.warehouse(in.Warehouse)
	reason := in.Reason
	if reason == "" {
		reason = "asignación " + in.ReferenceID
	}
	r, err := e.mutateInTx(ctx, repos, inventory.Allocation{}, in.ProductID, wh, in.Quantity, reason, in.ReferenceID, in.ActorID)
	var short *domain.InsufficientStockError
	if errors.As(err, &short) {
		e.log.Warn().
			Str("product_id", in.ProductID).
			Str("warehouse", wh).
			Int("requested", short.Requested).
			Int("available", short.Available).
			Str("reference_id", in.ReferenceID).
			Msg("asignación rechazada por stock insuficiente")
		return &AllocationResult{
			MutationResult: *r,
			OK:             false,
			Requested:      in.Quantity,
			Shortfall:      short.Shortfall,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &AllocationResult{MutationResult: *r, OK: true, Requested: in.Quantity}, nil
}

// Release libera unidades asignadas en su propia transacción. Solo se libera lo que la
// referencia tiene asignado: pedir más libera ese saldo; liberar 0 no escribe movimiento.
func (e *AllocationEngine) Release(ctx context.Context, in ReservationInput) (res *MutationResult, err error) {
	ctx, span := e.startSpan(ctx, "inventory.Release", in.ProductID, in.Warehouse, in.Quantity)
	defer func() { endSpan(span, err) }()

	err = e.txRunner.Run(ctx, func(repos repository.TxRepos) error {
		r, err := e.ReleaseInTx(ctx, repos, in)
		if err != nil {
			return err
		}
		if in.Quantity > 0 && r.Movement == nil {
			return fmt.Errorf("%w: la referencia %s no tiene unidades asignadas", domain.ErrConflict, in.ReferenceID)
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ReleaseInTx libera usando los repos de la transacción del caller. La cantidad se recorta
// a lo que la referencia mantiene asignado; sin reserva no escribe movimiento.
func (e *AllocationEngine) ReleaseInTx(ctx context.Context, repos repository.TxRepos, in ReservationInput) (*MutationResult, error) {
	if in.ProductID == "" || in.ReferenceID == "" {
		return nil, fmt.Errorf("%w: product_id y reference_id requeridos", domain.ErrInvalidInput)
	}
	if in.Quantity > inventory.MaxQuantity {
		return nil, fmt.Errorf("%w: la cantidad %d supera el máximo", domain.ErrInvalidInput, in.Quantity)
	}
	wh := e.warehouse(in.Warehouse)
	qty := in.Quantity
	if qty > 0 {
		// Bloquear antes de leer lo reservado por la referencia.
		if _, err := repos.Inventory.GetForUpdate(ctx, in.ProductID, wh); err != nil {
			return nil, err
		}
		reserved, err := repos.Movements.ReservedQuantity(ctx, in.ProductID, wh, in.ReferenceID)
		if err != nil {
			return nil, err
		}
		qty = max(0, min(qty, reserved))
	}
	reason := in.Reason
	if reason == "" {
		reason = "liberación " + in.ReferenceID
	}
	return e.mutateInTx(ctx, repos, inventory.Release{}, in.ProductID, wh, qty, reason, in.ReferenceID, in.ActorID)
}

// Consume despacha unidades asignadas en su propia transacción.
func (e *AllocationEngine) Consume(ctx context.Context, in ReservationInput) (res *MutationResult, err error) {
	ctx, span := e.startSpan(ctx, "inventory.Consume", in.ProductID, in.Warehouse, in.Quantity)
	defer func() { endSpan(span, err) }()

	err = e.txRunner.Run(ctx, func(repos repository.TxRepos) error {
		r, err := e.ConsumeInTx(ctx, repos, in)
		res = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ConsumeInTx despacha unidades asignadas: salen de on_hand y de allocated.
func (e *AllocationEngine) ConsumeInTx(ctx context.Context, repos repository.TxRepos, in ReservationInput) (*MutationResult, error) {
	if err := validateReservation(in); err != nil {
		return nil, err
	}
	reason := in.Reason
	if reason == "" {
		reason = "despacho " + in.ReferenceID
	}
	return e.mutateInTx(ctx, repos, inventory.Consume{}, in.ProductID, e.warehouse(in.Warehouse), in.Quantity, reason, in.ReferenceID, in.ActorID)
}

// CheckAvailability verificación consultiva sin bloqueos: lo que reporta puede cambiar
// antes de una asignación real.
func (e *AllocationEngine) CheckAvailability(ctx context.Context, req dto.CheckAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: se requiere al menos un ítem", domain.ErrInvalidInput)
	}
	wh := e.warehouse(req.WarehouseLocation)
	// Un mismo producto repetido se evalúa por la suma solicitada.
	requested := make(map[string]int, len(req.Items))
	order := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: ítem inválido", domain.ErrInvalidInput)
		}
		if _, seen := requested[it.ProductID]; !seen {
			order = append(order, it.ProductID)
		}
		requested[it.ProductID] += it.Quantity
	}

	out := &dto.AvailabilityResponse{WarehouseLocation: wh, AllAvailable: true}
	for _, pid := range order {
		item := dto.AvailabilityItemResponse{ProductID: pid, Requested: requested[pid]}
		rec, err := e.records.Get(ctx, pid, wh)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			return nil, err
		default:
			item.Found = true
			item.Available = rec.QuantityAvailable
		}
		if item.Available >= item.Requested {
			item.Sufficient = true
		} else {
			item.Shortfall = item.Requested - item.Available
			out.AllAvailable = false
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

// mutateInTx bloquea la fila, aplica la variante y persiste saldo y movimiento.
// Ante un error de dominio posterior a la lectura devuelve igualmente el resultado con el
// saldo actual (Before == After) para que el caller pueda informarlo.
func (e *AllocationEngine) mutateInTx(
	ctx context.Context,
	repos repository.TxRepos,
	kind inventory.MovementKind,
	productID, warehouse string,
	qty int,
	reason, referenceID, actorID string,
) (*MutationResult, error) {
	rec, err := repos.Inventory.GetForUpdate(ctx, productID, warehouse)
	if err != nil {
		return nil, err
	}
	current := inventory.BalanceOf(rec)
	res := &MutationResult{
		ProductID: productID,
		Warehouse: warehouse,
		Type:      kind.Type(),
		Before:    current,
		After:     current,
	}

	t, err := inventory.Apply(kind, current, qty)
	if err != nil {
		var short *domain.InsufficientStockError
		if errors.As(err, &short) {
			short.ProductID = productID
			short.Warehouse = warehouse
		}
		if errors.Is(err, domain.ErrInvariantViolation) {
			e.log.Error().Err(err).Str("product_id", productID).Str("warehouse", warehouse).Msg("saldo inconsistente")
		}
		return res, err
	}
	if !t.Changed() {
		return res, nil
	}

	t.After.ApplyTo(rec)
	rec.UpdatedAt = e.now()
	if err := repos.Inventory.UpdateBalance(ctx, rec); err != nil {
		return nil, fmt.Errorf("actualizar saldo: %w", err)
	}
	mov, err := e.recorder.Record(ctx, repos, MovementInput{
		ProductID:   productID,
		Warehouse:   warehouse,
		Type:        kind.Type(),
		Quantity:    t.Delta,
		Previous:    t.Previous,
		New:         t.New,
		Reason:      reason,
		ReferenceID: referenceID,
		ActorID:     actorID,
	})
	if err != nil {
		return nil, err
	}
	res.After = t.After
	res.Movement = mov
	return res, nil
}

func validateReservation(in ReservationInput) error {
	if in.ProductID == "" || in.ReferenceID == "" {
		return fmt.Errorf("%w: product_id y reference_id requeridos", domain.ErrInvalidInput)
	}
	if in.Quantity <= 0 {
		return fmt.Errorf("%w: la cantidad debe ser positiva", domain.ErrInvalidInput)
	}
	return nil
}

func (e *AllocationEngine) startSpan(ctx context.Context, name, productID, warehouse string, qty int) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("inventory.product_id", productID),
		attribute.String("inventory.warehouse", e.warehouse(warehouse)),
		attribute.Int("inventory.quantity", qty),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
