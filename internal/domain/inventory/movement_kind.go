package inventory

import (
	"fmt"
	"math"

	"github.com/jhoicas/backoffice-api/internal/domain"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
)

// MovementKind es la variante cerrada de tipo de movimiento. Cada variante sabe cómo
// transformar un Balance y qué cantidad registra en el libro. El método apply no exportado
// sella la interfaz: solo las variantes de este paquete la implementan.
type MovementKind interface {
	Type() entity.MovementType
	apply(b Balance, qty int) (Transition, error)
}

// MaxQuantity tope de cualquier cantidad o saldo; coincide con las columnas INTEGER.
const MaxQuantity = math.MaxInt32

// Transition resultado de aplicar un movimiento a un saldo.
// Delta/Previous/New describen la cantidad afectada (on_hand o available según la variante).
type Transition struct {
	Before   Balance
	After    Balance
	Delta    int
	Previous int
	New      int
}

// Changed indica si el saldo cambió; una transición sin cambio no genera movimiento.
func (t Transition) Changed() bool {
	return t.Before != t.After
}

type (
	// Increase entrada física: on_hand y available suben.
	Increase struct{}
	// Decrease merma: on_hand baja (mínimo 0) sin tocar lo asignado.
	Decrease struct{}
	// Set conteo físico: fija on_hand.
	Set struct{}
	// Allocation reserva: available pasa a allocated.
	Allocation struct{}
	// Release libera una reserva: allocated vuelve a available.
	Release struct{}
	// Consume despacho: unidades asignadas salen de la bodega.
	Consume struct{}
)

func (Increase) Type() entity.MovementType   { return entity.MovementIncrease }
func (Decrease) Type() entity.MovementType   { return entity.MovementDecrease }
func (Set) Type() entity.MovementType        { return entity.MovementSet }
func (Allocation) Type() entity.MovementType { return entity.MovementAllocation }
func (Release) Type() entity.MovementType    { return entity.MovementRelease }
func (Consume) Type() entity.MovementType    { return entity.MovementConsume }

func (Increase) apply(b Balance, qty int) (Transition, error) {
	if qty <= 0 {
		return Transition{}, fmt.Errorf("%w: la cantidad de entrada debe ser positiva", domain.ErrInvalidInput)
	}
	if b.OnHand > MaxQuantity-qty {
		return Transition{}, fmt.Errorf("%w: on_hand %d + %d supera el máximo %d", domain.ErrInvalidInput, b.OnHand, qty, MaxQuantity)
	}
	after := Balance{OnHand: b.OnHand + qty, Allocated: b.Allocated, Available: b.Available + qty}
	return onHandTransition(b, after), nil
}

func (Decrease) apply(b Balance, qty int) (Transition, error) {
	if qty <= 0 {
		return Transition{}, fmt.Errorf("%w: la cantidad a descontar debe ser positiva", domain.ErrInvalidInput)
	}
	onHand := b.OnHand - qty
	if onHand < 0 {
		onHand = 0
	}
	if onHand < b.Allocated {
		return Transition{}, domain.ErrAllocatedExceedsOnHand
	}
	after := Balance{OnHand: onHand, Allocated: b.Allocated, Available: onHand - b.Allocated}
	return onHandTransition(b, after), nil
}

func (Set) apply(b Balance, qty int) (Transition, error) {
	if qty < 0 {
		return Transition{}, fmt.Errorf("%w: el conteo no puede ser negativo", domain.ErrInvalidInput)
	}
	if qty < b.Allocated {
		return Transition{}, domain.ErrAllocatedExceedsOnHand
	}
	after := Balance{OnHand: qty, Allocated: b.Allocated, Available: qty - b.Allocated}
	return onHandTransition(b, after), nil
}

func (Allocation) apply(b Balance, qty int) (Transition, error) {
	if qty <= 0 {
		return Transition{}, fmt.Errorf("%w: la cantidad a asignar debe ser positiva", domain.ErrInvalidInput)
	}
	if qty > b.Available {
		return Transition{}, &domain.InsufficientStockError{
			Requested: qty,
			Available: b.Available,
			Shortfall: qty - b.Available,
		}
	}
	after := Balance{OnHand: b.OnHand, Allocated: b.Allocated + qty, Available: b.Available - qty}
	return availableTransition(b, after), nil
}

func (Release) apply(b Balance, qty int) (Transition, error) {
	if qty < 0 {
		return Transition{}, fmt.Errorf("%w: la cantidad a liberar no puede ser negativa", domain.ErrInvalidInput)
	}
	allocated := b.Allocated - qty
	if allocated < 0 {
		allocated = 0
	}
	available := b.Available + qty
	if available > b.OnHand {
		available = b.OnHand
	}
	after := Balance{OnHand: b.OnHand, Allocated: allocated, Available: available}
	return availableTransition(b, after), nil
}

func (Consume) apply(b Balance, qty int) (Transition, error) {
	if qty <= 0 {
		return Transition{}, fmt.Errorf("%w: la cantidad a despachar debe ser positiva", domain.ErrInvalidInput)
	}
	if qty > b.Allocated {
		return Transition{}, fmt.Errorf("%w: se intenta despachar %d y solo hay %d asignadas",
			domain.ErrConflict, qty, b.Allocated)
	}
	after := Balance{OnHand: b.OnHand - qty, Allocated: b.Allocated - qty, Available: b.Available}
	return onHandTransition(b, after), nil
}

func onHandTransition(before, after Balance) Transition {
	return Transition{
		Before:   before,
		After:    after,
		Delta:    after.OnHand - before.OnHand,
		Previous: before.OnHand,
		New:      after.OnHand,
	}
}

func availableTransition(before, after Balance) Transition {
	return Transition{
		Before:   before,
		After:    after,
		Delta:    after.Available - before.Available,
		Previous: before.Available,
		New:      after.Available,
	}
}

// Apply aplica el movimiento y verifica la invariante antes y después.
// Un saldo de entrada inválido se reporta como ErrInvariantViolation sin intentar repararlo.
func Apply(kind MovementKind, b Balance, qty int) (Transition, error) {
	if kind == nil {
		return Transition{}, fmt.Errorf("%w: tipo de movimiento requerido", domain.ErrInvalidInput)
	}
	if qty > MaxQuantity {
		return Transition{}, fmt.Errorf("%w: la cantidad %d supera el máximo %d", domain.ErrInvalidInput, qty, MaxQuantity)
	}
	if err := b.Validate(); err != nil {
		return Transition{}, err
	}
	t, err := kind.apply(b, qty)
	if err != nil {
		return Transition{}, err
	}
	if err := t.After.Validate(); err != nil {
		return Transition{}, err
	}
	return t, nil
}

// KindOf resuelve el código persistido a su variante.
func KindOf(t entity.MovementType) (MovementKind, error) {
	switch t {
	case entity.MovementIncrease:
		return Increase{}, nil
	case entity.MovementDecrease:
		return Decrease{}, nil
	case entity.MovementSet:
		return Set{}, nil
	case entity.MovementAllocation:
		return Allocation{}, nil
	case entity.MovementRelease:
		return Release{}, nil
	case entity.MovementConsume:
		return Consume{}, nil
	}
	return nil, fmt.Errorf("%w: tipo de movimiento desconocido %q", domain.ErrInvalidInput, t)
}

// AdjustmentKind solo acepta los tipos permitidos en ajustes manuales (INCREASE, DECREASE, SET).
func AdjustmentKind(t entity.MovementType) (MovementKind, error) {
	switch t {
	case entity.MovementIncrease, entity.MovementDecrease, entity.MovementSet:
		return KindOf(t)
	}
	return nil, fmt.Errorf("%w: %q no es un tipo de ajuste", domain.ErrInvalidInput, t)
}
