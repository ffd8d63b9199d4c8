package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrInvalidTransition  = errors.New("transición de estado no permitida")

	// ErrDuplicate: ya existe un registro con la misma clave única (p. ej. producto+bodega).
	ErrDuplicate = fmt.Errorf("%w: recurso duplicado", ErrConflict)
	// ErrAllocatedExceedsOnHand: un ajuste dejaría el stock físico por debajo de lo ya asignado a pedidos.
	ErrAllocatedExceedsOnHand = fmt.Errorf("%w: el stock físico quedaría por debajo de lo asignado", ErrConflict)
	// ErrInvariantViolation indica un bug: on_hand != allocated + available o cantidades negativas.
	ErrInvariantViolation = errors.New("invariante de inventario violada")
)

// InsufficientStockError detalla el faltante de una asignación.
// errors.Is(err, ErrInsufficientStock) es verdadero para este tipo.
type InsufficientStockError struct {
	ProductID string
	Warehouse string
	Requested int
	Available int
	Shortfall int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para producto %s en %s: solicitado %d, disponible %d, faltante %d",
		e.ProductID, e.Warehouse, e.Requested, e.Available, e.Shortfall)
}

// Is permite comparar contra el sentinel ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
