package entity

import "time"

// MovementType código persistido del tipo de movimiento.
// La lógica de cada tipo vive en domain/inventory (MovementKind); aquí solo el código.
type MovementType string

// Tipos de movimiento de inventario.
const (
	MovementIncrease   MovementType = "INCREASE"   // entrada de stock físico
	MovementDecrease   MovementType = "DECREASE"   // merma o salida manual
	MovementSet        MovementType = "SET"        // conteo físico (fija on_hand)
	MovementAllocation MovementType = "ALLOCATION" // reserva contra un pedido
	MovementRelease    MovementType = "RELEASE"    // liberación de una reserva
	MovementConsume    MovementType = "CONSUME"    // despacho de stock reservado
)

// StockMovement es una entrada inmutable del libro de movimientos.
// Quantity es el delta con signo; PreviousQuantity/NewQuantity son el antes y el después
// de la cantidad que el tipo afecta (on_hand o available).
type StockMovement struct {
	ID                string
	ProductID         string
	WarehouseLocation string
	Type              MovementType
	Quantity          int
	PreviousQuantity  int
	NewQuantity       int
	Reason            string
	ReferenceID       string // p. ej. ID del pedido; vacío si no aplica
	CreatedBy         string // UserID
	CreatedAt         time.Time
}
