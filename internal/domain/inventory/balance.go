package inventory

import (
	"fmt"

	"github.com/jhoicas/backoffice-api/internal/domain"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
)

// Balance los tres contadores de un registro de inventario.
// Cada unidad física está disponible o asignada: OnHand == Allocated + Available.
type Balance struct {
	OnHand    int `json:"on_hand"`
	Allocated int `json:"allocated"`
	Available int `json:"available"`
}

// BalanceOf extrae el saldo de un registro.
func BalanceOf(rec *entity.InventoryRecord) Balance {
	return Balance{
		OnHand:    rec.QuantityOnHand,
		Allocated: rec.QuantityAllocated,
		Available: rec.QuantityAvailable,
	}
}

// ApplyTo copia el saldo al registro.
func (b Balance) ApplyTo(rec *entity.InventoryRecord) {
	rec.QuantityOnHand = b.OnHand
	rec.QuantityAllocated = b.Allocated
	rec.QuantityAvailable = b.Available
}

// Validate verifica la invariante de conservación.
func (b Balance) Validate() error {
	if b.OnHand < 0 || b.Allocated < 0 || b.Available < 0 {
		return fmt.Errorf("%w: cantidades negativas %+v", domain.ErrInvariantViolation, b)
	}
	if b.OnHand != b.Allocated+b.Available {
		return fmt.Errorf("%w: on_hand %d != allocated %d + available %d",
			domain.ErrInvariantViolation, b.OnHand, b.Allocated, b.Available)
	}
	return nil
}
