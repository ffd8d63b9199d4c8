package order

import "github.com/shopspring/decimal"

// Pricing reglas de totales del pedido.
type Pricing struct {
	TaxRate               decimal.Decimal // 0.10 = 10 %
	FreeShippingThreshold decimal.Decimal // subtotal desde el cual el envío es gratis
	ShippingFee           decimal.Decimal // tarifa plana bajo el umbral
}

// DefaultPricing impuesto 10 %, envío gratis desde 100, tarifa 10.
func DefaultPricing() Pricing {
	return Pricing{
		TaxRate:               decimal.NewFromFloat(0.10),
		FreeShippingThreshold: decimal.NewFromInt(100),
		ShippingFee:           decimal.NewFromInt(10),
	}
}

// Totals calcula impuesto, envío y total a partir del subtotal (redondeo a 2 decimales).
func (p Pricing) Totals(subtotal decimal.Decimal) (tax, shipping, total decimal.Decimal) {
	tax = subtotal.Mul(p.TaxRate).Round(2)
	shipping = p.ShippingFee
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	total = subtotal.Add(tax).Add(shipping)
	return tax, shipping, total
}
