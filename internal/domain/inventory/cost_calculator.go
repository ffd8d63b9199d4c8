package inventory

import "github.com/shopspring/decimal"

// WeightedAverageCost implementa el costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
func WeightedAverageCost(onHand int, currentCost decimal.Decimal, qtyIn int, unitCostIn decimal.Decimal) decimal.Decimal {
	stock := decimal.NewFromInt(int64(onHand))
	in := decimal.NewFromInt(int64(qtyIn))
	sum := stock.Add(in)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := stock.Mul(currentCost).Add(in.Mul(unitCostIn))
	return num.DivRound(sum, 4)
}
