package inventory

// Severity nivel de alerta de reorden; se calcula al leer, nunca se persiste.
type Severity string

// Severidades, de mayor a menor urgencia.
const (
	SeverityOutOfStock Severity = "OUT_OF_STOCK"
	SeverityCritical   Severity = "CRITICAL"
	SeverityLow        Severity = "LOW"
	SeverityNone       Severity = ""
)

// Classify deriva la severidad desde el disponible y el nivel de reorden:
// OUT_OF_STOCK si available == 0, CRITICAL si available <= 50% del nivel,
// LOW si available <= nivel, sin alerta en otro caso.
func Classify(available, reorderLevel int) Severity {
	switch {
	case available <= 0:
		return SeverityOutOfStock
	case available*2 <= reorderLevel:
		return SeverityCritical
	case available <= reorderLevel:
		return SeverityLow
	default:
		return SeverityNone
	}
}

// Rank 0 = más urgente; SeverityNone queda al final.
func (s Severity) Rank() int {
	switch s {
	case SeverityOutOfStock:
		return 0
	case SeverityCritical:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}

// AtLeast indica si s es igual o más urgente que min.
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() <= min.Rank()
}

// ParseSeverity acepta los códigos públicos; vacío equivale a LOW (todas las alertas).
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(s) {
	case SeverityOutOfStock, SeverityCritical, SeverityLow:
		return Severity(s), true
	case "":
		return SeverityLow, true
	}
	return SeverityNone, false
}
