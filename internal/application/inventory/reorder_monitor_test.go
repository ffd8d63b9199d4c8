package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/backoffice-api/internal/domain"
)

func TestReorderMonitor_AlertasOrdenadasPorSeveridad(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "SKU-OK", 50, 10, 0)
	f.seedProduct(t, "SKU-LOW", 8, 10, 0)
	f.seedProduct(t, "SKU-CRIT", 3, 10, 0)
	f.seedProduct(t, "SKU-OUT", 0, 10, 0)
	f.seedProduct(t, "SKU-NOLEVEL", 2, 0, 0)

	alerts, err := f.monitor.Alerts(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	assert.Equal(t, "SKU-OUT", alerts[0].SKU)
	assert.Equal(t, "OUT_OF_STOCK", alerts[0].Severity)
	assert.Equal(t, "SKU-CRIT", alerts[1].SKU)
	assert.Equal(t, "SKU-LOW", alerts[2].SKU)

	critical, err := f.monitor.Alerts(context.Background(), "MAIN", "critical")
	require.NoError(t, err)
	assert.Len(t, critical, 2)

	_, err = f.monitor.Alerts(context.Background(), "", "URGENTE")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReorderMonitor_SugerenciasDeReposicion(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "SKU-CRIT", 3, 10, 5) // ideal 15 - 3 = 12 > 5
	f.seedProduct(t, "SKU-LOW", 9, 10, 20) // ideal 15 - 9 = 6 < 20

	out, err := f.monitor.ReplenishmentSuggestions(context.Background(), "MAIN")
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "SKU-CRIT", out[0].SKU)
	assert.Equal(t, 1, out[0].Priority)
	assert.Equal(t, 15, out[0].IdealStock)
	assert.Equal(t, 12, out[0].SuggestedOrderQty)
	assert.Equal(t, "96", out[0].EstimatedOrderCost.String())

	assert.Equal(t, 20, out[1].SuggestedOrderQty)
	assert.Equal(t, 2, out[1].Priority)
}
