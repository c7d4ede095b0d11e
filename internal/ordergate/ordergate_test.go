package ordergate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/polystrat/strategy-core/internal/execclient"
	"github.com/polystrat/strategy-core/internal/ordergate"
)

func TestDecide_ScenarioE_KeepsCloseRestingOrder(t *testing.T) {
	target := ordergate.Target{Price: 0.452, Size: 25}
	resting := ordergate.RestingOrder{Price: 0.450, Size: 24, Exists: true}

	decision := ordergate.Decide(execclient.Buy, target, resting, ordergate.RestingOrder{}, 0.45, 2)
	assert.Equal(t, ordergate.DecisionKeep, decision)
}

func TestDecide_CancelsWhenPriceDrifts(t *testing.T) {
	target := ordergate.Target{Price: 0.47, Size: 25}
	resting := ordergate.RestingOrder{Price: 0.45, Size: 25, Exists: true}

	decision := ordergate.Decide(execclient.Buy, target, resting, ordergate.RestingOrder{}, 0.45, 2)
	assert.Equal(t, ordergate.DecisionCancelAndPlace, decision)
}

func TestDecide_CancelsWhenSizeDriftsByMoreThanTenPercent(t *testing.T) {
	target := ordergate.Target{Price: 0.45, Size: 25}
	resting := ordergate.RestingOrder{Price: 0.45, Size: 20, Exists: true}

	decision := ordergate.Decide(execclient.Buy, target, resting, ordergate.RestingOrder{}, 0.45, 2)
	assert.Equal(t, ordergate.DecisionCancelAndPlace, decision)
}

func TestDecide_NoRestingOrderAlwaysCancelsAndPlaces(t *testing.T) {
	target := ordergate.Target{Price: 0.45, Size: 25}

	decision := ordergate.Decide(execclient.Buy, target, ordergate.RestingOrder{}, ordergate.RestingOrder{}, 0.45, 2)
	assert.Equal(t, ordergate.DecisionCancelAndPlace, decision)
}

func TestDecide_BuySkippedBelowIncentiveBand(t *testing.T) {
	// midPrice 0.5, maxSpread 2% -> incentive start 0.48
	target := ordergate.Target{Price: 0.40, Size: 25}

	decision := ordergate.Decide(execclient.Buy, target, ordergate.RestingOrder{}, ordergate.RestingOrder{}, 0.5, 2)
	assert.Equal(t, ordergate.DecisionSkip, decision)
}

func TestDecide_BuySkippedOutsideHardPriceBounds(t *testing.T) {
	low := ordergate.Target{Price: 0.05, Size: 25}
	high := ordergate.Target{Price: 0.95, Size: 25}

	assert.Equal(t, ordergate.DecisionSkip,
		ordergate.Decide(execclient.Buy, low, ordergate.RestingOrder{}, ordergate.RestingOrder{}, 0.05, 50))
	assert.Equal(t, ordergate.DecisionSkip,
		ordergate.Decide(execclient.Buy, high, ordergate.RestingOrder{}, ordergate.RestingOrder{}, 0.95, 50))
}

func TestDecide_SellAlwaysPlacesOnceCancelTriggered(t *testing.T) {
	target := ordergate.Target{Price: 0.01, Size: 5}

	decision := ordergate.Decide(execclient.Sell, target, ordergate.RestingOrder{}, ordergate.RestingOrder{}, 0.5, 2)
	assert.Equal(t, ordergate.DecisionCancelAndPlace, decision)
}

func TestGate_Reconcile_KeepDoesNotTouchClient(t *testing.T) {
	client := execclient.NewPaperClient(1000, zap.NewNop())
	gate := ordergate.NewGate(client, zap.NewNop())

	resting := ordergate.RestingOrder{Price: 0.450, Size: 24, Exists: true}
	target := ordergate.Target{Price: 0.452, Size: 25}

	decision, err := gate.Reconcile(context.Background(), "token-1", execclient.Buy, target, resting, ordergate.RestingOrder{}, 0.45, 2, 3, false)
	require.NoError(t, err)
	assert.Equal(t, ordergate.DecisionKeep, decision)

	_, scaled, _, err := client.GetPosition(context.Background(), "token-1")
	require.NoError(t, err)
	assert.Zero(t, scaled)
}

func TestGate_Reconcile_CancelAndPlacePlacesOrder(t *testing.T) {
	client := execclient.NewPaperClient(1000, zap.NewNop())
	gate := ordergate.NewGate(client, zap.NewNop())

	target := ordergate.Target{Price: 0.45, Size: 10}
	decision, err := gate.Reconcile(context.Background(), "token-1", execclient.Buy, target, ordergate.RestingOrder{}, ordergate.RestingOrder{}, 0.45, 2, 3, false)
	require.NoError(t, err)
	assert.Equal(t, ordergate.DecisionCancelAndPlace, decision)

	_, scaled, _, err := client.GetPosition(context.Background(), "token-1")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, scaled, 1e-9)
}
