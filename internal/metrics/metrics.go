// Package metrics holds the Prometheus series emitted by the strategies and
// the strategy manager.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ArbLegsAttemptedTotal counts Dutch Arb leg attempts, by outcome.
	ArbLegsAttemptedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polystrat_arb_legs_attempted_total",
			Help: "Total number of Dutch Arb leg orders attempted",
		},
		[]string{"outcome"},
	)

	// ArbLegsFilledTotal counts Dutch Arb legs that filled.
	ArbLegsFilledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polystrat_arb_legs_filled_total",
			Help: "Total number of Dutch Arb leg orders filled",
		},
		[]string{"outcome"},
	)

	// ArbUnwindsTotal counts times the unwind subroutine ran because leg 1
	// filled and leg 2 was either no longer profitable or filled nothing.
	ArbUnwindsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polystrat_arb_unwinds_total",
		Help: "Total number of Dutch Arb unwind operations performed",
	})

	// ArbMergesTotal counts merge calls issued after a completed arb round.
	ArbMergesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polystrat_arb_merges_total",
		Help: "Total number of merge-positions calls issued by Dutch Arb",
	})

	// ArbCycleDurationSeconds tracks Execute() wall time.
	ArbCycleDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polystrat_arb_cycle_duration_seconds",
		Help:    "Duration of one Dutch Arb Execute() call",
		Buckets: prometheus.DefBuckets,
	})

	// MakerQuotesPlacedTotal counts Order Gate CancelAndPlace decisions, by side.
	MakerQuotesPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polystrat_maker_quotes_placed_total",
			Help: "Total number of market maker quotes placed via the order gate",
		},
		[]string{"side"},
	)

	// MakerQuotesSkippedTotal counts Order Gate DecisionSkip outcomes, by side.
	MakerQuotesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polystrat_maker_quotes_skipped_total",
			Help: "Total number of market maker quotes skipped by the order gate",
		},
		[]string{"side"},
	)

	// MakerMergesTotal counts merge calls issued by the market maker's reconciliation step.
	MakerMergesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polystrat_maker_merges_total",
		Help: "Total number of merge-positions calls issued by the market maker",
	})

	// MakerCycleDurationSeconds tracks Execute() wall time for the market maker.
	MakerCycleDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polystrat_maker_cycle_duration_seconds",
		Help:    "Duration of one market maker Execute() call",
		Buckets: prometheus.DefBuckets,
	})

	// RiskOffEventsTotal counts stop-loss risk-off events written (unlabelled).
	RiskOffEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polystrat_risk_off_events_total",
		Help: "Total number of risk-off records written after a stop-loss",
	})

	// StrategyPanicsTotal counts panics recovered at the manager boundary, by strategy id.
	StrategyPanicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polystrat_strategy_panics_total",
			Help: "Total number of strategy panics recovered at the manager boundary",
		},
		[]string{"strategy_id"},
	)

	// StrategyErrorsTotal counts non-panic errors returned by a strategy's Execute, by strategy id.
	StrategyErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polystrat_strategy_errors_total",
			Help: "Total number of errors returned by strategy Execute calls",
		},
		[]string{"strategy_id"},
	)
)
