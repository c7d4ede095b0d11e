// Package manager is the strategy manager (spec.md §4.5): it resolves
// which strategies run for a market, caches one instance per strategy id,
// and executes them sequentially with a panic/error boundary so one
// strategy's failure never stops the others.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/polystrat/strategy-core/internal/metrics"
	"github.com/polystrat/strategy-core/internal/strategy"
)

// ErrUnknownStrategy is returned when a market's strategy_config names an id
// with no registered constructor.
var ErrUnknownStrategy = errors.New("manager: unknown strategy id")

// Constructor builds a strategy instance. Registered constructors close over
// whatever dependencies (execclient.Client, bookview.Provider, caches) the
// concrete strategy needs; the manager itself is agnostic to them.
type Constructor func() strategy.Strategy

// Registry maps a strategy id to its constructor.
type Registry map[string]Constructor

// StaticConfig is the market -> strategy-id table and the merge-size
// constant, read from pkg/config at startup (spec.md §6's
// strategy_config[market_id] -> [ids] and MIN_MERGE_SIZE).
type StaticConfig struct {
	StrategiesByMarket map[string][]string
	MinMergeSize       float64
}

// Manager resolves, caches, and sequentially executes strategies per market.
type Manager struct {
	registry Registry
	config   StaticConfig
	logger   *zap.Logger

	mu        sync.Mutex
	instances map[string]strategy.Strategy
}

// New returns a Manager backed by registry and config.
func New(registry Registry, config StaticConfig, logger *zap.Logger) *Manager {
	return &Manager{
		registry:  registry,
		config:    config,
		logger:    logger,
		instances: make(map[string]strategy.Strategy),
	}
}

// GetInstance returns the cached strategy instance for id, constructing it
// on first use.
func (m *Manager) GetInstance(id string) (strategy.Strategy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if inst, ok := m.instances[id]; ok {
		return inst, nil
	}

	ctor, ok := m.registry[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, id)
	}

	inst := ctor()
	m.instances[id] = inst
	return inst, nil
}

// StrategiesForMarket resolves the strategy ids configured for conditionID
// into instances, logging and skipping any id that is not registered.
func (m *Manager) StrategiesForMarket(conditionID string) []strategy.Strategy {
	ids := m.config.StrategiesByMarket[conditionID]
	strategies := make([]strategy.Strategy, 0, len(ids))

	for _, id := range ids {
		inst, err := m.GetInstance(id)
		if err != nil {
			m.logger.Warn("strategy-not-found-for-market",
				zap.String("market_id", conditionID),
				zap.String("strategy_id", id),
				zap.Error(err))
			continue
		}
		strategies = append(strategies, inst)
	}

	return strategies
}

// ExecuteStrategies runs every strategy configured for conditionID in
// sequence. A panicking or erroring strategy is logged and skipped; it never
// stops the remaining strategies in the list.
func (m *Manager) ExecuteStrategies(ctx context.Context, conditionID string, cfg strategy.MarketConfig, params strategy.StrategyParams) {
	for _, s := range m.StrategiesForMarket(conditionID) {
		m.executeOne(ctx, conditionID, s, cfg, params)
	}
}

func (m *Manager) executeOne(ctx context.Context, conditionID string, s strategy.Strategy, cfg strategy.MarketConfig, params strategy.StrategyParams) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("strategy-panicked",
				zap.String("market_id", conditionID),
				zap.String("strategy_id", s.ID()),
				zap.Any("recovered", r))
			metrics.StrategyPanicsTotal.WithLabelValues(s.ID()).Inc()
		}
	}()

	if err := s.Execute(ctx, conditionID, cfg, params); err != nil {
		m.logger.Error("strategy-execution-failed",
			zap.String("market_id", conditionID),
			zap.String("strategy_id", s.ID()),
			zap.Error(err))
		metrics.StrategyErrorsTotal.WithLabelValues(s.ID()).Inc()
	}
}
