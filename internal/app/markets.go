package app

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/polystrat/strategy-core/internal/strategy"
)

// loadMarkets reads the static market list this core operates over. Market
// discovery is an external collaborator's job (spec.md §1 Non-goals); this
// core only consumes the rows it's handed.
func loadMarkets(path string) ([]strategy.MarketConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markets config %s: %w", path, err)
	}

	var markets []strategy.MarketConfig
	if err := json.Unmarshal(data, &markets); err != nil {
		return nil, fmt.Errorf("decode markets config %s: %w", path, err)
	}

	return markets, nil
}

// loadStrategyConfig reads the market id -> strategy ids table that backs
// manager.StaticConfig.StrategiesByMarket.
func loadStrategyConfig(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy config %s: %w", path, err)
	}

	var byMarket map[string][]string
	if err := json.Unmarshal(data, &byMarket); err != nil {
		return nil, fmt.Errorf("decode strategy config %s: %w", path, err)
	}

	return byMarket, nil
}

// loadParams reads the param_type -> StrategyParams table.
func loadParams(path string) (map[string]strategy.StrategyParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read params config %s: %w", path, err)
	}

	var byType map[string]strategy.StrategyParams
	if err := json.Unmarshal(data, &byType); err != nil {
		return nil, fmt.Errorf("decode params config %s: %w", path, err)
	}

	return byType, nil
}

// paramsFor resolves the parameter row for a market's param_type, falling
// back to the zero-valued StrategyParams if the type is not present in the
// table rather than failing the whole cycle. Zero thresholds are still
// applied: any positive 3_hour volatility exceeds a zero volatility
// threshold, which triggers the risk-off sell and suppresses buys.
func (a *App) paramsFor(m strategy.MarketConfig) strategy.StrategyParams {
	params, ok := a.paramsByID[m.ParamType]
	if !ok {
		a.logger.Warn("param-type-not-found",
			zap.String("market_id", m.ConditionID),
			zap.String("param_type", m.ParamType))
	}
	return params
}

// runMarketPollLoop runs one manager pass per market every MarketPollInterval
// until ctx is cancelled.
func (a *App) runMarketPollLoop() {
	defer a.wg.Done()

	a.pollOnce()

	ticker := time.NewTicker(a.cfg.MarketPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.pollOnce()
		}
	}
}

// pollOnce runs every configured market through the strategy manager once.
func (a *App) pollOnce() {
	for _, m := range a.markets {
		if a.opts.SingleMarket != "" && m.ConditionID != a.opts.SingleMarket {
			continue
		}
		a.strategyMgr.ExecuteStrategies(a.ctx, m.ConditionID, m, a.paramsFor(m))
	}
}
