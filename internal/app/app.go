package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/polystrat/strategy-core/internal/manager"
	"github.com/polystrat/strategy-core/internal/marketlock"
	"github.com/polystrat/strategy-core/internal/riskstore"
	"github.com/polystrat/strategy-core/internal/strategy"
	"github.com/polystrat/strategy-core/pkg/config"
	"github.com/polystrat/strategy-core/pkg/healthprobe"
	"github.com/polystrat/strategy-core/pkg/httpserver"
)

// App is the main application orchestrator: it owns the manager, the
// per-market lock registry, and the HTTP server, and drives the poll loop
// that calls the manager once per market per cycle.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	locks         *marketlock.Registry
	strategyMgr   *manager.Manager
	riskStore     *riskstore.Store

	markets    []strategy.MarketConfig
	paramsByID map[string]strategy.StrategyParams
	opts       *Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds application options.
type Options struct {
	SingleMarket string // For debugging: condition id of a single market to track
}
