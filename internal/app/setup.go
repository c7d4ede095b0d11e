package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/polystrat/strategy-core/internal/bookview"
	"github.com/polystrat/strategy-core/internal/execclient"
	"github.com/polystrat/strategy-core/internal/manager"
	"github.com/polystrat/strategy-core/internal/marketlock"
	"github.com/polystrat/strategy-core/internal/poscache"
	"github.com/polystrat/strategy-core/internal/riskcache"
	"github.com/polystrat/strategy-core/internal/riskstore"
	"github.com/polystrat/strategy-core/internal/strategy"
	"github.com/polystrat/strategy-core/internal/strategy/dutcharb"
	"github.com/polystrat/strategy-core/internal/strategy/marketmaker"
	"github.com/polystrat/strategy-core/pkg/cache"
	"github.com/polystrat/strategy-core/pkg/config"
	"github.com/polystrat/strategy-core/pkg/healthprobe"
	"github.com/polystrat/strategy-core/pkg/httpserver"
)

// New wires every collaborator and returns an App ready for Run.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	markets, err := loadMarkets(cfg.MarketsConfigPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("load markets: %w", err)
	}

	strategiesByMarket, err := loadStrategyConfig(cfg.StrategyConfigPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("load strategy config: %w", err)
	}

	params, err := loadParams(cfg.ParamsConfigPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("load params config: %w", err)
	}

	healthChecker := setupHealthChecker()

	client, err := setupExecClient(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup exec client: %w", err)
	}

	book, err := setupBookProvider(ctx, cfg, logger, markets)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup book provider: %w", err)
	}

	posCache, err := setupPosCache(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup position cache: %w", err)
	}

	riskCache := riskcache.NewStore(cfg.RiskOffDir)

	riskStore, err := setupRiskStore(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup risk store: %w", err)
	}

	locks := marketlock.NewRegistry()
	base := strategy.BaseStrategy{Locks: locks}

	strategyMgr := manager.New(manager.Registry{
		"dutch_arb": func() strategy.Strategy {
			return dutcharb.NewStrategy(client, book, base, logger)
		},
		"market_maker": func() strategy.Strategy {
			mm := marketmaker.NewStrategy(client, book, posCache, riskCache, base, logger, cfg.MinMergeSize)
			mm.SetRiskMirror(riskStore)
			return mm
		},
	}, manager.StaticConfig{
		StrategiesByMarket: strategiesByMarket,
		MinMergeSize:       cfg.MinMergeSize,
	}, logger)

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		locks:         locks,
		strategyMgr:   strategyMgr,
		riskStore:     riskStore,
		markets:       markets,
		paramsByID:    params,
		opts:          opts,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New()
}

// setupExecClient builds the live CLOB client or the in-memory paper client
// depending on cfg.ExecutionMode.
func setupExecClient(cfg *config.Config, logger *zap.Logger) (execclient.Client, error) {
	if cfg.ExecutionMode == "live" {
		client, err := execclient.NewLiveClient(execclient.LiveClientConfig{
			APIKey:        cfg.ClobAPIKey,
			Secret:        cfg.ClobSecret,
			Passphrase:    cfg.ClobPassphrase,
			PrivateKey:    cfg.WalletPrivateKey,
			ProxyAddress:  cfg.ProxyAddress,
			SignatureType: cfg.SignatureType,
			RPCURL:        cfg.RPCURL,
			Logger:        logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build live client: %w", err)
		}
		return client, nil
	}

	const paperStartingBalance = 1000.0
	return execclient.NewPaperClient(paperStartingBalance, logger), nil
}

// setupBookProvider dials the live order-book feed and registers every
// market's two outcome tokens against it in live mode; paper mode uses an
// empty StaticProvider, whose zero-value Snapshots are unusable books: the
// Market Maker skips each outcome, and Dutch Arb returns
// strategy.ErrBookUnavailable, which the manager logs as a strategy error.
func setupBookProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger, markets []strategy.MarketConfig) (bookview.Provider, error) {
	if cfg.ExecutionMode != "live" {
		return bookview.NewStaticProvider(), nil
	}

	live := bookview.NewLiveProvider(cfg.BookFeedURL, logger)
	for _, m := range markets {
		live.Register(m.ConditionID, "token1", m.Token1)
		live.Register(m.ConditionID, "token2", m.Token2)
	}

	if err := live.Dial(ctx); err != nil {
		return nil, fmt.Errorf("dial book feed: %w", err)
	}

	return live, nil
}

func setupPosCache(cfg *config.Config, logger *zap.Logger) (poscache.Cache, error) {
	return poscache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: cfg.PosCacheNumCounters,
		MaxCost:     cfg.PosCacheMaxCost,
		BufferItems: cfg.PosCacheBufferItems,
		Logger:      logger,
	})
}

func setupRiskStore(cfg *config.Config, logger *zap.Logger) (*riskstore.Store, error) {
	if !cfg.RiskStoreEnabled {
		return nil, nil
	}

	store, err := riskstore.New(&riskstore.Config{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		Database: cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	return store, nil
}
