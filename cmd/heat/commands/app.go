package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/external/cftc"
	"github.com/silverpulse/heat/internal/external/etf"
	"github.com/silverpulse/heat/internal/external/premium"
	"github.com/silverpulse/heat/internal/external/source"
	"github.com/silverpulse/heat/internal/heat"
	"github.com/silverpulse/heat/internal/heatconfig"
	"github.com/silverpulse/heat/internal/metrics"
	"github.com/silverpulse/heat/internal/refresh"
	"github.com/silverpulse/heat/internal/store"
	"github.com/silverpulse/heat/pkg/config"
	"github.com/silverpulse/heat/pkg/database"
	"github.com/silverpulse/heat/pkg/httputil"
	"github.com/silverpulse/heat/pkg/logger"
	"github.com/silverpulse/heat/pkg/redis"
)

// app holds the wired components shared by the commands
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	engine  *heat.Engine
	metrics *metrics.Recorder

	db      *database.DB
	redis   *redis.Client
	cache   *redis.Cache
	series  contracts.SeriesRepository
	cot     contracts.COTRepository
	evals   contracts.EvaluationRepository
	source  contracts.SnapshotSource
	refresh *refresh.Service
}

// newApp loads configuration and wires storage, sources and the engine.
// Without DATABASE_URL evaluations are kept in memory for the life of the process.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	a := &app{cfg: cfg, log: log}
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	path := heatConfigFile
	if path == "" {
		path = cfg.HeatConfigPath
	}
	heatCfg, err := heatconfig.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	for _, w := range heatconfig.Warn(heatCfg) {
		log.WithField("code", w.Code).Warn(w.Message)
	}
	if a.engine, err = heat.NewEngine(heatCfg, log); err != nil {
		return nil, err
	}

	if err := a.openStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openSource(); err != nil {
		a.Close()
		return nil, err
	}

	a.refresh = refresh.NewService(a.source, a.engine, a.evals, log).
		WithCOTStore(a.cot).
		WithMetrics(a.metrics)
	if a.redis.Enabled() {
		a.refresh.WithCache(a.cache)
	}
	return a, nil
}

func (a *app) openStorage(ctx context.Context) error {
	rc, err := redis.New(a.cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rc
	a.cache = redis.NewCache(rc, "silver")

	db, err := database.New(ctx, a.cfg)
	if errors.Is(err, database.ErrNotConfigured) {
		a.log.Warn("DATABASE_URL not set, evaluations are kept in memory")
		mem := store.NewMemory()
		a.series, a.cot, a.evals = mem, mem, mem
		return nil
	}
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	a.db = db

	if err := store.Migrate(ctx, db); err != nil {
		return err
	}
	seriesRepo := store.NewSeriesRepository(db)
	a.series, a.cot, a.evals = seriesRepo, seriesRepo, store.NewEvaluationRepository(db)
	a.log.Info("Connected to database")
	return nil
}

// liveSources makes openSource ignore fixture directories
var liveSources bool

func (a *app) openSource() error {
	dir := fixtureDir
	if dir == "" {
		dir = a.cfg.Sources.FixtureDir
	}
	if dir != "" && !liveSources {
		a.source = source.FixtureSource{Dir: dir}
		a.log.WithField("dir", dir).Info("Using CSV fixtures")
		return nil
	}

	if storedSeries && !liveSources {
		a.source = source.StoreSource{Repo: a.series}
		a.log.Info("Using stored series")
		return nil
	}

	a.source = a.collector().WithSeriesStore(a.series).WithMetrics(a.metrics)
	return nil
}

func (a *app) collector() *source.Collector {
	src := a.cfg.Sources
	httpClient := httputil.New(a.cfg, a.log)
	return source.NewCollector(
		cftc.NewClient(httpClient, a.log, src.COTMarket, src.COTURLs...),
		etf.NewClient(httpClient, a.log, src.FlowURL),
		premium.NewClient(httpClient, a.log, src.PremiumURL, src.PremiumTable),
		a.cache,
		a.cfg.Redis.TTL,
		a.log,
	)
}

// snapshot reads the configured source once
func (a *app) snapshot(ctx context.Context) (*contracts.Snapshot, error) {
	return a.source.Snapshot(ctx)
}

// Close releases database and redis connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
