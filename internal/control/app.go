// Package control wires the validator's components together and
// manages their lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/fairside/validator/internal/core/acctlock"
	"github.com/fairside/validator/internal/core/config"
	"github.com/fairside/validator/internal/core/secret"
	"github.com/fairside/validator/internal/core/wallet"
	"github.com/fairside/validator/internal/core/worker"
	"github.com/fairside/validator/internal/infra/chain"
	redisclient "github.com/fairside/validator/internal/infra/redis"
	"github.com/fairside/validator/internal/infra/storage"
	"github.com/fairside/validator/internal/infra/storage/memory"
	"github.com/fairside/validator/internal/infra/storage/postgres"
	"github.com/fairside/validator/internal/scraper"
	"github.com/fairside/validator/internal/server"
	"github.com/fairside/validator/internal/validator"
)

// Config holds the application configuration.
type Config struct {
	Port                int
	Validator           config.ValidatorConfig
	Chains              []config.ChainConfig
	Redis               redisclient.Config
	Database            postgres.Config
	RescanRangesEnabled bool // CLI flag
}

// App is the assembled validator service.
type App struct {
	cfg           Config
	db            *postgres.DB
	redisClient   *redisclient.Client
	registry      *chain.Registry
	secrets       *secret.Store
	locker        *acctlock.Locker
	wallets       *wallet.Service
	daemon        *validator.Daemon
	scrapers      map[uint64]*scraper.Scraper
	rescanWorkers map[uint64]*scraper.RescanWorker
	pruners       map[uint64]*worker.Pruner
	httpServer    *server.Server
	log           *slog.Logger
}

// NewApp validates configuration and constructs every component. A
// registry with zero valid chains is fatal; a missing database URL
// falls back to in-memory storage.
func NewApp(ctx context.Context, cfg Config) (*App, error) {
	// 1. Storage
	var (
		cursorRepo storage.CursorRepository
		eventRepo  storage.EventRepository
		walletRepo storage.WalletRepository
		db         *postgres.DB
	)
	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		cursorRepo = postgres.NewCursorRepo(db)
		eventRepo = postgres.NewEventRepo(db)
		walletRepo = postgres.NewWalletRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		cursorRepo = memory.NewCursorRepo(store)
		eventRepo = memory.NewEventRepo(store)
		walletRepo = memory.NewWalletRepo(store)
		slog.Info("Using Memory storage")
	}

	// 2. Chain runtimes: one signer shared across every chain
	key, err := chain.ParseKey(cfg.Validator.SigningKey)
	if err != nil {
		return nil, err
	}
	runtimeCfgs := make([]chain.RuntimeConfig, 0, len(cfg.Chains))
	for _, c := range cfg.Chains {
		runtimeCfgs = append(runtimeCfgs, chain.RuntimeConfig{
			ChainID:         c.ChainID,
			RPCURL:          c.RPCURL,
			ContractAddress: c.ContractAddress,
			ContractABI:     validator.PlatformABI,
			DeployBlock:     c.DeployBlock,
		})
	}
	registry, err := chain.NewRegistry(ctx, runtimeCfgs, key)
	if err != nil {
		return nil, err
	}

	// 3. Shared core state
	secrets := secret.NewStore(cfg.Validator.SecretTTL)
	locker := acctlock.NewLocker()
	wallets := wallet.NewService(walletRepo, locker)

	// 4. Watchers and scrapers per chain
	var watchers []*validator.Watcher
	scrapers := make(map[uint64]*scraper.Scraper)
	pruners := make(map[uint64]*worker.Pruner)

	for _, chainCfg := range cfg.Chains {
		rt, err := registry.Get(chainCfg.ChainID)
		if err != nil {
			continue // chain was skipped at validation
		}

		games, err := validator.GamesFor(rt, chainCfg.Games)
		if err != nil {
			return nil, err
		}

		recoverFrom := cfg.Validator.RecoverFromBlock
		if recoverFrom == 0 {
			recoverFrom = chainCfg.DeployBlock
		}

		var eventCfgs []scraper.EventConfig
		for _, g := range games {
			watchers = append(watchers, validator.NewWatcher(validator.Config{
				ChainID:          chainCfg.ChainID,
				Game:             g,
				Backend:          rt.Reader,
				Secrets:          secrets,
				RecoverFromBlock: recoverFrom,
				PollInterval:     chainCfg.PollInterval,
			}))

			for _, eventName := range []string{g.OrderEvent, g.ProcessedEvent} {
				ec, err := scraper.NewEventConfig(rt, eventName)
				if err != nil {
					return nil, err
				}
				eventCfgs = append(eventCfgs, ec)
			}
		}

		scrapers[chainCfg.ChainID] = scraper.New(scraper.Config{
			ChainID:      chainCfg.ChainID,
			Backend:      rt.Reader,
			DeployBlock:  chainCfg.DeployBlock,
			PollInterval: chainCfg.PollInterval,
			MaxRangeSize: chainCfg.MaxRangeSize,
			Events:       eventCfgs,
			Cursors:      cursorRepo,
			Store:        eventRepo,
		})

		if chainCfg.RetentionPeriod > 0 {
			pruners[chainCfg.ChainID] = worker.NewPruner(chainCfg, eventRepo)
		}
	}

	daemon := validator.NewDaemon(watchers)

	// 5. Redis rescan workers
	var redisClient *redisclient.Client
	rescanWorkers := make(map[uint64]*scraper.RescanWorker)
	if cfg.Redis.URL != "" && cfg.RescanRangesEnabled {
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, rescan disabled", "error", err)
		} else {
			for _, chainCfg := range cfg.Chains {
				if !chainCfg.RescanRanges {
					continue
				}
				if s, ok := scrapers[chainCfg.ChainID]; ok {
					rescanWorkers[chainCfg.ChainID] = scraper.NewRescanWorker(
						chainCfg.ChainID, redisClient, s, 30*time.Second)
					slog.Info("Rescan worker initialized", "chain", chainCfg.ChainID)
				}
			}
		}
	}

	// 6. HTTP surface
	checks := map[string]server.HealthChecker{}
	if db != nil {
		checks["database"] = db.Health
	}
	httpServer := server.NewServer(cfg.Port, secrets, daemon, checks)

	return &App{
		cfg:           cfg,
		db:            db,
		redisClient:   redisClient,
		registry:      registry,
		secrets:       secrets,
		locker:        locker,
		wallets:       wallets,
		daemon:        daemon,
		scrapers:      scrapers,
		rescanWorkers: rescanWorkers,
		pruners:       pruners,
		httpServer:    httpServer,
		log:           slog.Default(),
	}, nil
}

// Start launches every component.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.httpServer.Start(); err != nil {
			a.log.Error("HTTP server failed", "error", err)
		}
	}()

	go func() {
		if err := a.daemon.Run(ctx); err != nil {
			a.log.Error("Validator daemon failed", "error", err)
		}
	}()

	for id, s := range a.scrapers {
		a.log.Info("Starting scraper", "chain", id)
		go func(id uint64, s *scraper.Scraper) {
			if err := s.Run(ctx); err != nil {
				a.log.Error("Scraper failed", "chain", id, "error", err)
			}
		}(id, s)
	}

	for id, w := range a.rescanWorkers {
		a.log.Info("Starting rescan worker", "chain", id)
		go func(id uint64, w *scraper.RescanWorker) {
			if err := w.Run(ctx); err != nil {
				a.log.Error("Rescan worker failed", "chain", id, "error", err)
			}
		}(id, w)
	}

	for id, p := range a.pruners {
		a.log.Info("Starting pruner", "chain", id)
		go p.Start(ctx)
	}

	return nil
}

// Stop shuts everything down gracefully.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping validator...")

	if err := a.daemon.Stop(ctx); err != nil {
		a.log.Warn("Daemon stop timed out", "error", err)
	}
	for _, s := range a.scrapers {
		s.Stop()
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	a.registry.Close()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
	return a.httpServer.Stop(ctx)
}

// Wallets exposes the balance service for administrative commands.
func (a *App) Wallets() *wallet.Service {
	return a.wallets
}

// Daemon exposes the validator daemon.
func (a *App) Daemon() *validator.Daemon {
	return a.daemon
}
