package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/apetros/valuecycle/internal/clients/etrade"
	"github.com/apetros/valuecycle/internal/clients/yahoo"
	"github.com/apetros/valuecycle/internal/config"
	"github.com/apetros/valuecycle/internal/domain"
	"github.com/apetros/valuecycle/internal/engine"
	"github.com/apetros/valuecycle/internal/modules/allocation"
	"github.com/apetros/valuecycle/internal/modules/history"
	"github.com/apetros/valuecycle/internal/modules/portfolio"
	"github.com/apetros/valuecycle/internal/modules/risk"
	"github.com/apetros/valuecycle/internal/modules/scoring"
	"github.com/apetros/valuecycle/internal/modules/signals"
	"github.com/apetros/valuecycle/internal/modules/trading"
	"github.com/apetros/valuecycle/internal/modules/window"
	"github.com/apetros/valuecycle/internal/scheduler"
	"github.com/apetros/valuecycle/internal/server"
	"github.com/apetros/valuecycle/internal/storage"
	"github.com/apetros/valuecycle/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootstrap := logger.New(logger.Config{Level: "info", Pretty: true})
		bootstrap.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Str("mode", cfg.Mode).Msg("Starting valuecycle")

	store := storage.NewStore(log)

	// Local daily price cache
	histDB, err := history.Open(cfg.HistoryDBFile(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer histDB.Close()

	market := yahoo.NewClient(log)

	// Brokerage client. In SIM mode it is optional and only supplies
	// live quotes; without credentials the windows fall back to the
	// last historical close.
	var broker domain.BrokerClient
	if cfg.Mode == "REAL" || cfg.BrokerConsumerKey != "" {
		broker = etrade.NewClient(cfg, log)
	}

	// Risk trackers
	wash, err := risk.NewWashSaleTracker(cfg.Risk, store, cfg.WashSaleFile(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load wash sale list")
	}
	gate := risk.NewGate(cfg.Risk, wash, risk.NewSettlementTracker(log), log)

	tracker, err := portfolio.NewTracker(store, cfg.PortfolioStateFile(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load portfolio state")
	}

	// Execution path per mode
	var (
		executor     trading.Executor
		ledger       *trading.LedgerRepository
		accountIDKey string
	)
	if cfg.Mode == "REAL" {
		accountIDKey, err = selectAccount(broker, cfg.BrokerAccountID, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to select brokerage account")
		}
		executor = trading.NewLiveExecutor(broker, accountIDKey, log)

		if err := tracker.SyncFromBroker(broker, accountIDKey); err != nil {
			log.Fatal().Err(err).Msg("Failed to sync portfolio from broker")
		}
	} else {
		ledger, err = trading.NewLedgerRepository(store, cfg.TradesFile(), log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load trade ledger")
		}
		executor = trading.NewSimExecutor(ledger, log)

		if err := tracker.SyncFromLedger(ledger.All(), cfg.InitialCash); err != nil {
			log.Fatal().Err(err).Msg("Failed to replay trade ledger")
		}
	}

	scorer := scoring.NewScorer(cfg.Scoring, log)
	calc := window.NewCalculator(cfg.Window, log)

	eng, err := engine.New(engine.Deps{
		Config:       cfg,
		Broker:       broker,
		Market:       market,
		History:      histDB,
		Scorer:       scorer,
		Windows:      calc,
		Allocator:    allocation.NewAllocator(cfg.Sector, log),
		Gate:         gate,
		Generator:    signals.NewGenerator(cfg.Signals, scorer, calc, log),
		Sizer:        trading.NewSizer(cfg.Risk),
		Executor:     executor,
		Ledger:       ledger,
		Tracker:      tracker,
		AccountIDKey: accountIDKey,
		Logger:       log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize engine")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initial data load before the first cycle
	eng.RefreshData(ctx)

	// Background jobs
	sched := scheduler.New(log)
	if err := registerJobs(sched, cfg, eng, broker, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}
	sched.Start()
	defer sched.Stop()

	// Status API
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		Engine:  eng,
		Ledger:  ledger,
		Mode:    cfg.Mode,
		DevMode: cfg.DevMode,
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Main trading loop, blocks until SIGINT/SIGTERM
	sched.Poll(ctx, cfg.PollInterval, eng.RunCycle)

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Stopped")
}

// selectAccount picks the configured brokerage account, or the first
// one when no preference is set
func selectAccount(broker domain.BrokerClient, preferred string, log zerolog.Logger) (string, error) {
	accounts, err := broker.ListAccounts()
	if err != nil {
		return "", fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return "", errors.New("no active brokerage accounts")
	}

	if preferred != "" {
		for _, acct := range accounts {
			if acct.AccountID == preferred {
				log.Info().Str("account", acct.AccountID).Msg("Using configured account")
				return acct.AccountIDKey, nil
			}
		}
		return "", fmt.Errorf("account %s not found", preferred)
	}

	log.Info().Str("account", accounts[0].AccountID).Msg("Using first account")
	return accounts[0].AccountIDKey, nil
}

// registerJobs wires the periodic maintenance jobs
func registerJobs(sched *scheduler.Scheduler, cfg *config.Config, eng *engine.Engine, broker domain.BrokerClient, log zerolog.Logger) error {
	// Nightly refresh of history and fundamentals, before the open
	err := sched.AddJob("0 6 * * MON-FRI", scheduler.FuncJob{
		JobName: "data-refresh",
		Fn: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			eng.RefreshData(ctx)
			return nil
		},
	})
	if err != nil {
		return err
	}

	// Brokerage sessions idle out; keep the token alive
	if broker != nil {
		renew := fmt.Sprintf("@every %s", cfg.SessionRenewEvery)
		err = sched.AddJob(renew, scheduler.FuncJob{
			JobName: "session-renewal",
			Fn: func() error {
				ok, err := broker.RenewSession()
				if err != nil {
					return err
				}
				if !ok {
					log.Warn().Msg("Session renewal rejected, re-authentication may be required")
				}
				return nil
			},
		})
		if err != nil {
			return err
		}
	}

	return nil
}
