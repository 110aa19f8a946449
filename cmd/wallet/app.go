package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"wallet/internal/config"
	"wallet/internal/database"
	"wallet/internal/jobs"
	"wallet/internal/lock"
	"wallet/internal/logger"
	"wallet/internal/notify"
	"wallet/internal/provider"
	"wallet/internal/services"
)

// app wires configuration, storage and collaborators for one command run.
type app struct {
	cfg        *config.Config
	db         *database.Manager
	redis      *redis.Client
	rates      *provider.ExchangeRates
	notifier   jobs.Notifier
	users      services.UserServicer
	accounts   services.AccountServicer
	txns       services.TransactionServicer
	portfolios services.PortfolioServicer
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	loc, err := time.LoadLocation(cfg.ReportingTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid reporting timezone: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return nil, err
	}
	if err := dbManager.RunMigrations(); err != nil {
		_ = dbManager.Close()
		return nil, err
	}

	a := &app{cfg: cfg, db: dbManager}
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	var locker services.Locker = lock.NewLocalLocker()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			_ = dbManager.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		a.redis = redis.NewClient(opts)
		locker = lock.NewRedisLocker(a.redis, "wallet:", 10*time.Minute)
	}

	if cfg.PlivoID != "" {
		a.notifier = notify.NewPlivoNotifier(httpClient, cfg.PlivoID, cfg.PlivoToken, cfg.PlivoSrc, cfg.PlivoDst)
	} else {
		a.notifier = notify.LogNotifier{}
	}

	db := dbManager.DB()
	audit := services.NewAuditService(db)
	a.rates = provider.NewExchangeRates(httpClient, cfg.ExchangeRateTTL)
	entries := services.NewEntryService(db, a.rates, audit)
	a.users = services.NewUserService(db)
	a.accounts = services.NewAccountService(db)
	a.txns = services.NewTransactionService(db, entries, a.rates)

	var sources []services.PortfolioDataSource
	if cfg.M1Token != "" {
		sources = append(sources, provider.NewM1Source(httpClient, cfg.M1URL, cfg.M1Token, loc,
			provider.RetryPolicy{MaxAttempts: cfg.RetryAttempts, Backoff: cfg.RetryBackoff}))
	} else {
		logger.Get().Warn("M1_TOKEN not set, no portfolio data source configured")
	}
	a.portfolios = services.NewPortfolioSnapshotService(db, services.NewReportingClock(loc), locker, audit, sources...)

	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := a.db.Close(); err != nil {
		logger.Get().Warnw("failed to close database", "error", err)
	}
}
