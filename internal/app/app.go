package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"goldwatch/internal/alerting"
	"goldwatch/internal/api"
	"goldwatch/internal/config"
	"goldwatch/internal/fetcher"
	"goldwatch/internal/refdata"
	"goldwatch/internal/registry"
	"goldwatch/internal/scheduler"
	"goldwatch/internal/service"
	"goldwatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetchers() (fetcher.SpotPriceFetcher, fetcher.ExchangeRateFetcher) {
	spot := fetcher.NewSpot(fetcher.SpotOptions{
		BaseURL:   a.Config.Sources.Spot.BaseURL,
		Timeout:   a.Config.Sources.Spot.RequestTimeout,
		UserAgent: a.Config.Sources.Spot.UserAgent,
	}, a.Logger)

	fx := fetcher.NewFX(fetcher.FXOptions{
		BaseURL:   a.Config.Sources.FX.BaseURL,
		Timeout:   a.Config.Sources.FX.RequestTimeout,
		UserAgent: a.Config.Sources.FX.UserAgent,
	}, a.Logger)

	return spot, fx
}

func (a *App) newTransport() alerting.Transport {
	if !a.Config.Mail.Enabled {
		return nil
	}
	cfg := a.Config.Mail
	return alerting.NewMailGateway(cfg.GatewayURL, cfg.APIToken, cfg.From, cfg.RequestTimeout, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run starts the refresh and evaluation timers plus the HTTP API and blocks
// until the process is signalled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; alert auditing disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	spot, fx := a.newFetchers()
	cache := refdata.NewCache(spot, fx, a.Logger)
	reg := registry.New()

	transport := a.newTransport()
	if transport == nil {
		a.Logger.Warn().Msg("mail gateway not configured; alerts will be logged only")
	}
	dispatcher := alerting.NewDispatcher(transport, a.Logger)

	var alertStore storage.AlertStore
	if store != nil {
		alertStore = store
	}
	engine := service.New(cache, reg, dispatcher, alertStore, a.Logger)

	refreshSched := scheduler.New(scheduler.Options{
		Name:         "refresh",
		Interval:     a.Config.Refresh.Interval,
		StartupDelay: a.Config.Refresh.StartupDelay,
		Immediate:    true,
	}, a.Logger)

	evalSched := scheduler.New(scheduler.Options{
		Name:         "evaluate",
		Interval:     a.Config.Evaluation.Interval,
		StartupDelay: a.Config.Evaluation.StartupDelay,
	}, a.Logger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = refreshSched.Run(ctx, cache.Refresh)
	}()
	go func() {
		defer wg.Done()
		_ = evalSched.Run(ctx, engine.RunCycle)
	}()

	srv := a.newServer(engine, reg)
	go func() {
		a.Logger.Info().Str("addr", srv.Addr).Msg("http api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error().Err(err).Msg("http server terminated")
			cancel()
		}
	}()

	a.Logger.Info().Msg("monitoring service started")
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error().Err(err).Msg("http shutdown failed")
	}

	wg.Wait()
	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

func (a *App) newServer(engine *service.Engine, reg *registry.Registry) *http.Server {
	if a.Config.App.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api.SetupRoutes(router.Group("/api"), engine, reg, a.Logger)

	return &http.Server{
		Addr:    a.Config.Server.ListenAddr,
		Handler: router,
	}
}

// AlertsOptions configure the alerts listing command.
type AlertsOptions struct {
	Limit int
}
