package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"hail/internal/app"
	"hail/internal/config"
	"hail/internal/event"
	"hail/internal/handler"
	internalRedis "hail/internal/redis"
	"hail/internal/repository/postgres"
	"hail/internal/service"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// New Relic first, so the database driver can be instrumented.
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("new relic init failed", zap.Error(err))
		} else {
			logger.Info("new relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()
	logger.Info("connected to postgres")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.Fatal("redis connect failed", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("connected to redis")

	server, sweeper := wireServer(db, redisClient, nrApp, cfg, logger)

	// The sweeper fails pending rides past their deadline. Starting it before
	// the server also clears rides stranded by an earlier crash.
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sweeper.Run(sweepCtx)

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	stopSweeper()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server and the
// expiry sweeper.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config, logger *zap.Logger) (*http.Server, *service.ExpiryService) {
	// Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Repositories.
	driverRepo := postgres.NewDriverRepository(db)
	passengerRepo := postgres.NewPassengerRepository(db)
	rideRepo := postgres.NewRideRepository(db)
	priceRepo := postgres.NewPriceRepository(db)
	discountRepo := postgres.NewDiscountRepository(db)
	txnRepo := postgres.NewTransactionRepository(db)
	withdrawalRepo := postgres.NewWithdrawalRepository(db)
	txManager := postgres.NewTxManager(db)

	// Event delivery.
	emitter := event.NewLogEmitter(logger)
	notifier := event.NewLogNotifier(logger)

	// Services.
	fareService := service.NewFareService(priceRepo, discountRepo, cacheStore,
		service.WildcardFallback(cfg.Dispatch.WildcardFallback))
	dispatchService := service.NewDispatchService(rideRepo, driverRepo, txManager, locationStore,
		fareService, emitter, notifier, cfg.Dispatch.RadiusM, logger)
	poolingService := service.NewPoolingService(rideRepo, txManager, lockStore, emitter,
		cfg.Dispatch.PoolRadiusM, logger)
	walletService := service.NewWalletService(txManager, driverRepo, passengerRepo,
		txnRepo, locationStore, notifier, logger)
	rideService := service.NewRideService(rideRepo, driverRepo, passengerRepo,
		fareService, dispatchService, poolingService, walletService, emitter,
		cfg.Dispatch.RideTTL, logger)
	driverService := service.NewDriverService(driverRepo, rideRepo, locationStore, logger)
	passengerService := service.NewPassengerService(passengerRepo, driverRepo, locationStore, cfg.Dispatch.RadiusM)
	withdrawalService := service.NewWithdrawalService(txManager, driverRepo, withdrawalRepo, notifier, logger)
	pricingService := service.NewPricingService(priceRepo, discountRepo, passengerRepo, cacheStore, emitter, logger)
	expiryService := service.NewExpiryService(rideRepo, emitter, cfg.Dispatch.SweepInterval, logger)

	// Router.
	router := app.NewRouter(app.RouterDeps{
		RideHandler:      handler.NewRideHandler(rideService, dispatchService),
		DriverHandler:    handler.NewDriverHandler(driverService),
		PassengerHandler: handler.NewPassengerHandler(passengerService),
		WalletHandler:    handler.NewWalletHandler(walletService, withdrawalService, rideService),
		AdminHandler:     handler.NewAdminHandler(pricingService),
		RedisClient:      redisClient,
		NewRelicApp:      nrApp,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return server, expiryService
}
