package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"EnergyMonitorAPI/internal/auth"
	"EnergyMonitorAPI/internal/config"
	"EnergyMonitorAPI/internal/database"
	"EnergyMonitorAPI/internal/handler"
	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/metrics"
	"EnergyMonitorAPI/internal/models"
	"EnergyMonitorAPI/internal/mqtt"
	"EnergyMonitorAPI/internal/ratelimit"
	"EnergyMonitorAPI/internal/repository"
	"EnergyMonitorAPI/internal/server"
	"EnergyMonitorAPI/internal/service"
	"EnergyMonitorAPI/internal/websocket"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		// Fallback logger since main logger isn't ready
		panic("Failed to load configuration: " + err.Error())
	}

	// 2. Initialize Logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Mode:        cfg.Logging.Mode,
		LogFilePath: cfg.Logging.FilePath,
		UseColors:   cfg.Logging.UseColors,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration validation failed: %v", err)
	}

	cfg.Print()
	log.Info("Starting Energy Monitor API Server")

	metrics.Init(nil)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. Database Connection
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal("Failed to migrate database: %v", err)
	}
	log.Info("Database connected (%s)", db.Dialect)

	// 4. Initialize Repositories
	deviceRepo := repository.NewDeviceRepository(db)
	readingRepo := repository.NewReadingRepository(db)
	thresholdRepo := repository.NewThresholdRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	billingRepo := repository.NewBillingRepository(db)

	// 5. Initialize Services
	deviceService := service.NewDeviceService(deviceRepo, auth.NewTokenHasher(cfg.Security.TokenPepper), log)
	thresholdService := service.NewThresholdService(thresholdRepo, log)
	billingService := service.NewBillingService(billingRepo, readingRepo, log)
	readingService := service.NewReadingService(readingRepo, log)
	alertService := service.NewAlertService(alertRepo, log)
	overviewService := service.NewOverviewService(deviceRepo, readingRepo, alertRepo)

	// 6. Seed Data
	if err := applySeed(ctx, cfg, thresholdService, billingService, deviceService, log); err != nil {
		log.Fatal("Failed to seed database: %v", err)
	}

	// 7. Live Events and Limiters
	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	deviceLimiter := ratelimit.New(cfg.Ingest.DeviceRateWindow,
		ratelimit.WithIdleTTL(cfg.Ingest.LimiterIdleTTL),
		ratelimit.WithMaxEntries(cfg.Ingest.LimiterMaxEntries),
	)
	go deviceLimiter.Run(ctx, cfg.Ingest.LimiterSweepPeriod)
	go reportLimiterSize(ctx, deviceLimiter, cfg.Ingest.LimiterSweepPeriod)

	clientLimiter := ratelimit.NewPerMinute(cfg.Security.RateLimitPerMinute)
	go clientLimiter.Run(ctx, time.Minute)

	ingestOpts := []service.IngestOption{
		service.WithPublisher(hub),
		service.WithAlertCooldown(cfg.Ingest.AlertCooldown),
		service.WithWriteTimeout(cfg.Ingest.WriteTimeout),
		service.WithAlertTimeout(cfg.Ingest.AlertTimeout),
		service.WithMaxBodyBytes(cfg.Ingest.MaxBodyBytes),
	}

	// 8. MQTT Client (optional)
	var broker handler.BrokerStatus
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.NewClient(mqtt.ClientConfig{
			MQTT:   &cfg.MQTT,
			Logger: log,
		})
		if err != nil {
			log.Fatal("Failed to create MQTT client: %v", err)
		}
		if err := mqttClient.Connect(); err != nil {
			log.Fatal("Failed to connect to MQTT broker: %v", err)
		}
		defer mqttClient.Disconnect()

		alertPublisher := mqtt.NewAlertPublisher(mqttClient, cfg.MQTT.AlertTopic, 256, log)
		go alertPublisher.Run(ctx)

		ingestOpts = append(ingestOpts, service.WithPublisher(alertPublisher))
		broker = mqttClient
	}

	ingestService := service.NewIngestService(
		deviceService,
		thresholdService,
		readingRepo,
		alertRepo,
		deviceLimiter,
		log,
		ingestOpts...,
	)

	if mqttClient != nil {
		if err := mqttClient.Subscribe(cfg.MQTT.TelemetryTopic, mqtt.TelemetryHandler(ingestService, log)); err != nil {
			log.Fatal("Failed to subscribe to telemetry topic: %v", err)
		}
		log.Info("MQTT ingestion active on %s", cfg.MQTT.TelemetryTopic)
	}

	// 9. Initialize Handlers
	handlers := server.Handlers{
		Ingest:    handler.NewIngestHandler(ingestService, log),
		Reading:   handler.NewReadingHandler(readingService, log),
		Alert:     handler.NewAlertHandler(alertService, log),
		Threshold: handler.NewThresholdHandler(thresholdService, log),
		Device:    handler.NewDeviceHandler(deviceService, log),
		Billing:   handler.NewBillingHandler(billingService, deviceService, log),
		Overview:  handler.NewOverviewHandler(overviewService, log),
		Health:    handler.NewHealthHandler(db, broker, log),
		Live:      websocket.Handler(hub, cfg.Security.CORSAllowedOrigins, log),
		Metrics:   promhttp.Handler(),
	}

	// 10. Start HTTP Server
	srv := server.New(cfg, log)
	srv.RegisterHandlers(handlers, clientLimiter)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("Server failed: %v", err)
		}
	}()

	log.Info("API server ready on http://%s:%d", cfg.Server.Host, cfg.Server.Port)

	// 11. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error: %v", err)
	}
	stop()

	log.Info("Shutdown complete")
}

func applySeed(
	ctx context.Context,
	cfg *config.Config,
	thresholds *service.ThresholdService,
	billing *service.BillingService,
	devices *service.DeviceService,
	log *logger.Logger,
) error {
	var seed config.Seed
	if cfg.SeedFile != "" {
		loaded, err := config.LoadSeed(cfg.SeedFile)
		if err != nil {
			return err
		}
		seed = *loaded
		log.Info("Loaded seed file %s", cfg.SeedFile)
	}

	var set *models.ThresholdSet
	if t := seed.Thresholds; t != nil {
		set = &models.ThresholdSet{
			Overvoltage:          t.Overvoltage,
			Undervoltage:         t.Undervoltage,
			Overcurrent:          t.Overcurrent,
			HighPower:            t.HighPower,
			DeviceOfflineSeconds: t.DeviceOfflineSeconds,
		}
	}
	if err := thresholds.Seed(ctx, set); err != nil {
		return err
	}

	if seed.RatePerKwh > 0 {
		if err := billing.SeedRate(ctx, seed.RatePerKwh); err != nil {
			return err
		}
	}

	return devices.SeedDevices(ctx, seed.Devices)
}

func reportLimiterSize(ctx context.Context, limiter *ratelimit.KeyedLimiter, period time.Duration) {
	if period <= 0 {
		period = time.Minute
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetLimiterKeys(limiter.Len())
		}
	}
}
