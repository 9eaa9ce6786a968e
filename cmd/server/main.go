package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farm-store/config"
	"farm-store/internal/api"
	"farm-store/internal/broker"
	"farm-store/internal/docstore"
	"farm-store/internal/models"
	"farm-store/internal/notify"
	"farm-store/internal/redisclient"
	"farm-store/internal/service"
	"farm-store/internal/store"
	"farm-store/internal/token"
	"farm-store/internal/util"
	"farm-store/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting farm store", zap.String("env", cfg.Server.Env), zap.String("base_url", cfg.Server.BaseURL))

	shutdownTracer, err := util.InitTracer(util.TracingConfig{
		ServiceName:    "farm-store",
		Environment:    cfg.Server.Env,
		JaegerEndpoint: cfg.Observ.JaegerEndpoint,
		SampleRatio:    cfg.Observ.TraceSampleRatio,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx)
	migrateCancel()
	if err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}
	logger.Info("Database connected")

	readyChecks := map[string]api.Pinger{"postgres": db}

	var redisClient *redisclient.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		readyChecks["redis"] = redisClient
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	var docs docstore.Store
	switch cfg.Store.Backend {
	case "redis":
		docs = redisClient
	default:
		fileStore, err := docstore.NewFileStore(cfg.Store.Dir)
		if err != nil {
			logger.Fatal("Failed to open document store", zap.Error(err))
		}
		docs = fileStore
	}

	trackingTokens, err := token.NewIssuer([]byte(cfg.Auth.TokenSecret), "tracking")
	if err != nil {
		logger.Fatal("Failed to create tracking token issuer", zap.Error(err))
	}
	resetTokens, err := token.NewIssuer([]byte(cfg.Auth.TokenSecret), "password-reset")
	if err != nil {
		logger.Fatal("Failed to create reset token issuer", zap.Error(err))
	}

	catalogService := service.NewCatalogService(docs)
	settingsService := service.NewSettingsService(docs, models.Settings{
		OwnerWhatsApp: cfg.Chat.OwnerWhatsApp,
		OwnerEmail:    cfg.Mail.OwnerEmail,
		PaymentInstructions: models.PaymentInstructions{
			BankAccount: cfg.Business.BankAccount,
			UPI:         cfg.Business.UPI,
			Note:        cfg.Business.PaymentNote,
		},
	})

	notifyCfg := notify.Config{
		Settings:   settingsService,
		Links:      notify.TrackingLinks{Issuer: trackingTokens, BaseURL: cfg.Server.BaseURL},
		OwnerEmail: cfg.Mail.OwnerEmail,
		ShopName:   cfg.Business.ShopName,
	}
	if cfg.Mail.Enabled() {
		notifyCfg.Mailer = notify.NewSMTPMailer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Password)
	} else {
		logger.Warn("SMTP not configured, email notifications disabled")
	}
	if cfg.Chat.Enabled() {
		notifyCfg.Chat = notify.NewTwilioClient(cfg.Chat.TwilioAccountSID, cfg.Chat.TwilioAuthToken, cfg.Chat.WhatsAppFrom)
	} else {
		logger.Info("Twilio not configured, WhatsApp notifications disabled")
	}
	dispatcher := notify.NewDispatcher(notifyCfg)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var notifier service.Notifier = dispatcher
	var notificationWorker *worker.NotificationWorker
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		notifier = broker.NewEventPublisher(producer, dispatcher)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
		notificationWorker = worker.NewNotificationWorker(consumer, dispatcher)
		go func() {
			if err := notificationWorker.Start(workerCtx); err != nil {
				logger.Error("Notification worker error", zap.Error(err))
			}
		}()
	} else {
		logger.Info("No Kafka brokers configured, dispatching notifications inline")
	}

	orderService := service.NewOrderService(db, catalogService, notifier)
	paymentService := service.NewPaymentService(orderService)
	accountService := service.NewAccountService(db, db, resetTokens, dispatcher, cfg.Server.BaseURL,
		time.Duration(cfg.Business.ResetLinkMaxAgeMinutes)*time.Minute)
	adminService := service.NewAdminService(cfg.Auth.AdminUsername, cfg.Auth.AdminPassword,
		db, db, catalogService, settingsService)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := api.Options{
		Orders:         orderService,
		Payments:       paymentService,
		Accounts:       accountService,
		Catalog:        catalogService,
		Settings:       settingsService,
		Console:        adminService,
		TrackingTokens: trackingTokens,
		TrackingMaxAge: time.Duration(cfg.Business.TrackingLinkMaxAgeHours) * time.Hour,
		Sessions:       api.NewSessionStore([]byte(cfg.Auth.SessionKey), cfg.Auth.CookieSecure),
		SubmitWindow:   time.Duration(cfg.Business.SubmitRateLimitSeconds) * time.Second,
		ReadyChecks:    readyChecks,
	}
	if redisClient != nil {
		opts.Limiter = redisClient
	}

	router, err := api.NewRouter(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Fatal("Failed to create router", zap.Error(err))
	}
	handler := api.NewHandler(opts)
	handler.SetupRoutes(router)

	var root http.Handler = router
	if cfg.Auth.CSRFKey != "" {
		root = api.CSRFProtect([]byte(cfg.Auth.CSRFKey), cfg.Auth.CookieSecure)(router)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if notificationWorker != nil {
		if err := notificationWorker.Stop(); err != nil {
			logger.Warn("Error stopping notification worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
