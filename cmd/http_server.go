package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/venue-management/internal"
	"github.com/frahmantamala/venue-management/internal/auth"
	authPostgres "github.com/frahmantamala/venue-management/internal/auth/postgres"
	"github.com/frahmantamala/venue-management/internal/core/events"
	"github.com/frahmantamala/venue-management/internal/invitation"
	invitationPostgres "github.com/frahmantamala/venue-management/internal/invitation/postgres"
	"github.com/frahmantamala/venue-management/internal/notification"
	"github.com/frahmantamala/venue-management/internal/payment"
	paymentPostgres "github.com/frahmantamala/venue-management/internal/payment/postgres"
	"github.com/frahmantamala/venue-management/internal/paymentgateway"
	"github.com/frahmantamala/venue-management/internal/staff"
	staffPostgres "github.com/frahmantamala/venue-management/internal/staff/postgres"
	"github.com/frahmantamala/venue-management/internal/transport"
	"github.com/frahmantamala/venue-management/internal/transport/middleware"
	"github.com/frahmantamala/venue-management/internal/transport/rest"
	"github.com/frahmantamala/venue-management/internal/user"
	userPostgres "github.com/frahmantamala/venue-management/internal/user/postgres"
	"github.com/frahmantamala/venue-management/internal/venue"
	venuePostgres "github.com/frahmantamala/venue-management/internal/venue/postgres"
	"github.com/frahmantamala/venue-management/pkg/bus"
	"github.com/frahmantamala/venue-management/pkg/logger"
	"github.com/frahmantamala/venue-management/pkg/telemetry"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

const eventStream = "VENUE_EVENTS"

type Dependencies struct {
	Config     *internal.Config
	DB         *sqlx.DB
	Gorm       *gorm.DB
	Router     http.Handler
	EventBus   *events.EventBus
	Broker     *bus.Bus
	Dispatcher *notification.Dispatcher
	Registry   *prometheus.Registry
	Tracing    telemetry.ShutdownFunc
	Logger     *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		deps.shutdown(ctx)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

// shutdown stops background work in dependency order: in-flight events first,
// then queued notifications, then the broker, tracer and database.
func (d *Dependencies) shutdown(ctx context.Context) {
	if err := d.EventBus.Drain(ctx); err != nil {
		d.Logger.Warn("event bus drain interrupted", "error", err)
	}
	d.Dispatcher.Shutdown()
	d.Broker.Close()
	if d.Tracing != nil {
		if err := d.Tracing(ctx); err != nil {
			d.Logger.Error("tracer shutdown error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db.DB, "postgres"),
	)

	deps := &Dependencies{
		Config:   config,
		DB:       db,
		Gorm:     gormDB,
		Registry: registry,
		Logger:   log,
	}

	var tracing func(http.Handler) http.Handler
	if config.Observability.Tracing.Enabled {
		shutdown, mw, err := telemetry.Init(ctx, telemetry.Options{
			ServiceName:  config.Observability.Tracing.ServiceName,
			Endpoint:     config.Observability.Tracing.Endpoint,
			SamplingRate: config.Observability.Tracing.SamplingRate,
		})
		if err != nil {
			return nil, err
		}
		deps.Tracing = shutdown
		tracing = mw
	}

	eventBus, broker, err := initEventBus(config.Messaging, registry, log)
	if err != nil {
		return nil, err
	}
	deps.EventBus = eventBus
	deps.Broker = broker

	sender := newSender(config.Notification, log)
	dispatcher, err := notification.NewDispatcher(sender, notification.DispatcherConfig{
		MaxWorkers: config.Notification.MaxWorkers,
		QueueSize:  config.Notification.QueueSize,
	}, registry, log)
	if err != nil {
		return nil, fmt.Errorf("failed to start notification dispatcher: %w", err)
	}
	deps.Dispatcher = dispatcher

	// repositories
	userRepo := userPostgres.NewUserRepository(gormDB)
	authRepo := authPostgres.NewRepository(gormDB)
	staffRepo := staffPostgres.NewStaffRepository(gormDB)
	roster := staffPostgres.NewRoster(db)
	invitationRepo := invitationPostgres.NewInvitationRepository(gormDB)
	venueRepo := venuePostgres.NewVenueRepository(gormDB)
	paymentRepo := paymentPostgres.NewPaymentRepository(gormDB)

	// services
	hasher := auth.NewBcryptHasher(config.Security.BCryptCost)
	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)

	userService := user.NewService(userRepo, log)
	authService := auth.NewService(authRepo, tokenGen, auth.Options{
		Hasher:    hasher,
		Notifier:  dispatcher,
		Events:    eventBus,
		ResetTTL:  config.App.PasswordResetTTL,
		PublicURL: config.App.PublicURL,
	}, log)
	staffService := staff.NewService(staffRepo, roster, invitationRepo, venueRepo, staff.Options{
		Sender:        sender,
		Events:        eventBus,
		InvitationTTL: config.App.InvitationTTL,
		PublicURL:     config.App.PublicURL,
	}, log)
	invitationService := invitation.NewService(invitationRepo, hasher, eventBus, log)
	venueService := venue.NewService(venueRepo, staffService, eventBus, log)

	gatewayClient := paymentgateway.NewClient(paymentgateway.Config{
		BaseURL: config.Payment.APIURL,
		APIKey:  config.Payment.APIKey,
		Timeout: config.Payment.Timeout,
	}, log)
	paymentService := payment.NewService(paymentRepo, gatewayClient, staffService, payment.Options{
		Events:           eventBus,
		WebhookSecret:    config.Payment.WebhookSecret,
		WebhookTolerance: config.Payment.WebhookTolerance,
		Country:          config.Payment.Country,
	}, log)
	payment.NewEventHandler(staffRepo, venueRepo, dispatcher, log).RegisterEventHandlers(eventBus)

	httpMetrics, err := middleware.NewHTTPMetrics(registry)
	if err != nil {
		return nil, err
	}

	deps.Router = rest.NewRouter(rest.Dependencies{
		DB:                      db,
		Auth:                    auth.NewHandler(authService),
		User:                    user.NewHandler(transport.NewBaseHandler(log), userService),
		Venue:                   venue.NewHandler(venueService),
		Staff:                   staff.NewHandler(staffService),
		Invitation:              invitation.NewHandler(invitationService),
		Payment:                 payment.NewHandler(paymentService),
		Webhook:                 payment.NewWebhookHandler(paymentService, log),
		RBAC:                    staff.NewRBACAuthorization(staffService, log),
		Metrics:                 httpMetrics,
		Gatherer:                gatherer(config.Observability.Metrics, registry),
		Tracing:                 tracing,
		AllowedOrigins:          config.Server.Origins(),
		PublicRequestsPerMinute: config.RateLimit.PublicRequestsPerMinute,
		MetricsPath:             config.Observability.Metrics.Path,
	}, log)

	return deps, nil
}

// gatherer returns nil when the metrics endpoint is disabled; collectors still
// run so enabling it needs no other change.
func gatherer(cfg internal.MetricsConfig, reg *prometheus.Registry) prometheus.Gatherer {
	if !cfg.Enabled {
		return nil
	}
	return reg
}

// initDB opens the shared pgx pool. sqlx and gorm both sit on top of it.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Open(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	})
}

// initEventBus builds the in-process bus with its standing subscribers. When a
// NATS URL is configured every event is also forwarded to JetStream.
func initEventBus(cfg internal.MessagingConfig, reg prometheus.Registerer, log *slog.Logger) (*events.EventBus, *bus.Bus, error) {
	eventBus := events.NewEventBus(log)
	eventBus.SubscribeMany(events.AllEventTypes, events.AuditHandler(log))

	counter, err := events.NewEventCounter(reg)
	if err != nil {
		return nil, nil, err
	}
	eventBus.SubscribeMany(events.AllEventTypes, counter.Handler())

	if cfg.NATSURL == "" {
		return eventBus, nil, nil
	}

	broker, err := bus.New(cfg.NATSURL, nats.Name("venue-management"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if err := broker.EnsureStream(eventStream, cfg.SubjectPrefix+".>"); err != nil {
		broker.Close()
		return nil, nil, fmt.Errorf("failed to ensure event stream: %w", err)
	}

	forwarder := events.NewForwarder(broker, cfg.SubjectPrefix)
	eventBus.SubscribeMany(events.AllEventTypes, forwarder.Handler())
	return eventBus, broker, nil
}

func newSender(cfg internal.NotificationConfig, log *slog.Logger) notification.Sender {
	if cfg.Driver == "smtp" {
		return notification.NewSMTPSender(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.From,
		})
	}
	return notification.NewLogSender(log)
}
