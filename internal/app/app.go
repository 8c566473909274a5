package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/sally-https/book-api-v2/internal/admin"
	"github.com/sally-https/book-api-v2/internal/auth"
	"github.com/sally-https/book-api-v2/internal/book"
	"github.com/sally-https/book-api-v2/internal/config"
	"github.com/sally-https/book-api-v2/internal/db"
	"github.com/sally-https/book-api-v2/internal/health"
	"github.com/sally-https/book-api-v2/internal/kafka"
	"github.com/sally-https/book-api-v2/internal/loan"
	"github.com/sally-https/book-api-v2/internal/logger"
	"github.com/sally-https/book-api-v2/internal/messaging"
	"github.com/sally-https/book-api-v2/internal/metrics"
	"github.com/sally-https/book-api-v2/internal/middleware"
	"github.com/sally-https/book-api-v2/internal/notification"
	"github.com/sally-https/book-api-v2/internal/report"
	"github.com/sally-https/book-api-v2/internal/smsgateway"
	"github.com/sally-https/book-api-v2/internal/student"
	"github.com/sally-https/book-api-v2/internal/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
)

type App struct {
	config    *config.Config
	router    chi.Router
	server    *http.Server
	logger    *slog.Logger
	db        *bun.DB
	telemetry *telemetry.Telemetry
	producer  notification.Producer
	consumer  *notification.Consumer
	cancel    context.CancelFunc
}

func New() *App {
	slogLogger := logger.NewWithServiceContext(ServiceName, Version)

	// Set as default logger so slog.Info() uses JSON format
	slog.SetDefault(slogLogger)

	slogLogger.Info("initializing application")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	slogLogger.Info("config loaded", "env", cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		config: cfg,
		router: chi.NewRouter(),
		logger: slogLogger,
		cancel: cancel,
	}

	tel, err := telemetry.Init(ctx, ServiceName, Version, slogLogger)
	if err != nil {
		slogLogger.Warn("failed to initialize telemetry, metrics disabled", "error", err)
		tel = &telemetry.Telemetry{Metrics: metrics.NewMock()}
	}
	app.telemetry = tel
	m := tel.Metrics

	database := db.New(cfg.Database)
	app.db = database

	if err := db.RunMigrations(ctx, database,
		(*student.Student)(nil),
		(*admin.Admin)(nil),
		(*book.Book)(nil),
		(*loan.Loan)(nil),
		(*auth.RefreshToken)(nil),
	); err != nil {
		log.Fatal("failed to run migrations:", err)
	}

	if err := m.Database.RegisterDB(database.DB, otel.Meter(ServiceName)); err != nil {
		slogLogger.Warn("failed to register database pool metrics", "error", err)
	}

	// Apply CORS middleware globally
	app.router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	// Health endpoints (no auth required)
	healthHandler := health.NewHandler()
	healthHandler.RegisterRoutes(app.router)

	// Repositories
	studentRepo := student.NewRepository(database, m)
	adminRepo := admin.NewRepository(database, m)
	bookRepo := book.NewRepository(database, m)
	loanRepo := loan.NewRepository(m)
	authRepo := auth.NewRepository(database, m)

	// Seed the first admin account on an empty database
	adminService := admin.NewService(adminRepo)
	if err := adminService.EnsureDefault(ctx, cfg.Admin, slogLogger); err != nil {
		slogLogger.Warn("failed to seed admin account", "error", err)
	}

	// Notification producer, backend per config
	app.producer = app.newProducer(m)

	var notifier loan.Notifier
	if app.producer != nil {
		notifier = notification.NewDispatcher(studentRepo, bookRepo, app.producer, slogLogger)
	}

	// Services
	studentService := student.NewService(studentRepo, authRepo)
	bookService := book.NewService(bookRepo, book.NewRandomIDAllocator())
	loanService := loan.NewService(database, loanRepo, bookRepo, loan.NewRandomCodeGenerator(), notifier, slogLogger, m)
	authService := auth.NewService(authRepo,
		student.NewAuthenticator(studentService, studentRepo),
		admin.NewAuthenticator(adminRepo))

	// Handlers
	authHandler := auth.NewHandler(authService, slogLogger)
	adminHandler := admin.NewHandler(adminService, slogLogger)
	studentHandler := student.NewHandler(studentService, slogLogger, m)
	bookHandler := book.NewHandler(bookService, slogLogger, m)
	loanHandler := loan.NewHandler(loanService, slogLogger)
	reportHandler := report.NewHandler(report.NewRepository(database, m), slogLogger)

	// Public auth endpoints
	authHandler.RegisterRoutes(app.router)

	app.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleStudent))
			loanHandler.RegisterStudentRoutes(r)
			bookHandler.RegisterStudentRoutes(r)
			studentHandler.RegisterStudentRoutes(r)
			reportHandler.RegisterStudentRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleAdmin))
			adminHandler.RegisterAdminRoutes(r)
			studentHandler.RegisterAdminRoutes(r)
			bookHandler.RegisterAdminRoutes(r)
			reportHandler.RegisterAdminRoutes(r)
		})
	})

	// SMS worker, NATS backend only: JetStream redelivers until acked
	app.startConsumer(ctx, m)

	slogLogger.Info("application initialized successfully")

	return app
}

func (a *App) newProducer(m *metrics.Metrics) notification.Producer {
	switch a.config.Notifications.Backend {
	case "nats":
		producer, err := messaging.NewProducer(a.config.NATS.URL, a.config.NATS.Stream, a.config.NATS.Subject, a.logger, m)
		if err != nil {
			a.logger.Warn("failed to initialize NATS producer, notifications disabled", "error", err)
			return nil
		}
		return producer
	case "kafka":
		producer, err := kafka.NewProducer(a.config.Kafka.Brokers, a.config.Kafka.Topic, a.logger, m)
		if err != nil {
			a.logger.Warn("failed to initialize kafka producer, notifications disabled", "error", err)
			return nil
		}
		return producer
	default:
		a.logger.Info("no notification backend configured")
		return nil
	}
}

func (a *App) startConsumer(ctx context.Context, m *metrics.Metrics) {
	if a.config.Notifications.Backend != "nats" || a.config.SMS.URL == "" {
		return
	}

	sender := smsgateway.NewSender(a.config.SMS)
	consumer, err := notification.NewConsumer(a.config.NATS.URL, a.config.NATS.Stream, a.config.NATS.Subject, sender, a.logger, m)
	if err != nil {
		a.logger.Warn("failed to initialize notification consumer", "error", err)
		return
	}

	a.consumer = consumer
	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("notification consumer stopped", "error", err)
		}
	}()
}

func (a *App) Run() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	a.logger.Info("server starting", "port", a.config.Server.Port)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")

	err := a.server.Shutdown(ctx)

	a.cancel()

	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.producer != nil {
		_ = a.producer.Close()
	}

	db.Close(a.db)

	if a.telemetry.MeterProvider != nil {
		_ = telemetry.Shutdown(ctx, a.telemetry.MeterProvider, a.logger)
	}

	return err
}
