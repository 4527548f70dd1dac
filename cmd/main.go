package main

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

	"loan-agreement-engine/internal/api"
	"loan-agreement-engine/internal/api/middleware"
	"loan-agreement-engine/internal/batch"
	"loan-agreement-engine/internal/config"
	"loan-agreement-engine/internal/domain/agreement"
	"loan-agreement-engine/internal/domain/interview"
	"loan-agreement-engine/internal/domain/lender"
	"loan-agreement-engine/internal/domain/reminder"
	"loan-agreement-engine/internal/event"
	"loan-agreement-engine/internal/infrastructure/database/postgres"
	"loan-agreement-engine/internal/infrastructure/logging"
	"loan-agreement-engine/internal/infrastructure/session"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	defaultSweepSchedule   = "*/5 * * * *"
	defaultDispatchTimeout = 10 * time.Minute
	sweepTimeout           = time.Minute
)

type components struct {
	services    api.Services
	dispatchJob *batch.ReminderDispatchJob
	sweepJob    *batch.InterviewSweepJob
}

// @title Loan Agreement Engine API
// @version 1.0
// @description Chat-driven personal loan agreements with installment ledger and reminders.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
func main() {
	cfg, logger := initializeApp()

	dbPool := initializeDatabase(cfg, logger)
	defer closeDatabase(dbPool, logger)

	rabbitMQConn, err := setupRabbitMQ(cfg, logger)
	if err != nil {
		logger.Error("RabbitMQ is required for outbound chat messages", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = initializeRedisClient(cfg, logger)
	} else {
		logger.Info("Redis disabled; interview sessions and rate limits are kept in process.")
	}
	rateLimiter := initializeRateLimiter(cfg, redisClient, logger)

	app := initializeServices(cfg, dbPool, rabbitMQConn, redisClient, logger)

	cronScheduler := startBatchJobs(cfg, logger, app.dispatchJob, app.sweepJob)
	consumer := startChatConsumer(cfg, rabbitMQConn, app.services.Chat, logger)
	router := api.SetupRouter(app.services, rateLimiter, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, consumer, rabbitMQConn, redisClient, rateLimiter, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

func initializeDatabase(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	if cfg.Database.MigrateOnStart {
		logger.Info("Applying database migrations...")
		if err := postgres.RunMigrations(cfg.Database.URL, logger); err != nil {
			logger.Error("Failed to apply database migrations", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	return dbPool
}

func closeDatabase(dbPool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("Closing database connection pool...")
	dbPool.Close()
}

func initializeRateLimiter(cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) *middleware.RateLimiterMiddleware {
	var counter middleware.RedisCounter
	if redisClient != nil {
		counter = redisClient
	}
	return middleware.NewRateLimiterMiddleware(cfg.Server.RateLimit, counter, logger)
}

func reminderPolicy(cfg *config.Config) reminder.Policy {
	return reminder.Policy{
		DaysBeforeDue:            cfg.Reminder.DaysBeforeDue,
		InstallmentDaysBeforeDue: cfg.Installment.DaysBeforeDue,
		CheckIntervalHours:       cfg.Reminder.CheckIntervalHours,
		BatchLimit:               cfg.Reminder.BatchLimit,
	}
}

func newSessionStore(cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) interview.SessionStore {
	if redisClient != nil {
		logger.Info("Interview sessions stored in Redis", "ttl", cfg.Interview.SessionTTL)
		return session.NewRedisStore(redisClient, cfg.Interview.SessionTTL, logger)
	}
	logger.Info("Interview sessions stored in memory", "ttl", cfg.Interview.SessionTTL)
	return interview.NewMemoryStore(cfg.Interview.SessionTTL)
}

func initializeServices(cfg *config.Config, dbPool *pgxpool.Pool, rabbitConn *amqp.Connection, redisClient *redis.Client, logger *slog.Logger) components {
	logger.Info("Initializing application components...")

	eventPublisher, err := event.NewRabbitMQEventPublisher(rabbitConn, cfg.RabbitMQ.ExchangeName, logger)
	if err != nil {
		logger.Error("Failed to initialize event publisher", "error", err)
		os.Exit(1)
	}
	sender := event.ChatSender{Publisher: eventPublisher}

	agreementRepo := postgres.NewAgreementRepository(dbPool, logger)
	lenderRepo := postgres.NewLenderRepository(dbPool, logger)
	reminderRepo := postgres.NewReminderRepository(dbPool, logger)

	lenders := lender.NewService(lenderRepo, logger)
	lifecycle := agreement.NewLifecycleService(agreementRepo, eventPublisher, logger)
	ledger := agreement.NewLedgerService(agreementRepo, eventPublisher, logger)

	engine, err := reminder.NewEngine(reminderRepo, reminderPolicy(cfg), logger)
	if err != nil {
		logger.Error("Invalid reminder policy configuration", "error", err)
		os.Exit(1)
	}

	machine := interview.NewMachine(newSessionStore(cfg, redisClient, logger), lifecycle, lenders, sender, logger)
	responder := interview.NewBorrowerResponder(lifecycle, lenders, sender, logger)
	commands := interview.NewOwnerCommands(lifecycle, ledger, engine, lenders, sender, logger)

	return components{
		services: api.Services{
			Chat:      interview.NewDispatcher(machine, responder, commands, logger),
			Lifecycle: lifecycle,
			Ledger:    ledger,
			Reminders: engine,
		},
		dispatchJob: batch.NewReminderDispatchJob(engine, eventPublisher, logger),
		sweepJob:    batch.NewInterviewSweepJob(machine, logger),
	}
}

func startChatConsumer(cfg *config.Config, rabbitConn *amqp.Connection, handler event.InboundHandler, logger *slog.Logger) *event.ChatConsumer {
	if cfg.RabbitMQ.InboundQueue == "" {
		logger.Info("Inbound chat queue not configured; messages arrive over HTTP only.")
		return nil
	}
	consumer, err := event.NewChatConsumer(rabbitConn, cfg.RabbitMQ.ExchangeName, cfg.RabbitMQ.InboundQueue,
		cfg.RabbitMQ.ConsumerTag, handler, logger)
	if err != nil {
		logger.Error("Failed to create inbound chat consumer", slog.Any("error", err))
		os.Exit(1)
	}
	if err := consumer.Start(context.Background()); err != nil {
		logger.Error("Failed to start inbound chat consumer", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Inbound chat consumer started", "queue", cfg.RabbitMQ.InboundQueue)
	return consumer
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, consumer *event.ChatConsumer, rabbitConn *amqp.Connection, redisClient *redis.Client,
	rateLimiter *middleware.RateLimiterMiddleware, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	triggerReason := waitForShutdownTrigger(shutdownChan, serverErrors, logger)

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	stopCronScheduler(cronScheduler, logger)
	shutdownHTTPServer(srv, serverErrors, logger)
	if consumer != nil {
		consumer.Stop()
	}
	if rateLimiter != nil {
		rateLimiter.Stop()
	}
	closeRabbitMQConnection(rabbitConn, logger)
	closeRedisClient(redisClient, logger)

	logger.Info("Application shutdown process complete.")
}

func waitForShutdownTrigger(shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) string {
	select {
	case sig := <-shutdownChan:
		logger.Info("Shutdown signal received.", "signal", sig.String())
		return "signal: " + sig.String()
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		logger.Info("Server goroutine finished before signal.", "error", err)
		return "server exited"
	}
}

func stopCronScheduler(cronScheduler *cron.Cron, logger *slog.Logger) {
	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}
}

func closeRabbitMQConnection(rabbitConn *amqp.Connection, logger *slog.Logger) {
	switch {
	case rabbitConn == nil:
		logger.Info("RabbitMQ connection was not established, skipping close.")
	case rabbitConn.IsClosed():
		logger.Info("RabbitMQ connection already closed, skipping close.")
	default:
		logger.Info("Closing RabbitMQ connection...")
		if err := rabbitConn.Close(); err != nil {
			logger.Error("Failed to close RabbitMQ connection gracefully", slog.Any("error", err))
		} else {
			logger.Info("RabbitMQ connection closed.")
		}
	}
}

func shutdownHTTPServer(srv *http.Server, serverErrors <-chan error, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", "error", err)
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	logger.Info("Waiting for server goroutine to confirm exit...")
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}
}

func initializeRedisClient(cfg *config.Config, logger *slog.Logger) *redis.Client {
	logger.Info("Initializing central Redis client...")
	if cfg.Redis.Addr == "" {
		logger.Error("Redis address (addr) is not configured.")
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if status := rdb.Ping(ctx); status.Err() != nil {
		logger.Error("Failed to connect to Redis", "error", status.Err(), "addr", cfg.Redis.Addr)
		_ = rdb.Close()
		os.Exit(1)
	}

	logger.Info("Central Redis client connected successfully.", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return rdb
}

func closeRedisClient(redisClient *redis.Client, logger *slog.Logger) {
	if redisClient == nil {
		logger.Info("Redis client was not initialized, skipping close.")
		return
	}
	logger.Info("Closing central Redis client connection...")
	if err := redisClient.Close(); err != nil {
		logger.Error("Failed to close central Redis client connection gracefully", "error", err)
	} else {
		logger.Info("Central Redis client connection closed.")
	}
}

// dispatchSchedule falls back to the policy's check interval when no cron
// expression is configured.
func dispatchSchedule(cfg *config.Config) string {
	if cfg.Reminder.DispatchSchedule != "" {
		return cfg.Reminder.DispatchSchedule
	}
	hours := cfg.Reminder.CheckIntervalHours
	if hours <= 0 {
		hours = 6
	}
	return fmt.Sprintf("@every %dh", hours)
}

// scheduleJob registers a Run-style job with its own timeout per invocation.
func scheduleJob(c *cron.Cron, spec, name string, timeout time.Duration, run func(context.Context) error, logger *slog.Logger) (cron.EntryID, error) {
	jobLogger := logger.With("job_name", name)
	return c.AddJob(spec, cron.FuncJob(func() {
		jobLogger.Info("Cron triggered: running job.")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if runErr := run(ctx); runErr != nil {
			jobLogger.Error("Job finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("Job finished successfully.")
		}
	}))
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, dispatchJob *batch.ReminderDispatchJob, sweepJob *batch.InterviewSweepJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	dispatchSpec := dispatchSchedule(cfg)
	dispatchTimeout := cfg.Reminder.DispatchTimeout
	if dispatchTimeout <= 0 {
		dispatchTimeout = defaultDispatchTimeout
	}
	if jobID, err := scheduleJob(c, dispatchSpec, "ReminderDispatch", dispatchTimeout, dispatchJob.Run, logger); err != nil {
		logger.Error("Failed to schedule reminder dispatch job", "schedule", dispatchSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled reminder dispatch job", "schedule", dispatchSpec, "job_id", jobID)
	}

	sweepSpec := cfg.Interview.SweepSchedule
	if sweepSpec == "" {
		sweepSpec = defaultSweepSchedule
		logger.Warn("Interview sweep schedule not configured, using default", "schedule", sweepSpec)
	}
	if jobID, err := scheduleJob(c, sweepSpec, "InterviewSweep", sweepTimeout, sweepJob.Run, logger); err != nil {
		logger.Error("Failed to schedule interview sweep job", "schedule", sweepSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled interview sweep job", "schedule", sweepSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}

func setupLogger(cfg config.LoggerConfig) *slog.Logger {
	return logging.NewLogger(cfg)
}

func connectRabbitMQ(uri string, logger *slog.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	retryCount := 5
	for i := 1; i <= retryCount; i++ {
		conn, err = amqp.Dial(uri)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ")

			go func() {
				blockChan := conn.NotifyBlocked(make(chan amqp.Blocking))
				closeChan := conn.NotifyClose(make(chan *amqp.Error))

				select {
				case b := <-blockChan:
					logger.Warn("RabbitMQ Connection Blocked", "reason", b.Reason)
				case e := <-closeChan:
					logger.Error("RabbitMQ Connection Closed", slog.Any("error", e))
				}
			}()

			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying...",
			slog.Int("attempt", i),
			slog.Int("max_attempts", retryCount),
			slog.Any("error", err),
		)
		time.Sleep(time.Duration(i*2) * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", retryCount, err)
}

func setupRabbitMQ(cfg *config.Config, logger *slog.Logger) (*amqp.Connection, error) {
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL is not configured")
	}
	return connectRabbitMQ(cfg.RabbitMQ.URL, logger)
}
