package api

import (
	"log/slog"
	"net/http"
	"time"

	_ "loan-agreement-engine/docs"
	"loan-agreement-engine/internal/api/handler"
	mw "loan-agreement-engine/internal/api/middleware"
	"loan-agreement-engine/internal/config"
	"loan-agreement-engine/internal/domain/agreement"
	"loan-agreement-engine/internal/domain/reminder"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Services bundles what the HTTP surface needs from the domain layer.
type Services struct {
	Chat      handler.ChatDispatcher
	Lifecycle agreement.LifecycleManager
	Ledger    agreement.Ledger
	Reminders reminder.Engine
}

func SetupRouter(svc Services, rateLimiter *mw.RateLimiterMiddleware, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, rateLimiter, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupChatRoutes(router, svc.Chat, logger)
	setupAgreementRoutes(router, svc.Lifecycle, svc.Ledger, logger)
	setupReminderRoutes(router, svc, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	return router
}

func setupMiddleware(router *chi.Mux, rateLimiter *mw.RateLimiterMiddleware, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	if rateLimiter != nil {
		router.Use(rateLimiter.Middleware)
	}
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupChatRoutes(router *chi.Mux, dispatcher handler.ChatDispatcher, logger *slog.Logger) {
	h := handler.NewChatHandler(dispatcher, logger)
	router.Post("/chat/messages", h.ReceiveMessage)
}

func setupAgreementRoutes(router *chi.Mux, lifecycle agreement.LifecycleManager, ledger agreement.Ledger, logger *slog.Logger) {
	h := handler.NewAgreementHandler(lifecycle, ledger, logger)

	router.Route("/agreements/{agreementID}", func(r chi.Router) {
		r.Get("/", h.GetAgreement)
		r.Post("/activate", h.ActivateAgreement)
		r.Post("/cancel", h.CancelAgreement)
		r.Route("/installments", func(r chi.Router) {
			r.Get("/", h.ListInstallments)
			r.Get("/pending", h.PendingInstallments)
			r.Get("/export", h.ExportInstallments)
			r.Get("/{number}", h.GetInstallment)
		})
	})
	router.Post("/installments/{installmentID}/payments", h.RecordPayment)
	router.Get("/lenders/{lenderID}/agreements", h.ListLenderAgreements)
}

func setupReminderRoutes(router *chi.Mux, svc Services, logger *slog.Logger) {
	h := handler.NewReminderHandler(svc.Reminders, svc.Lifecycle, svc.Ledger, logger)

	router.Route("/debts", func(r chi.Router) {
		r.Post("/", h.CreateDebt)
		r.Post("/{debtID}/paid", h.MarkDebtPaid)
	})
	router.Route("/reminders", func(r chi.Router) {
		r.Get("/due", h.GetDue)
		r.Post("/{jobID}/sent", h.MarkSent)
	})
	router.Get("/status", h.SystemStatus)
}
