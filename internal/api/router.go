package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erazemk/nabava/internal/analysis"
	"github.com/erazemk/nabava/internal/apperr"
	"github.com/erazemk/nabava/internal/insight"
	"github.com/erazemk/nabava/internal/logger"
	"github.com/erazemk/nabava/internal/metrics"
	"github.com/erazemk/nabava/internal/model"
	"github.com/erazemk/nabava/internal/negotiation"
)

// Deps are the collaborators the router needs.
type Deps struct {
	DB           *sql.DB
	JWTSecret    string
	WebhookToken string
	Version      string
	CORSOrigins  []string

	Driver   *negotiation.Driver
	Insights *insight.Pipeline
	Analyzer *analysis.Analyzer

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *logger.Logger
}

// NewRouter creates the API router with all endpoints registered. The
// dashboard routes are served both at the root and under /api.
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	authHandler := &AuthHandler{DB: d.DB, JWTSecret: d.JWTSecret, Log: log}
	usersHandler := &UsersHandler{DB: d.DB, Log: log}
	inventoryHandler := &InventoryHandler{DB: d.DB, Driver: d.Driver, Log: log}
	negotiationsHandler := &NegotiationsHandler{Driver: d.Driver, Log: log}
	insightsHandler := &InsightsHandler{Pipeline: d.Insights, Log: log}
	analysisHandler := &AnalysisHandler{Analyzer: d.Analyzer, Log: log}
	healthHandler := &HealthHandler{DB: d.DB, Version: d.Version}

	authMW := AuthMiddleware(d.JWTSecret, d.DB)
	webhookMW := WebhookToken(d.WebhookToken)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Dashboard routes: reads for every role, mutations for manager+.
	dashboard := func(r chi.Router) {
		r.Get("/inventory", inventoryHandler.List)
		r.With(requireManager).Post("/upload-all", inventoryHandler.Upload)
		r.With(requireManager).Post("/edit-agent", negotiationsHandler.Edit)
		r.With(requireManager).Post("/send-inquiry/{id}", negotiationsHandler.SendInquiry)
		r.With(requireManager).Post("/finalize-order/{id}", negotiationsHandler.Finalize)
		r.With(requireManager).Post("/process-whatsapp", insightsHandler.Process)
	}

	r := chi.NewRouter()
	r.Use(
		Recoverer(log),
		RequestID(log),
		Logging(log, d.Metrics),
		CORS(d.CORSOrigins),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonError(w, apperr.CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusMethodNotAllowed, errorEnvelope{
			Error: errorBody{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"},
		})
	})

	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	r.With(webhookMW).Post("/webhook/whatsapp", insightsHandler.Webhook)
	r.Group(func(r chi.Router) {
		r.Use(authMW)
		dashboard(r)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.With(webhookMW).Post("/webhook/whatsapp", insightsHandler.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(authMW)
			dashboard(r)

			r.Post("/auth/logout", authHandler.Logout)
			r.Put("/auth/password", authHandler.ChangePassword)

			r.Get("/negotiations", negotiationsHandler.List)
			r.Get("/negotiations/{id}", negotiationsHandler.Get)
			r.Get("/suppliers", inventoryHandler.Suppliers)
			r.Get("/insights", insightsHandler.List)
			r.Post("/ask", analysisHandler.Ask)
			r.With(requireManager).Post("/analyze", analysisHandler.Analyze)

			r.Route("/users", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/", usersHandler.List)
				r.Post("/", usersHandler.Create)
				r.Get("/{id}", usersHandler.Get)
				r.Put("/{id}", usersHandler.Update)
				r.Put("/{id}/password", usersHandler.ResetPassword)
				r.Delete("/{id}", usersHandler.Delete)
			})
		})
	})

	return r
}
