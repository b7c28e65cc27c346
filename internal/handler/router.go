package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/doc-import-bfa-go/internal/infra/observability"
	"github.com/boddenberg/doc-import-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// RouterConfig carries the auth knobs the router needs.
type RouterConfig struct {
	JWTSecret string
	DevAuth   bool
}

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract defined for the import frontend.
func NewRouter(mgr *service.Manager, metrics *observability.Metrics, cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 📊 Métricas de importação
		// GET /v1/metrics/import
		// =============================================
		r.Get("/metrics/import", importMetricsHandler(metrics))

		// =============================================
		// 📄 Sessões de importação (protegidas)
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.JWTSecret, cfg.DevAuth, logger))

			r.Post("/import/sessions", createSessionHandler(mgr, metrics, logger))

			r.Route("/import/sessions/{sessionId}", func(r chi.Router) {
				r.Get("/", getSessionHandler(mgr, logger))
				r.Get("/messages", getMessagesHandler(mgr, logger))
				r.Post("/answers", answerHandler(mgr, logger))
				r.Post("/transactions/{txId}/toggle", toggleTransactionHandler(mgr, logger))
				r.Patch("/transactions/{txId}/category", setCategoryHandler(mgr, logger))
				r.Post("/confirm", confirmHandler(mgr, metrics, logger))
				r.Post("/reset", resetHandler(mgr, logger))
			})
		})
	})

	return r
}

// ============================================================
// Operational endpoints
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func importMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetImportSnapshot())
	}
}
