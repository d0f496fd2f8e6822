package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options carries everything the router needs beyond the service itself.
type Options struct {
	WebhookSecret string
	SessionTTL    time.Duration
}

func newRouter(logger *zap.Logger, svc Service, identity Identity, opts Options) http.Handler {
	h := &handler{
		svc:        svc,
		identity:   identity,
		logger:     logger,
		secret:     opts.WebhookSecret,
		sessionTTL: opts.SessionTTL,
		now:        time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(zapRequestLogger(logger))
	r.Use(metricsMiddleware)

	r.Get("/health", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/webhooks/github", h.handleWebhook)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)
		r.Post("/logout", h.handleLogout)
		r.Post("/handoff", h.handleHandoffCreate)
		r.Post("/handoff/redeem", h.handleHandoffRedeem)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/pipelines", func(r chi.Router) {
			r.Get("/", h.handlePipelineList)
			r.Get("/{id}", h.handlePipelineGet)
			r.Patch("/{id}", h.handlePipelineAction)
			r.Post("/{id}/refresh", h.handlePipelineRefresh)
			r.Delete("/{id}", h.handlePipelineDelete)
		})

		r.Route("/merge-requests", func(r chi.Router) {
			r.Get("/", h.handleMergeRequestList)
			r.Get("/{number}", h.handleMergeRequestGet)
			r.Patch("/{number}", h.handleMergeRequestAction)
			r.Put("/{number}/required-approvals", h.handleRequiredApprovals)
			r.Post("/{number}/refresh", h.handleMergeRequestRefresh)
			r.Delete("/{number}", h.handleMergeRequestDelete)
		})

		r.Route("/deployments", func(r chi.Router) {
			r.Get("/", h.handleDeploymentList)
			r.Post("/", h.handleDeploymentCreate)
			r.Patch("/{id}", h.handleDeploymentUpdate)
			r.Delete("/{id}", h.handleDeploymentDelete)
		})

		r.Route("/feature-flags", func(r chi.Router) {
			r.Get("/", h.handleFlagList)
			r.Put("/", h.handleFlagUpsert)
			r.Get("/{name}", h.handleFlagGet)
			r.Patch("/{name}", h.handleFlagToggle)
			r.Delete("/{name}", h.handleFlagDelete)
			r.Post("/{name}/evaluate", h.handleFlagEvaluate)
		})

		r.Get("/notifications", h.handleNotificationList)

		r.Route("/integrations", func(r chi.Router) {
			r.Get("/", h.handleIntegrationList)
			r.Post("/", h.handleIntegrationCreate)
			r.Patch("/{id}", h.handleIntegrationAction)
		})

		r.Route("/organizations", func(r chi.Router) {
			r.Get("/", h.handleOrgList)
			r.Post("/", h.handleOrgCreate)
			r.Get("/{id}", h.handleOrgGet)
			r.Delete("/{id}", h.handleOrgDelete)
		})

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.handleEmployeeList)
			r.Post("/", h.handleEmployeeUpsert)
			r.Get("/{id}", h.handleEmployeeGet)
			r.Delete("/{id}", h.handleEmployeeDelete)
		})

		r.Route("/leave-requests", func(r chi.Router) {
			r.Get("/", h.handleLeaveList)
			r.Post("/", h.handleLeaveCreate)
			r.Patch("/{id}", h.handleLeaveDecide)
		})

		r.Route("/payroll", func(r chi.Router) {
			r.Get("/", h.handlePayrollList)
			r.Post("/", h.handlePayrollCreate)
			r.Patch("/{id}", h.handlePayrollPay)
		})
	})

	return r
}

func zapRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info(
				"http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
