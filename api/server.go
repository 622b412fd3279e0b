/*
server.go - HTTP router and middleware configuration

PURPOSE:

	Configures the HTTP router (chi), middleware stack, and route definitions.
	This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
 1. RequestID:  Unique ID per request for tracing
 2. RealIP:     Client address behind proxies
 3. Recoverer:  Panic recovery (500 instead of crash)
 4. Access log: zap, one line per request with request_id
 5. Metrics:    Latency histogram keyed by route pattern
 6. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:

	/healthz           Liveness
	/metrics           Prometheus scrape endpoint
	/api/leave|trips|expenses   Create drafts
	/api/requests/*    Lifecycle
	/api/approvals/*   Centralized approvals
	/api/wallets/*     Ledger
	/api/owners/*      Leave balance summaries
	/api/scenarios/*   Demo scenarios (dev only)

SECURITY NOTE:

	No authentication middleware. Actor ids are taken from request bodies;
	run behind a gateway that authenticates callers.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/warp/approval-ledger/metrics"
)

type RouterOptions struct {
	AllowedOrigins []string

	// Metrics records request latency. MetricsHandler serves /metrics.
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler

	// Scenarios mounts the demo loaders under /api/scenarios.
	Scenarios bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(h.Logger))
	r.Use(observe(opts.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/leave", h.CreateLeave)
		r.Post("/trips", h.CreateTrip)
		r.Post("/expenses", h.CreateExpense)

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", h.ListRequests)
			r.Get("/{id}", h.GetRequest)
			r.Get("/{id}/history", h.GetHistory)
			r.Post("/{id}/submit", h.Submit)
			r.Post("/{id}/route", h.OpenApproval)
			r.Post("/{id}/approve", h.Approve)
			r.Post("/{id}/reject", h.Reject)
			r.Post("/{id}/cancel", h.Cancel)
			r.Post("/{id}/complete", h.Complete)
			r.Post("/{id}/pay", h.Pay)
		})

		r.Route("/approvals", func(r chi.Router) {
			r.Get("/{id}", h.GetApproval)
			r.Post("/{id}/decide", h.DecideApproval)
		})

		r.Route("/wallets", func(r chi.Router) {
			r.Post("/", h.InitializeWallet)
			r.Get("/{id}", h.GetBalance)
			r.Get("/{id}/transactions", h.ListTransactions)
			r.Post("/{id}/transactions", h.AppendTransaction)
		})

		r.Route("/owners/{owner}/balances/{period}", func(r chi.Router) {
			r.Get("/", h.GetSummary)
			r.Post("/recalculate", h.Recalculate)
		})

		if opts.Scenarios {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Post("/load", h.LoadScenario)
			})
		}
	})

	return r
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

func observe(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			m.ObserveHTTP(r.Method, route, strconv.Itoa(ww.Status()), time.Since(start))
		})
	}
}
