package http

import (
	"context"
	"net/http"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Server is the JSON API in front of one Tracker.
type Server struct {
	http.Server
	tracker  *services.Tracker
	logger   *applog.Logger
	today    func() core.Date
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	ready    func(context.Context) error
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the day used for dueness and default dates.
func WithClock(today func() core.Date) Option {
	return func(s *Server) { s.today = today }
}

// WithRateLimit sets how many mutating requests a client may send per minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		s.limiter.Stop()
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: perMinute})
	}
}

// WithReadiness sets the check behind /readyz, typically a store ping.
func WithReadiness(check func(context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, tracker *services.Tracker, logger *applog.Logger, opts ...Option) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		tracker:  tracker,
		logger:   logger.WithComponent(applog.ComponentHTTP),
		today:    core.Today,
		limiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector: security.NewDetector(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded", Code: "rate_limited"})
	})(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	s.Handler = h
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /incomes", s.handleListIncomes)
	mux.HandleFunc("POST /incomes", s.handleCreateIncome)
	mux.HandleFunc("DELETE /incomes/{id}", s.handleDeleteIncome)

	mux.HandleFunc("GET /recurring", s.handleListRecurring)
	mux.HandleFunc("POST /recurring", s.handleCreateRecurring)
	mux.HandleFunc("DELETE /recurring/{id}", s.handleDeleteRecurring)
	mux.HandleFunc("POST /recurring/apply", s.handleApplyRecurring)

	mux.HandleFunc("GET /budget", s.handleGetBudget)
	mux.HandleFunc("PUT /budget", s.handleSetBudget)
	mux.HandleFunc("GET /budget/status", s.handleBudgetStatus)

	mux.HandleFunc("GET /goals", s.handleListGoals)
	mux.HandleFunc("POST /goals", s.handleCreateGoal)
	mux.HandleFunc("POST /goals/{id}/deposits", s.handleDeposit)
	mux.HandleFunc("DELETE /goals/{id}", s.handleDeleteGoal)

	mux.HandleFunc("GET /categories", s.handleListCategories)
	mux.HandleFunc("POST /categories", s.handleCreateCategory)
	mux.HandleFunc("DELETE /categories/{name}", s.handleDeleteCategory)

	mux.HandleFunc("GET /currency", s.handleGetCurrency)
	mux.HandleFunc("PUT /currency", s.handleSetCurrency)

	mux.HandleFunc("GET /totals", s.handleTotals)
	mux.HandleFunc("GET /summary/categories", s.handleCategorySummary)
	mux.HandleFunc("GET /summary/trend", s.handleTrend)

	mux.HandleFunc("GET /export/expenses.csv", s.handleExportCSV)
	mux.HandleFunc("GET /export/expenses.pdf", s.handleExportPDF)
	mux.HandleFunc("GET /snapshot", s.handleGetSnapshot)
	mux.HandleFunc("PUT /snapshot", s.handlePutSnapshot)
}

// Shutdown stops the limiter cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Requests  trace.Metrics             `json:"requests"`
		RateLimit ratelimit.Metrics         `json:"rateLimit"`
		Security  security.DetectionMetrics `json:"security"`
	}{s.tracer.GetMetrics(), s.limiter.GetMetrics(), s.detector.GetMetrics()})
}
