package mockapi

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wiko-cutlery/assistant-portal/internal/model/tools"
)

// SessionCookie is the name of the login cookie.
const SessionCookie = "session"

// Service names reported by /health.
const (
	ServiceLLM      = "ollama"
	ServicePDF      = "pdf_processor"
	ServiceDatabase = "database"
)

// Options configures a stub server.
type Options struct {
	// Accounts defaults to DefaultAccounts.
	Accounts []SeedAccount
	// Latency is added to every API request.
	Latency time.Duration
	// Registry receives the request counter and backs /metrics. A private
	// registry is created when nil.
	Registry *prometheus.Registry
}

// Server is an in-memory implementation of the assistant API.
type Server struct {
	store    *Store
	latency  time.Duration
	registry *prometheus.Registry
	requests *prometheus.CounterVec

	healthMu sync.RWMutex
	services map[string]tools.ServiceHealth
}

// New builds a stub server.
func New(opts Options) (*Server, error) {
	accounts := opts.Accounts
	if accounts == nil {
		accounts = DefaultAccounts()
	}
	employees, err := Seed(accounts)
	if err != nil {
		return nil, err
	}

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mockapi",
		Name:      "http_requests_total",
		Help:      "Requests served by the stub backend, by route and status.",
	}, []string{"method", "route", "status"})
	if err := registry.Register(requests); err != nil {
		return nil, err
	}

	return &Server{
		store:    NewStore(employees),
		latency:  opts.Latency,
		registry: registry,
		requests: requests,
		services: map[string]tools.ServiceHealth{
			ServiceLLM:      {Status: "healthy", URL: "mock://ollama"},
			ServicePDF:      {Status: "healthy"},
			ServiceDatabase: {Status: "healthy"},
		},
	}, nil
}

// Store exposes the backing state.
func (s *Server) Store() *Store {
	return s.store
}

// SetServiceStatus changes what /health reports for one dependency.
func (s *Server) SetServiceStatus(name, status string) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	entry := s.services[name]
	entry.Status = status
	s.services[name] = entry
}

// Routes wires HTTP routes to the stub handlers.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.countRequests)

	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(api chi.Router) {
		api.Use(s.delay)

		api.Get("/health", s.handleHealth)

		api.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
			r.Get("/status", s.handleStatus)
		})

		api.Group(func(r chi.Router) {
			r.Use(s.requireEmployee)

			r.Get("/chat/sessions", s.handleListSessions)
			r.Post("/chat/sessions", s.handleCreateSession)
			r.Get("/chat/sessions/{sessionID}/messages", s.handleListMessages)
			r.Post("/chat/sessions/{sessionID}/messages", s.handleSendMessage)

			r.Post("/upload/pdf", s.handleUploadPDF)
			r.Get("/documents", s.handleListDocuments)
			r.Post("/translate", s.handleTranslate)
			r.Post("/email/generate", s.handleGenerateEmail)
			r.Post("/complaint/analyze", s.handleAnalyzeComplaint)
		})
	})

	return r
}

// countRequests records every response by route pattern and status.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

// delay simulates backend latency and gives up when the client does.
func (s *Server) delay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.latency > 0 {
			timer := time.NewTimer(s.latency)
			select {
			case <-r.Context().Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		next.ServeHTTP(w, r)
	})
}

type employeeKey struct{}

func withEmployee(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, employeeKey{}, id)
}

func employeeID(ctx context.Context) int64 {
	id, _ := ctx.Value(employeeKey{}).(int64)
	return id
}
