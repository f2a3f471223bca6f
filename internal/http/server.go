// Package http exposes the JSON API over the balance cache, the analytics
// service and the session resolver.
package http

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"fintrack/internal/balance"
	"fintrack/internal/services"
	"fintrack/internal/session"

	"fintrack/internal/middleware/trace"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Server wires the HTTP surface. All state lives in the injected
// collaborators; the server itself only routes and translates.
type Server struct {
	http.Server

	cache       *balance.Cache
	analytics   *services.AnalyticsService
	sessions    *session.Service
	rateLimiter *rateLimiter
	traceMW     *trace.Middleware

	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer builds the server and its route table.
func NewServer(addr string, cache *balance.Cache, analytics *services.AnalyticsService, sessions *session.Service) *Server {
	s := &Server{
		cache:       cache,
		analytics:   analytics,
		sessions:    sessions,
		rateLimiter: newRateLimiter(),
		traceMW:     trace.NewMiddleware(extractClientIP),
		startedAt:   time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.Handle("GET /api/transactions", s.requireSession(s.handleListTransactions))
	mux.Handle("POST /api/transactions", s.requireSession(s.handleAddTransaction))
	mux.Handle("PUT /api/transactions/{id}", s.requireSession(s.handleUpdateTransaction))
	mux.Handle("DELETE /api/transactions/{id}", s.requireSession(s.handleDeleteTransaction))
	mux.Handle("GET /api/balance", s.requireSession(s.handleBalanceSummary))
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.Handle("POST /api/cache/clear", s.requireSession(s.handleClearCache))

	mux.Handle("GET /api/analytics/monthly-spending", s.requireSession(s.handleMonthlySpending))
	mux.Handle("GET /api/analytics/category-breakdown", s.requireSession(s.handleCategoryBreakdown))
	mux.Handle("GET /api/analytics/net-worth", s.requireSession(s.handleNetWorthTrend))
	mux.Handle("GET /api/analytics/budgets", s.requireSession(s.handleBudgetProgress))

	s.Server = http.Server{
		Addr:    addr,
		Handler: s.traceMW.Handler(s.rateLimiter.middleware(mux)),
	}
	return s
}

// requireSession resolves the request to a user id and stores it in the
// request context. Unresolvable requests get a 401.
func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.sessions.Resolve(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// Shutdown stops the rate limiter's cleanup loop before draining
// connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
	})
	return s.Server.Shutdown(ctx)
}

// extractClientIP prefers proxy headers and falls back to the socket peer.
func extractClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return strings.TrimSpace(rip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
