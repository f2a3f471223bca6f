package http

import (
	"net/http"
	"time"
)

// handleHealth performs a basic liveness check and reports cache counters.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	hits, misses := s.cache.Stats()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).String(),
		"cache": map[string]any{
			"entries": s.cache.Size(),
			"hits":    hits,
			"misses":  misses,
		},
		"rate_limiter": map[string]any{
			"active_clients": s.rateLimiter.activeClients(),
		},
		"requests_total": s.traceMW.GetMetrics().TotalRequests,
	})
}
