// Package api exposes the lookup and classification operations as the JSON
// backend for the wage dashboard.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/sells-group/wagelevels/internal/config"
	"github.com/sells-group/wagelevels/internal/store"
	"github.com/sells-group/wagelevels/internal/wage"
)

// Server owns the HTTP handlers and their dependencies.
type Server struct {
	svc     *wage.Service
	store   store.Store
	limiter *rate.Limiter
	origins []string
}

// New builds a Server over a read-ready lookup service.
func New(svc *wage.Service, st store.Store, cfg config.ServerConfig) *Server {
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 50
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 100
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		svc:     svc,
		store:   st,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		origins: origins,
	}
}

// Router assembles the route tree with the shared middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(logMiddleware)
	r.Use(s.throttleMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/states", s.handleStates)
		r.Get("/states/{state}/counties", s.handleCounties)
		r.Get("/occupations", s.handleOccupations)
		r.Get("/occupations/search", s.handleSearchOccupations)
		r.Get("/occupations/{code}", s.handleOccupation)
		r.Get("/wages", s.handleWages)
		r.Get("/wages/map", s.handleWageMap)
		r.Get("/stats", s.handleStats)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
