package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"trenchline/internal/config"
	"trenchline/internal/data"
	"trenchline/internal/game"
)

// RouterConfig contains all dependencies needed to construct the HTTP router.
// Designed for dependency injection: tests pass mocks and a permissive rate
// limiter and use httptest.NewServer.
type RouterConfig struct {
	Cfg     *config.Config
	Manager *game.RoomManager
	Hub     *Hub
	Modes   *data.ModeTable
	Weapons *data.WeaponTable
	Audit   *game.AuditLog

	// RateLimiter is optional; when nil one is built from RateLimitConfig,
	// falling back to DefaultRateLimitConfig.
	RateLimiter     *IPRateLimiter
	RateLimitConfig *RateLimitConfig
	RateLimitOff    bool

	// CORSOrigins overrides the default allowlist when non-nil.
	CORSOrigins []string

	// DisableLogging drops the request logger middleware (benchmarks).
	DisableLogging bool
}

// NewRouter constructs the HTTP router with all middleware and routes. It is
// pure: no goroutines, no listeners, no background workers.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS so floods are rejected early.
	if !cfg.RateLimitOff {
		rateLimiter := cfg.RateLimiter
		if rateLimiter == nil {
			rlc := DefaultRateLimitConfig
			if cfg.RateLimitConfig != nil {
				rlc = *cfg.RateLimitConfig
			}
			rateLimiter = NewIPRateLimiter(rlc)
		}
		r.Use(rateLimiter.Middleware)
	}

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &handlers{
		cfg:     cfg.Cfg,
		manager: cfg.Manager,
		hub:     cfg.Hub,
		modes:   cfg.Modes,
		weapons: cfg.Weapons,
		audit:   cfg.Audit,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.handleStatus)
		r.Get("/modes", h.handleModes)
		r.Get("/weapons", h.handleWeapons)
		r.Get("/rooms", h.handleRooms)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.Hub != nil {
		r.Get("/ws", cfg.Hub.HandleWebSocket)
	}

	return r
}
