package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tecmax-dev/sisvida-sub005/internal/appointments"
	"github.com/tecmax-dev/sisvida-sub005/internal/conversation"
	httpmiddleware "github.com/tecmax-dev/sisvida-sub005/internal/http/middleware"
	"github.com/tecmax-dev/sisvida-sub005/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	AssistantHandler    *conversation.Handler
	AvailabilityHandler *appointments.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// AssistantRateLimit throttles POST /assistant/message per IP,
	// requests per second. Zero disables the limiter.
	AssistantRateLimit float64
	AssistantBurst     int
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.AssistantHandler != nil {
		r.Route("/assistant", func(r chi.Router) {
			if cfg.AssistantRateLimit > 0 {
				r.Use(httpmiddleware.RateLimit(cfg.AssistantRateLimit, cfg.AssistantBurst))
			}
			r.Post("/message", cfg.AssistantHandler.Message)
		})
	}

	if cfg.AvailabilityHandler != nil {
		r.Get("/professionals/{professionalID}/availability", cfg.AvailabilityHandler.Availability)
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
