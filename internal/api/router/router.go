package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/premierdental/nova-voice-ai/internal/http/handlers"
	httpmiddleware "github.com/premierdental/nova-voice-ai/internal/http/middleware"
	"github.com/premierdental/nova-voice-ai/internal/leads"
	"github.com/premierdental/nova-voice-ai/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	LeadWebhook    *handlers.LeadWebhookHandler
	VoiceHandler   *handlers.VoiceHandler
	LeadsHandler   *leads.Handler
	MetricsHandler http.Handler

	// Requests per second allowed per IP on webhook routes. Zero
	// disables rate limiting.
	WebhookRateLimit float64
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy","service":"nova-voice-ai"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(webhooks chi.Router) {
		if cfg.WebhookRateLimit > 0 {
			webhooks.Use(httpmiddleware.RateLimit(cfg.WebhookRateLimit, int(cfg.WebhookRateLimit)*2))
		}
		if cfg.LeadWebhook != nil {
			webhooks.Post("/webhooks/crm", cfg.LeadWebhook.Handle)
		}
		if cfg.VoiceHandler != nil {
			webhooks.Route("/voice", func(v chi.Router) {
				v.Post("/start/{leadID}", cfg.VoiceHandler.Start)
				v.Post("/consent/{leadID}", cfg.VoiceHandler.Consent)
				v.Post("/process/{leadID}", cfg.VoiceHandler.Process)
				v.Post("/escalation-complete/{leadID}", cfg.VoiceHandler.EscalationComplete)
				v.Post("/status/{leadID}", cfg.VoiceHandler.Status)
			})
		}
	})

	if cfg.LeadsHandler != nil {
		r.Get("/leads/{leadID}", cfg.LeadsHandler.GetLead)
	}

	return r
}
