// Package handlers holds the HTTP surface: CRM lead webhooks and the
// voice provider callbacks that drive qualification calls.
package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/premierdental/nova-voice-ai/internal/leads"
	"github.com/premierdental/nova-voice-ai/internal/observability/metrics"
	"github.com/premierdental/nova-voice-ai/pkg/logging"
)

// DialPublisher enqueues outbound dial jobs.
type DialPublisher interface {
	EnqueueDial(ctx context.Context, leadID, phone string) error
}

// DNCChecker reports whether a phone number is on the do-not-call list.
type DNCChecker interface {
	Contains(ctx context.Context, phone string) (bool, error)
}

// LeadWebhookHandler receives contact events from the CRM and schedules
// qualification calls for new leads.
type LeadWebhookHandler struct {
	secret    string
	repo      leads.Repository
	dnc       DNCChecker
	publisher DialPublisher
	metrics   *metrics.WebhookMetrics
	logger    *logging.Logger
}

func NewLeadWebhookHandler(secret string, repo leads.Repository, dnc DNCChecker, publisher DialPublisher, m *metrics.WebhookMetrics, logger *logging.Logger) *LeadWebhookHandler {
	if repo == nil {
		panic("handlers: leads repository cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadWebhookHandler{
		secret:    strings.TrimSpace(secret),
		repo:      repo,
		dnc:       dnc,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

type crmWebhookPayload struct {
	Event   string `json:"event"`
	Contact struct {
		ID        string `json:"id"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Phone     string `json:"phone"`
		Email     string `json:"email"`
		Source    string `json:"source"`
		DNCStatus bool   `json:"dncStatus"`
	} `json:"contact"`
}

// Handle processes POST /webhooks/crm.
func (h *LeadWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.secret == "" {
		h.logger.Error("crm webhook secret not configured")
		http.Error(w, "webhook secret not configured", http.StatusInternalServerError)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !verifyWebhookSignature(h.secret, payload, r.Header.Get("X-Signature-256")) {
		h.logger.Warn("invalid crm webhook signature")
		h.metrics.ObserveInbound("unknown", "unauthorized")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var evt crmWebhookPayload
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.metrics.ObserveInbound("unknown", "bad_payload")
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	defer func() { h.metrics.ObserveLatency(evt.Event, time.Since(start).Seconds()) }()

	lead := &leads.Lead{
		ID:        evt.Contact.ID,
		FirstName: evt.Contact.FirstName,
		LastName:  evt.Contact.LastName,
		Phone:     evt.Contact.Phone,
		Email:     evt.Contact.Email,
		Source:    evt.Contact.Source,
		DNCListed: evt.Contact.DNCStatus,
	}
	if lead.ID == "" || lead.FirstName == "" || lead.Phone == "" {
		h.metrics.ObserveInbound(evt.Event, "bad_payload")
		http.Error(w, "invalid lead data", http.StatusBadRequest)
		return
	}

	// An unverifiable do-not-call status counts as listed.
	if h.dnc != nil && !lead.DNCListed {
		listed, err := h.dnc.Contains(r.Context(), lead.Phone)
		if err != nil {
			h.logger.Error("dnc check failed, treating number as listed", "error", err, "lead_id", lead.ID)
			listed = true
		}
		lead.DNCListed = listed
	}

	if lead.DNCListed {
		h.logger.Warn("lead on do-not-call list, skipping call", "lead_id", lead.ID)
		h.metrics.ObserveInbound(evt.Event, "skipped_dnc")
		writeJSON(w, http.StatusOK, map[string]any{"status": "skipped", "reason": "DNC_listed"})
		return
	}

	if err := h.repo.Upsert(r.Context(), lead); err != nil {
		h.logger.Error("failed to store lead", "error", err, "lead_id", lead.ID)
		h.metrics.ObserveInbound(evt.Event, "error")
		http.Error(w, "webhook processing failed", http.StatusInternalServerError)
		return
	}

	action := "stored"
	if evt.Event == "contact.created" && h.publisher != nil {
		if err := h.publisher.EnqueueDial(r.Context(), lead.ID, lead.Phone); err != nil {
			h.logger.Error("failed to enqueue dial job", "error", err, "lead_id", lead.ID)
			h.metrics.ObserveInbound(evt.Event, "error")
			http.Error(w, "webhook processing failed", http.StatusInternalServerError)
			return
		}
		action = "call_scheduled"
	}

	h.metrics.ObserveInbound(evt.Event, "processed")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "processed",
		"lead_id": lead.ID,
		"action":  action,
	})
}

func verifyWebhookSignature(secret string, payload []byte, header string) bool {
	if strings.TrimSpace(secret) == "" || strings.TrimSpace(header) == "" {
		return false
	}
	providedHex := strings.TrimPrefix(header, "sha256=")
	providedSig, err := hex.DecodeString(providedHex)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), providedSig)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
