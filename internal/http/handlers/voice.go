package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/premierdental/nova-voice-ai/internal/calllog"
	"github.com/premierdental/nova-voice-ai/internal/crm"
	"github.com/premierdental/nova-voice-ai/internal/leads"
	"github.com/premierdental/nova-voice-ai/internal/qualification"
	"github.com/premierdental/nova-voice-ai/internal/telephony"
	"github.com/premierdental/nova-voice-ai/pkg/logging"
)

// CRMProcessor writes qualification results back to the CRM.
type CRMProcessor interface {
	ProcessQualificationResults(ctx context.Context, leadID string, data qualification.QualificationData, callSummary string) crm.Results
}

// CallNotifier alerts the practice team about finished calls.
type CallNotifier interface {
	NotifyEscalation(ctx context.Context, lead *leads.Lead, reason string, data qualification.QualificationData) error
	NotifyQualifiedLead(ctx context.Context, lead *leads.Lead, data qualification.QualificationData, appointmentScheduled bool) error
}

// VoiceHandler serves the voice provider's webhooks for one call:
// answer, consent, conversation turns, and status callbacks.
type VoiceHandler struct {
	engine         *qualification.Engine
	repo           leads.Repository
	calls          *calllog.Store
	crm            CRMProcessor
	notifier       CallNotifier
	transferNumber string
	logger         *logging.Logger
}

func NewVoiceHandler(engine *qualification.Engine, repo leads.Repository, calls *calllog.Store, crmClient CRMProcessor, notifier CallNotifier, transferNumber string, logger *logging.Logger) *VoiceHandler {
	if engine == nil {
		panic("handlers: qualification engine cannot be nil")
	}
	if repo == nil {
		panic("handlers: leads repository cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &VoiceHandler{
		engine:         engine,
		repo:           repo,
		calls:          calls,
		crm:            crmClient,
		notifier:       notifier,
		transferNumber: transferNumber,
		logger:         logger,
	}
}

// Start handles POST /voice/start/{leadID}, the provider's first
// callback once the outbound call connects.
func (h *VoiceHandler) Start(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	callSID := r.FormValue("CallSid")

	if answeredBy := r.FormValue("AnsweredBy"); strings.HasPrefix(answeredBy, "machine_") {
		h.logger.Info("call answered by machine", "lead_id", leadID, "answered_by", answeredBy)
		writeTwiML(w, telephony.VoicemailTwiML(answeredBy))
		return
	}

	if _, err := h.calls.Create(r.Context(), leadID, callSID); err != nil {
		h.logger.Error("failed to create call record", "error", err, "lead_id", leadID)
	}
	if err := h.repo.UpdateCallStatus(r.Context(), leadID, callSID, leads.CallStatusInitiated); err != nil {
		h.logger.Warn("failed to update lead call status", "error", err, "lead_id", leadID)
	}

	name := "there"
	if lead, err := h.repo.GetByID(r.Context(), leadID); err == nil && lead.FirstName != "" {
		name = lead.FirstName
	}
	greeting := fmt.Sprintf(
		"Hello %s, this is Nova from Premier Dental calling about your recent inquiry "+
			"for dental services. I'm an AI assistant that can help schedule your "+
			"appointment and answer some initial questions. Do you have a few minutes to talk?",
		name,
	)

	writeTwiML(w, telephony.InitialTwiML(leadID, greeting))
}

// Consent handles POST /voice/consent/{leadID}.
func (h *VoiceHandler) Consent(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	speech := strings.ToLower(r.FormValue("SpeechResult"))

	if !strings.Contains(speech, "yes") && !strings.Contains(speech, "okay") {
		h.logger.Info("lead declined qualification call", "lead_id", leadID)
		writeTwiML(w, telephony.DeclineTwiML())
		return
	}

	question := h.engine.GenerateFirstQuestion(r.Context(), leadID)
	writeTwiML(w, telephony.ConversationTwiML(leadID, question))
}

// Process handles POST /voice/process/{leadID}, one conversation turn.
func (h *VoiceHandler) Process(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	callSID := r.FormValue("CallSid")
	utterance := r.FormValue("SpeechResult")

	result := h.engine.ProcessTurn(r.Context(), leadID, utterance)

	switch result.Outcome {
	case qualification.OutcomeEscalate:
		h.finishEscalated(r.Context(), leadID, callSID, result)
		writeTwiML(w, telephony.EscalationTwiML(leadID, result.Response, h.transferNumber))
	case qualification.OutcomeComplete:
		h.finishCompleted(r.Context(), leadID, callSID, result)
		writeTwiML(w, telephony.CompletionTwiML(result.Response))
	default:
		writeTwiML(w, telephony.ConversationTwiML(leadID, result.Response))
	}
}

func (h *VoiceHandler) finishEscalated(ctx context.Context, leadID, callSID string, result qualification.TurnResult) {
	if h.callSettled(ctx, callSID) {
		return
	}

	data := qualification.QualificationData{}
	if result.QualificationData != nil {
		data = *result.QualificationData
	} else if summary, err := h.engine.SessionSummary(ctx, leadID); err == nil && summary != nil {
		data = summary.QualificationData
	}

	if err := h.calls.Finish(ctx, callSID, calllog.StatusEscalated, result.EscalationReason, false, &data); err != nil {
		h.logger.Error("failed to finish call record", "error", err, "lead_id", leadID)
	}
	if err := h.repo.UpdateCallStatus(ctx, leadID, callSID, leads.CallStatusEscalated); err != nil {
		h.logger.Warn("failed to update lead call status", "error", err, "lead_id", leadID)
	}

	if h.notifier != nil {
		lead, _ := h.repo.GetByID(ctx, leadID)
		if err := h.notifier.NotifyEscalation(ctx, lead, result.EscalationReason, data); err != nil {
			h.logger.Error("failed to send escalation notification", "error", err, "lead_id", leadID)
		}
	}
}

func (h *VoiceHandler) finishCompleted(ctx context.Context, leadID, callSID string, result qualification.TurnResult) {
	if h.callSettled(ctx, callSID) {
		return
	}

	data := qualification.QualificationData{}
	if result.QualificationData != nil {
		data = *result.QualificationData
	}

	if err := h.calls.Finish(ctx, callSID, calllog.StatusCompleted, "", result.AppointmentScheduled, &data); err != nil {
		h.logger.Error("failed to finish call record", "error", err, "lead_id", leadID)
	}
	if err := h.repo.UpdateCallStatus(ctx, leadID, callSID, leads.CallStatusCompleted); err != nil {
		h.logger.Warn("failed to update lead call status", "error", err, "lead_id", leadID)
	}

	callSummary := "Automated qualification call completed."
	if summary, err := h.engine.SessionSummary(ctx, leadID); err == nil && summary != nil {
		callSummary = fmt.Sprintf("Automated qualification call completed after %d caller turns.", summary.TurnCount)
	}

	if h.crm != nil {
		h.crm.ProcessQualificationResults(ctx, leadID, data, callSummary)
	}
	if h.notifier != nil {
		lead, _ := h.repo.GetByID(ctx, leadID)
		if err := h.notifier.NotifyQualifiedLead(ctx, lead, data, result.AppointmentScheduled); err != nil {
			h.logger.Error("failed to send qualification notification", "error", err, "lead_id", leadID)
		}
	}
}

// EscalationComplete handles POST /voice/escalation-complete/{leadID},
// invoked after the transfer dial finishes.
func (h *VoiceHandler) EscalationComplete(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	h.logger.Info("escalation transfer finished",
		"lead_id", leadID,
		"dial_status", r.FormValue("DialCallStatus"),
	)
	writeTwiML(w, telephony.HangupTwiML())
}

// Status handles POST /voice/status/{leadID}, the provider's call
// lifecycle callbacks.
func (h *VoiceHandler) Status(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	callSID := r.FormValue("CallSid")
	providerStatus := r.FormValue("CallStatus")

	h.logger.Info("call status update", "lead_id", leadID, "call_sid", callSID, "status", providerStatus)

	if status, ok := mapProviderStatus(providerStatus); ok && !h.callEscalated(r.Context(), callSID) {
		if err := h.calls.UpdateStatus(r.Context(), callSID, status); err != nil {
			h.logger.Warn("failed to update call record", "error", err, "call_sid", callSID)
		}
	}

	if isTerminalProviderStatus(providerStatus) {
		h.concludeCall(r.Context(), leadID, callSID, providerStatus)
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "received"})
}

// concludeCall runs once the provider reports the call over: settle
// the lead's final status and drop the conversation session.
func (h *VoiceHandler) concludeCall(ctx context.Context, leadID, callSID, providerStatus string) {
	finalStatus := leads.CallStatusCompleted
	if providerStatus != "completed" {
		finalStatus = leads.CallStatusFailed
	}

	// An escalation recorded mid-call wins over the provider's view.
	if lead, err := h.repo.GetByID(ctx, leadID); err == nil && lead.CallStatus == leads.CallStatusEscalated {
		finalStatus = ""
	}
	if finalStatus != "" {
		if err := h.repo.UpdateCallStatus(ctx, leadID, callSID, finalStatus); err != nil {
			h.logger.Warn("failed to update lead call status", "error", err, "lead_id", leadID)
		}
	}

	if err := h.engine.CleanupSession(ctx, leadID); err != nil {
		h.logger.Error("failed to clean up session", "error", err, "lead_id", leadID)
	}
}

// callEscalated reports whether the call record already finished as
// escalated, which later provider callbacks must not overwrite.
func (h *VoiceHandler) callEscalated(ctx context.Context, callSID string) bool {
	record, err := h.calls.GetByCallSID(ctx, callSID)
	return err == nil && record != nil && record.Status == calllog.StatusEscalated
}

// callSettled reports whether side effects for this call already ran.
// Replayed terminal turns must not duplicate CRM write-back or alerts.
func (h *VoiceHandler) callSettled(ctx context.Context, callSID string) bool {
	record, err := h.calls.GetByCallSID(ctx, callSID)
	return err == nil && record != nil && record.EndedAt != nil
}

func mapProviderStatus(providerStatus string) (string, bool) {
	switch providerStatus {
	case "answered", "in-progress":
		return calllog.StatusInProgress, true
	case "completed":
		return calllog.StatusCompleted, true
	case "busy", "failed", "no-answer", "canceled":
		return calllog.StatusFailed, true
	default:
		return "", false
	}
}

func isTerminalProviderStatus(providerStatus string) bool {
	switch providerStatus {
	case "completed", "busy", "failed", "no-answer", "canceled":
		return true
	default:
		return false
	}
}

func writeTwiML(w http.ResponseWriter, doc string) {
	w.Header().Set("Content-Type", telephony.ContentTypeXML)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}
