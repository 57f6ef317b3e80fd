package qualification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/premierdental/nova-voice-ai/internal/llm"
	"github.com/premierdental/nova-voice-ai/pkg/logging"
)

// maxQualificationTurns caps how many caller turns are spent gathering
// data before the call is wrapped up.
const maxQualificationTurns = 10

// historyWindow is how many trailing turns are shown to the model.
const historyWindow = 6

// ResponderResult is the responder's decision for one turn.
type ResponderResult struct {
	Message              string
	Complete             bool
	AppointmentScheduled bool
}

// Responder decides whether to keep asking questions or conclude the
// call. Conclusions use fixed templates and never call the model.
type Responder struct {
	client llm.Client
	model  string
	logger *logging.Logger
	tracer trace.Tracer
}

func NewResponder(client llm.Client, model string, logger *logging.Logger) *Responder {
	if client == nil {
		panic("qualification: llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Responder{
		client: client,
		model:  model,
		logger: logger,
		tracer: otel.Tracer("nova.internal.qualification.responder"),
	}
}

// MissingFields lists the unset qualification fields in priority order.
func MissingFields(data QualificationData) []string {
	var missing []string
	if data.ChiefComplaint == "" {
		missing = append(missing, "chief_complaint")
	}
	if data.PainLevel == PainLevelUnset {
		missing = append(missing, "pain_level")
	}
	if data.InsuranceProvider == "" {
		missing = append(missing, "insurance_provider")
	}
	if data.PreferredAppointmentTime == "" {
		missing = append(missing, "preferred_appointment_time")
	}
	return missing
}

// Respond generates the next assistant message. When the turn budget is
// spent or nothing is missing it concludes with a template; otherwise it
// asks the model for one follow-up question. A model failure degrades to
// a warm handoff that also ends the call.
func (r *Responder) Respond(ctx context.Context, history []ConversationTurn, data QualificationData, turnCount int) ResponderResult {
	ctx, span := r.tracer.Start(ctx, "qualification.respond",
		trace.WithAttributes(attribute.Int("turn_count", turnCount)))
	defer span.End()

	missing := MissingFields(data)

	if turnCount >= maxQualificationTurns || len(missing) == 0 {
		scheduled := data.ChiefComplaint != "" && data.PainLevel != PainLevelUnset
		span.SetAttributes(
			attribute.Bool("concluded", true),
			attribute.Bool("appointment_scheduled", scheduled),
		)
		if scheduled {
			return ResponderResult{
				Message:              schedulingMessage,
				Complete:             true,
				AppointmentScheduled: true,
			}
		}
		return ResponderResult{
			Message:  followUpMessage,
			Complete: true,
		}
	}

	dataJSON, _ := json.Marshal(data)

	var transcript strings.Builder
	start := len(history) - historyWindow
	if start < 0 {
		start = 0
	}
	for _, turn := range history[start:] {
		fmt.Fprintf(&transcript, "%s: %s\n", turn.Speaker, turn.Message)
	}

	prompt := fmt.Sprintf(`Based on this conversation and missing data %v, generate the next appropriate question.

Conversation so far:
%s
Current qualification data: %s

Generate a natural, empathetic follow-up question (under 25 words) to gather the most important missing information. Focus on the highest priority missing data first.`, missing, transcript.String(), dataJSON)

	resp, err := r.client.Complete(ctx, llm.Request{
		Model:       r.model,
		System:      []string{systemPrompt},
		Messages:    []llm.ChatMessage{{Role: llm.ChatRoleUser, Content: prompt}},
		MaxTokens:   100,
		Temperature: 0.7,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		if err != nil {
			span.RecordError(err)
		}
		r.logger.Warn("response model call failed, handing off", "error", err)
		return ResponderResult{
			Message:  warmHandoffMessage,
			Complete: true,
		}
	}

	return ResponderResult{Message: strings.TrimSpace(resp.Text)}
}
