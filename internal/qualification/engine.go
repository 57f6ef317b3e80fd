package qualification

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/premierdental/nova-voice-ai/internal/llm"
	"github.com/premierdental/nova-voice-ai/internal/observability/metrics"
	"github.com/premierdental/nova-voice-ai/pkg/logging"
)

// speechConfidence is recorded on user turns; the transcription layer
// does not currently report a real score.
const speechConfidence = 0.95

// TurnOutcome discriminates TurnResult.
type TurnOutcome string

const (
	OutcomeContinue TurnOutcome = "continue"
	OutcomeEscalate TurnOutcome = "escalate"
	OutcomeComplete TurnOutcome = "complete"
)

// TurnResult is what one processed turn tells the telephony layer to do.
// QualificationData is set on continue and complete outcomes;
// EscalationReason only on escalate; AppointmentScheduled only on
// complete.
type TurnResult struct {
	Outcome              TurnOutcome        `json:"outcome"`
	Response             string             `json:"response"`
	EscalationReason     string             `json:"escalation_reason,omitempty"`
	QualificationData    *QualificationData `json:"qualification_data,omitempty"`
	AppointmentScheduled bool               `json:"appointment_scheduled,omitempty"`
}

// Engine runs the per-turn qualification pipeline: record the
// utterance, extract data, evaluate escalation, generate a response,
// persist. Turns for the same lead are serialized; different leads
// proceed in parallel.
type Engine struct {
	store     SessionStore
	extractor *Extractor
	responder *Responder
	client    llm.Client
	model     string
	logger    *logging.Logger
	metrics   *metrics.QualificationMetrics
	tracer    trace.Tracer

	// locks holds one entry per lead with a turn in flight. Entries are
	// refcounted and removed on release, so abandoned calls do not
	// accumulate state here after their sessions expire.
	mu    sync.Mutex
	locks map[string]*leadLock
}

type leadLock struct {
	mu   sync.Mutex
	refs int
}

func NewEngine(store SessionStore, extractor *Extractor, responder *Responder, client llm.Client, model string, logger *logging.Logger, m *metrics.QualificationMetrics) *Engine {
	if store == nil {
		panic("qualification: session store cannot be nil")
	}
	if extractor == nil {
		panic("qualification: extractor cannot be nil")
	}
	if responder == nil {
		panic("qualification: responder cannot be nil")
	}
	if client == nil {
		panic("qualification: llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		store:     store,
		extractor: extractor,
		responder: responder,
		client:    client,
		model:     model,
		logger:    logger,
		metrics:   m,
		tracer:    otel.Tracer("nova.internal.qualification.engine"),
		locks:     make(map[string]*leadLock),
	}
}

// acquireLead blocks until the caller holds the per-lead lock.
func (e *Engine) acquireLead(leadID string) *leadLock {
	e.mu.Lock()
	lock, ok := e.locks[leadID]
	if !ok {
		lock = &leadLock{}
		e.locks[leadID] = lock
	}
	lock.refs++
	e.mu.Unlock()

	lock.mu.Lock()
	return lock
}

// releaseLead unlocks and drops the map entry once no other turn for
// the lead holds or waits on it.
func (e *Engine) releaseLead(leadID string, lock *leadLock) {
	lock.mu.Unlock()

	e.mu.Lock()
	lock.refs--
	if lock.refs <= 0 {
		delete(e.locks, leadID)
	}
	e.mu.Unlock()
}

// ProcessTurn runs one conversation turn for a lead. It never returns
// an error to the caller: any internal fault becomes a technical_error
// escalation so the caller is always handed to a human.
func (e *Engine) ProcessTurn(ctx context.Context, leadID, utterance string) (result TurnResult) {
	ctx, span := e.tracer.Start(ctx, "qualification.process_turn",
		trace.WithAttributes(attribute.String("lead_id", leadID)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("turn processing panicked",
				"lead_id", leadID,
				"panic", r,
			)
			e.metrics.ObserveEscalation(ReasonTechnicalError)
			e.metrics.ObserveTurn(string(OutcomeEscalate))
			result = TurnResult{
				Outcome:          OutcomeEscalate,
				Response:         technicalErrorMessage,
				EscalationReason: ReasonTechnicalError,
			}
		}
	}()

	lock := e.acquireLead(leadID)
	defer e.releaseLead(leadID, lock)

	session, err := e.store.Get(ctx, leadID)
	if err != nil {
		e.logger.Error("failed to load session", "lead_id", leadID, "error", err)
		span.RecordError(err)
		e.metrics.ObserveEscalation(ReasonTechnicalError)
		e.metrics.ObserveTurn(string(OutcomeEscalate))
		return TurnResult{
			Outcome:          OutcomeEscalate,
			Response:         technicalErrorMessage,
			EscalationReason: ReasonTechnicalError,
		}
	}
	if session == nil {
		session = NewSession(leadID)
	}

	// Replays after the call ended re-return the terminal outcome
	// without touching the session.
	if session.State.Terminal() {
		span.SetAttributes(attribute.String("state", string(session.State)))
		return e.terminalResult(session)
	}
	session.State = StateActive

	session.AppendTurn(SpeakerUser, utterance, speechConfidence)

	extractStart := time.Now()
	session.Data = e.extractor.Extract(ctx, utterance, session.Data)
	e.metrics.ObserveLLMLatency("extract", time.Since(extractStart).Seconds())

	if check := EvaluateEscalation(utterance, session.Data); check.Escalate {
		session.State = StateEscalated
		session.EscalationReason = check.Reason
		e.persist(ctx, session)

		e.metrics.ObserveEscalation(check.Reason)
		e.metrics.ObserveTurn(string(OutcomeEscalate))
		span.SetAttributes(attribute.String("escalation_reason", check.Reason))

		e.logger.Warn("call escalated",
			"lead_id", leadID,
			"reason", check.Reason,
			"turn_count", session.TurnCount,
		)
		return TurnResult{
			Outcome:          OutcomeEscalate,
			Response:         check.Message,
			EscalationReason: check.Reason,
		}
	}

	respondStart := time.Now()
	rr := e.responder.Respond(ctx, session.Turns, session.Data, session.TurnCount)
	e.metrics.ObserveLLMLatency("respond", time.Since(respondStart).Seconds())

	session.AppendTurn(SpeakerAssistant, rr.Message, 0)

	if rr.Complete {
		session.State = StateComplete
		session.AppointmentScheduled = rr.AppointmentScheduled
		e.persist(ctx, session)

		e.metrics.ObserveTurn(string(OutcomeComplete))
		span.SetAttributes(attribute.Bool("appointment_scheduled", rr.AppointmentScheduled))

		data := session.Data.Clone()
		return TurnResult{
			Outcome:              OutcomeComplete,
			Response:             rr.Message,
			QualificationData:    &data,
			AppointmentScheduled: rr.AppointmentScheduled,
		}
	}

	e.persist(ctx, session)
	e.metrics.ObserveTurn(string(OutcomeContinue))

	data := session.Data.Clone()
	return TurnResult{
		Outcome:           OutcomeContinue,
		Response:          rr.Message,
		QualificationData: &data,
	}
}

func (e *Engine) terminalResult(session *Session) TurnResult {
	if session.State == StateEscalated {
		reason := session.EscalationReason
		if reason == "" {
			reason = ReasonTechnicalError
		}
		return TurnResult{
			Outcome:          OutcomeEscalate,
			Response:         escalationMessageFor(reason),
			EscalationReason: reason,
		}
	}

	data := session.Data.Clone()
	message := followUpMessage
	if session.AppointmentScheduled {
		message = schedulingMessage
	}
	return TurnResult{
		Outcome:              OutcomeComplete,
		Response:             message,
		QualificationData:    &data,
		AppointmentScheduled: session.AppointmentScheduled,
	}
}

func escalationMessageFor(reason string) string {
	switch reason {
	case ReasonSeverePain:
		return severePainMessage
	case ReasonEmergencyCondition:
		return emergencyConditionMessage
	default:
		return technicalErrorMessage
	}
}

// persist saves best-effort: a storage failure must not lose the turn
// for the caller, so it is logged and the result still returned.
func (e *Engine) persist(ctx context.Context, session *Session) {
	if err := e.store.Put(ctx, session); err != nil {
		e.logger.Error("failed to persist session",
			"lead_id", session.LeadID,
			"error", err,
		)
	}
}

// GenerateFirstQuestion produces the greeting question for a freshly
// answered call and seeds the session transcript with it.
func (e *Engine) GenerateFirstQuestion(ctx context.Context, leadID string) string {
	ctx, span := e.tracer.Start(ctx, "qualification.first_question",
		trace.WithAttributes(attribute.String("lead_id", leadID)))
	defer span.End()

	lock := e.acquireLead(leadID)
	defer e.releaseLead(leadID, lock)

	question := firstQuestionFallback
	start := time.Now()
	resp, err := e.client.Complete(ctx, llm.Request{
		Model:  e.model,
		System: []string{systemPrompt},
		Messages: []llm.ChatMessage{{
			Role:    llm.ChatRoleUser,
			Content: "Start the dental qualification conversation. Ask about their dental concern.",
		}},
		MaxTokens:   100,
		Temperature: 0.7,
	})
	e.metrics.ObserveLLMLatency("first_question", time.Since(start).Seconds())
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		if err != nil {
			span.RecordError(err)
			e.metrics.ObserveLLMFailure("first_question")
		}
		e.logger.Warn("first question generation failed, using fallback",
			"lead_id", leadID,
			"error", err,
		)
	} else {
		question = strings.TrimSpace(resp.Text)
	}

	session, err := e.store.Get(ctx, leadID)
	if err != nil || session == nil {
		session = NewSession(leadID)
	}
	if !session.State.Terminal() {
		session.AppendTurn(SpeakerAssistant, question, 0)
		e.persist(ctx, session)
	}

	return question
}

// SessionSummary exports the session for reporting, or nil when no
// session exists.
func (e *Engine) SessionSummary(ctx context.Context, leadID string) (*Summary, error) {
	session, err := e.store.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	summary := session.Summary()
	return &summary, nil
}

// CleanupSession removes the session. Idempotent.
func (e *Engine) CleanupSession(ctx context.Context, leadID string) error {
	return e.store.Delete(ctx, leadID)
}
