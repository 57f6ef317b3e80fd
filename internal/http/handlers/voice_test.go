package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/premierdental/nova-voice-ai/internal/calllog"
	"github.com/premierdental/nova-voice-ai/internal/crm"
	"github.com/premierdental/nova-voice-ai/internal/leads"
	"github.com/premierdental/nova-voice-ai/internal/llm"
	"github.com/premierdental/nova-voice-ai/internal/qualification"
)

type scriptedClient struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
}

func (c *scriptedClient) Complete(context.Context, llm.Request) (llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return llm.Response{}, c.err
	}
	idx := c.calls
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	c.calls++
	return llm.Response{Text: c.responses[idx]}, nil
}

type stubCRM struct {
	mu    sync.Mutex
	calls []string
}

func (s *stubCRM) ProcessQualificationResults(_ context.Context, leadID string, _ qualification.QualificationData, _ string) crm.Results {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, leadID)
	return crm.Results{ContactUpdated: true}
}

type stubNotifier struct {
	escalations []string
	qualified   []string
}

func (s *stubNotifier) NotifyEscalation(_ context.Context, _ *leads.Lead, reason string, _ qualification.QualificationData) error {
	s.escalations = append(s.escalations, reason)
	return nil
}

func (s *stubNotifier) NotifyQualifiedLead(_ context.Context, _ *leads.Lead, _ qualification.QualificationData, _ bool) error {
	s.qualified = append(s.qualified, "qualified")
	return nil
}

type voiceFixture struct {
	handler  *VoiceHandler
	engine   *qualification.Engine
	repo     leads.Repository
	crm      *stubCRM
	notifier *stubNotifier
	router   chi.Router
}

// newVoiceFixture wires a real engine over scripted model responses:
// extractJSON feeds the extractor, respondText the responder.
func newVoiceFixture(t *testing.T, extractJSON, respondText string) *voiceFixture {
	t.Helper()

	extractClient := &scriptedClient{responses: []string{extractJSON}}
	respondClient := &scriptedClient{responses: []string{respondText}}
	firstQClient := &scriptedClient{responses: []string{"What brings you to Premier Dental today?"}}

	engine := qualification.NewEngine(
		qualification.NewMemorySessionStore(0),
		qualification.NewExtractor(extractClient, "test-model", nil),
		qualification.NewResponder(respondClient, "test-model", nil),
		firstQClient,
		"test-model",
		nil,
		nil,
	)

	repo := leads.NewInMemoryRepository()
	if err := repo.Upsert(context.Background(), &leads.Lead{ID: "lead-1", FirstName: "Sam", Phone: "+15551234567"}); err != nil {
		t.Fatalf("seed lead: %v", err)
	}

	crmStub := &stubCRM{}
	notifier := &stubNotifier{}
	handler := NewVoiceHandler(engine, repo, calllog.NewStore(nil), crmStub, notifier, "+15559998888", nil)

	r := chi.NewRouter()
	r.Post("/voice/start/{leadID}", handler.Start)
	r.Post("/voice/consent/{leadID}", handler.Consent)
	r.Post("/voice/process/{leadID}", handler.Process)
	r.Post("/voice/status/{leadID}", handler.Status)

	return &voiceFixture{
		handler:  handler,
		engine:   engine,
		repo:     repo,
		crm:      crmStub,
		notifier: notifier,
		router:   r,
	}
}

func (f *voiceFixture) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestVoiceStartGreetsLeadByName(t *testing.T) {
	f := newVoiceFixture(t, "{}", "How can I help?")

	w := f.post(t, "/voice/start/lead-1", url.Values{"CallSid": {"CA123"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "application/xml" {
		t.Errorf("Content-Type = %q", got)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Hello Sam, this is Nova from Premier Dental") {
		t.Errorf("greeting missing:\n%s", body)
	}
	if !strings.Contains(body, "/voice/consent/lead-1") {
		t.Errorf("consent gather missing:\n%s", body)
	}

	lead, _ := f.repo.GetByID(context.Background(), "lead-1")
	if lead.CallStatus != leads.CallStatusInitiated || lead.CallSID != "CA123" {
		t.Errorf("lead = %+v", lead)
	}
}

func TestVoiceStartMachineDetection(t *testing.T) {
	f := newVoiceFixture(t, "{}", "How can I help?")

	w := f.post(t, "/voice/start/lead-1", url.Values{
		"CallSid":    {"CA123"},
		"AnsweredBy": {"machine_start"},
	})
	body := w.Body.String()
	if !strings.Contains(body, "Please call us back") {
		t.Errorf("voicemail message missing:\n%s", body)
	}
	if strings.Contains(body, "Gather") {
		t.Errorf("machine answer should not gather speech:\n%s", body)
	}
}

func TestVoiceConsentYes(t *testing.T) {
	f := newVoiceFixture(t, "{}", "How can I help?")

	w := f.post(t, "/voice/consent/lead-1", url.Values{"SpeechResult": {"Yes, that's fine"}})
	body := w.Body.String()
	if !strings.Contains(body, "What brings you to Premier Dental today?") {
		t.Errorf("first question missing:\n%s", body)
	}
	if !strings.Contains(body, "/voice/process/lead-1") {
		t.Errorf("process gather missing:\n%s", body)
	}
}

func TestVoiceConsentDeclined(t *testing.T) {
	f := newVoiceFixture(t, "{}", "How can I help?")

	w := f.post(t, "/voice/consent/lead-1", url.Values{"SpeechResult": {"No thanks"}})
	if !strings.Contains(w.Body.String(), "No problem. Have a great day!") {
		t.Errorf("decline message missing:\n%s", w.Body.String())
	}
}

func TestVoiceProcessContinues(t *testing.T) {
	f := newVoiceFixture(t, `{"chief_complaint":"cracked molar"}`, "On a scale of one to ten, how bad is the pain?")

	w := f.post(t, "/voice/process/lead-1", url.Values{
		"CallSid":      {"CA123"},
		"SpeechResult": {"I cracked a molar yesterday"},
	})
	body := w.Body.String()
	if !strings.Contains(body, "how bad is the pain?") {
		t.Errorf("follow-up question missing:\n%s", body)
	}
	if !strings.Contains(body, "/voice/process/lead-1") {
		t.Errorf("gather missing on continue:\n%s", body)
	}
	if len(f.notifier.escalations)+len(f.notifier.qualified) != 0 {
		t.Error("notifications sent for a mid-call turn")
	}
}

func TestVoiceProcessEscalates(t *testing.T) {
	f := newVoiceFixture(t, "{}", "unused")

	w := f.post(t, "/voice/process/lead-1", url.Values{
		"CallSid":      {"CA123"},
		"SpeechResult": {"There's severe bleeding that won't stop"},
	})
	body := w.Body.String()
	if !strings.Contains(body, "emergency dental team") {
		t.Errorf("escalation message missing:\n%s", body)
	}
	if !strings.Contains(body, ">+15559998888</Dial>") {
		t.Errorf("transfer dial missing:\n%s", body)
	}

	lead, _ := f.repo.GetByID(context.Background(), "lead-1")
	if lead.CallStatus != leads.CallStatusEscalated {
		t.Errorf("CallStatus = %q, want escalated", lead.CallStatus)
	}
	if len(f.notifier.escalations) != 1 || f.notifier.escalations[0] != qualification.ReasonEmergencyCondition {
		t.Errorf("escalations = %v", f.notifier.escalations)
	}
	if len(f.crm.calls) != 0 {
		t.Error("CRM write-back ran for an escalated call")
	}
}

func TestVoiceProcessCompletesAndWritesBack(t *testing.T) {
	// Extraction fills every tracked field, so the responder concludes
	// without another model call.
	extractJSON := `{"chief_complaint":"cracked molar","pain_level":"2","insurance_provider":"Delta Dental","preferred_appointment_time":"weekday mornings"}`
	f := newVoiceFixture(t, extractJSON, "unused")

	w := f.post(t, "/voice/process/lead-1", url.Values{
		"CallSid":      {"CA123"},
		"SpeechResult": {"It's a cracked molar, pain is about a two, I have Delta Dental, weekday mornings work"},
	})
	body := w.Body.String()
	if !strings.Contains(body, "schedule you for an appointment") {
		t.Errorf("scheduling conclusion missing:\n%s", body)
	}
	if strings.Contains(body, "Gather") {
		t.Errorf("completed call should not gather:\n%s", body)
	}

	lead, _ := f.repo.GetByID(context.Background(), "lead-1")
	if lead.CallStatus != leads.CallStatusCompleted {
		t.Errorf("CallStatus = %q, want completed", lead.CallStatus)
	}
	if len(f.crm.calls) != 1 || f.crm.calls[0] != "lead-1" {
		t.Errorf("crm calls = %v", f.crm.calls)
	}
	if len(f.notifier.qualified) != 1 {
		t.Errorf("qualified notifications = %v", f.notifier.qualified)
	}
}

func TestVoiceStatusCleansUpSession(t *testing.T) {
	f := newVoiceFixture(t, `{"chief_complaint":"cracked molar"}`, "Next question?")

	// Run one turn so a session exists.
	f.post(t, "/voice/process/lead-1", url.Values{
		"CallSid":      {"CA123"},
		"SpeechResult": {"I cracked a molar"},
	})
	if summary, _ := f.engine.SessionSummary(context.Background(), "lead-1"); summary == nil {
		t.Fatal("session missing before status callback")
	}

	w := f.post(t, "/voice/status/lead-1", url.Values{
		"CallSid":    {"CA123"},
		"CallStatus": {"completed"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	if summary, err := f.engine.SessionSummary(context.Background(), "lead-1"); err != nil || summary != nil {
		t.Errorf("session survived cleanup: (%+v, %v)", summary, err)
	}
	lead, _ := f.repo.GetByID(context.Background(), "lead-1")
	if lead.CallStatus != leads.CallStatusCompleted {
		t.Errorf("CallStatus = %q, want completed", lead.CallStatus)
	}
}

func TestVoiceStatusKeepsEscalatedLeadStatus(t *testing.T) {
	f := newVoiceFixture(t, "{}", "unused")

	f.post(t, "/voice/process/lead-1", url.Values{
		"CallSid":      {"CA123"},
		"SpeechResult": {"I think it's an abscess"},
	})

	f.post(t, "/voice/status/lead-1", url.Values{
		"CallSid":    {"CA123"},
		"CallStatus": {"completed"},
	})
	lead, _ := f.repo.GetByID(context.Background(), "lead-1")
	if lead.CallStatus != leads.CallStatusEscalated {
		t.Errorf("CallStatus = %q, want escalation preserved", lead.CallStatus)
	}
}
