package qualification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/premierdental/nova-voice-ai/internal/llm"
)

func TestMissingFieldsPriorityOrder(t *testing.T) {
	tests := []struct {
		name string
		data QualificationData
		want []string
	}{
		{
			"all missing",
			QualificationData{},
			[]string{"chief_complaint", "pain_level", "insurance_provider", "preferred_appointment_time"},
		},
		{
			"complaint set",
			QualificationData{ChiefComplaint: "toothache"},
			[]string{"pain_level", "insurance_provider", "preferred_appointment_time"},
		},
		{
			"only appointment missing",
			QualificationData{
				ChiefComplaint:    "toothache",
				PainLevel:         PainLevelMild,
				InsuranceProvider: "Aetna",
			},
			[]string{"preferred_appointment_time"},
		},
		{
			"nothing missing",
			QualificationData{
				ChiefComplaint:           "toothache",
				PainLevel:                PainLevelNone,
				InsuranceProvider:        "Aetna",
				PreferredAppointmentTime: "next week",
			},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MissingFields(tt.data)
			if len(got) != len(tt.want) {
				t.Fatalf("MissingFields() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("MissingFields() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestRespondTurnBudgetConcludesWithoutModelCall(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{{Text: "should not be used"}}}
	r := NewResponder(client, "test-model", nil)

	// Qualified caller at the budget: scheduling template.
	result := r.Respond(context.Background(), nil, QualificationData{
		ChiefComplaint: "broken crown",
		PainLevel:      PainLevelModerate,
	}, maxQualificationTurns)

	if client.calls != 0 {
		t.Fatalf("model calls = %d, want 0 on conclusion", client.calls)
	}
	if !result.Complete || !result.AppointmentScheduled {
		t.Errorf("result = %+v, want complete and scheduled", result)
	}
	if result.Message != schedulingMessage {
		t.Errorf("message = %q, want scheduling template", result.Message)
	}

	// Unqualified caller at the budget: follow-up template.
	result = r.Respond(context.Background(), nil, QualificationData{}, maxQualificationTurns)
	if client.calls != 0 {
		t.Fatalf("model calls = %d, want 0 on conclusion", client.calls)
	}
	if !result.Complete || result.AppointmentScheduled {
		t.Errorf("result = %+v, want complete and not scheduled", result)
	}
	if result.Message != followUpMessage {
		t.Errorf("message = %q, want follow-up template", result.Message)
	}
}

func TestRespondConcludesWhenNothingMissing(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{{Text: "unused"}}}
	r := NewResponder(client, "test-model", nil)

	result := r.Respond(context.Background(), nil, QualificationData{
		ChiefComplaint:           "toothache",
		PainLevel:                PainLevelMild,
		InsuranceProvider:        "Aetna",
		PreferredAppointmentTime: "Friday",
	}, 3)

	if client.calls != 0 {
		t.Fatalf("model calls = %d, want 0", client.calls)
	}
	if !result.Complete || !result.AppointmentScheduled {
		t.Errorf("result = %+v, want complete and scheduled", result)
	}
}

func TestRespondAsksFollowUpQuestion(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{{Text: "  On a scale of 0 to 10, how bad is the pain right now?  "}}}
	r := NewResponder(client, "test-model", nil)

	history := []ConversationTurn{
		{Speaker: SpeakerAssistant, Message: "What brings you in?"},
		{Speaker: SpeakerUser, Message: "My tooth hurts"},
	}
	result := r.Respond(context.Background(), history, QualificationData{ChiefComplaint: "toothache"}, 1)

	if result.Complete {
		t.Fatalf("result = %+v, want continuation", result)
	}
	if result.Message != "On a scale of 0 to 10, how bad is the pain right now?" {
		t.Errorf("message = %q, want trimmed model output", result.Message)
	}
	if client.calls != 1 {
		t.Fatalf("model calls = %d, want 1", client.calls)
	}
	prompt := client.requests[0].Messages[0].Content
	if !strings.Contains(prompt, "pain_level") {
		t.Errorf("prompt does not name the missing fields: %s", prompt)
	}
	if !strings.Contains(prompt, "user: My tooth hurts") {
		t.Errorf("prompt does not include the transcript: %s", prompt)
	}
}

func TestRespondWindowsHistoryToSixTurns(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{{Text: "next question"}}}
	r := NewResponder(client, "test-model", nil)

	var history []ConversationTurn
	for _, msg := range []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8"} {
		history = append(history, ConversationTurn{Speaker: SpeakerUser, Message: msg})
	}
	r.Respond(context.Background(), history, QualificationData{}, 4)

	prompt := client.requests[0].Messages[0].Content
	if strings.Contains(prompt, "user: t2\n") {
		t.Error("prompt includes turns beyond the six-turn window")
	}
	if !strings.Contains(prompt, "user: t3\n") || !strings.Contains(prompt, "user: t8\n") {
		t.Errorf("prompt missing expected window turns: %s", prompt)
	}
}

func TestRespondModelFailureDegradesToHandoff(t *testing.T) {
	client := &scriptedClient{err: errors.New("model down")}
	r := NewResponder(client, "test-model", nil)

	result := r.Respond(context.Background(), nil, QualificationData{}, 2)

	if !result.Complete {
		t.Fatal("handoff result must complete the call")
	}
	if result.AppointmentScheduled {
		t.Error("handoff must not claim an appointment")
	}
	if result.Message != warmHandoffMessage {
		t.Errorf("message = %q, want warm handoff template", result.Message)
	}
}
