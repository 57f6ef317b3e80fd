package qualification

import "strings"

// Escalation reasons surfaced to the telephony layer and CRM.
const (
	ReasonSeverePain         = "severe_pain"
	ReasonEmergencyCondition = "emergency_condition"
	ReasonTechnicalError     = "technical_error"
)

// Escalation handoff messages spoken to the caller.
const (
	severePainMessage = "I understand you're in severe pain. Let me connect you immediately with our emergency dental line."

	emergencyConditionMessage = "This sounds like it needs immediate attention. I'm connecting you with our emergency dental team right now."

	technicalErrorMessage = "I'm experiencing technical difficulties. Let me connect you with a team member."
)

// emergencyKeywords trigger an immediate handoff when heard in any
// utterance, independent of the captured pain level.
var emergencyKeywords = []string{
	"can't breathe",
	"difficulty breathing",
	"swelling in throat",
	"severe bleeding",
	"won't stop bleeding",
	"facial swelling",
	"fever",
	"infection",
	"abscess",
	"trauma",
	"accident",
	"knocked out",
	"allergic reaction",
}

// EscalationCheck is the outcome of evaluating one utterance.
type EscalationCheck struct {
	Escalate bool
	Reason   string
	Message  string
}

// EvaluateEscalation decides whether the current turn must be handed to
// a human. It is stateless: only the latest utterance and the captured
// data are consulted. The pain-level rule is checked before the keyword
// rule, so emergency-level pain always reports severe_pain even when
// the same utterance also contains an emergency keyword.
func EvaluateEscalation(utterance string, data QualificationData) EscalationCheck {
	if data.PainLevel == PainLevelEmergency {
		return EscalationCheck{
			Escalate: true,
			Reason:   ReasonSeverePain,
			Message:  severePainMessage,
		}
	}

	lowered := strings.ToLower(utterance)
	for _, kw := range emergencyKeywords {
		if strings.Contains(lowered, kw) {
			return EscalationCheck{
				Escalate: true,
				Reason:   ReasonEmergencyCondition,
				Message:  emergencyConditionMessage,
			}
		}
	}

	return EscalationCheck{}
}
