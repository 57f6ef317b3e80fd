// Package qualification implements the dental lead qualification
// conversation: structured data capture, escalation rules, response
// generation, and the per-call turn engine.
package qualification

import (
	"strings"
	"time"
)

// PainLevel is a pain severity bucket. The string value is the wire tag.
type PainLevel string

const (
	PainLevelUnset     PainLevel = ""
	PainLevelNone      PainLevel = "0"
	PainLevelMild      PainLevel = "1-3"
	PainLevelModerate  PainLevel = "4-6"
	PainLevelSevere    PainLevel = "7-8"
	PainLevelEmergency PainLevel = "9-10"
)

// ParsePainLevel maps a wire tag back to a PainLevel.
func ParsePainLevel(tag string) (PainLevel, bool) {
	switch PainLevel(tag) {
	case PainLevelNone, PainLevelMild, PainLevelModerate, PainLevelSevere, PainLevelEmergency:
		return PainLevel(tag), true
	}
	return PainLevelUnset, false
}

// Severity returns the position of the level in the severity ordering,
// with unset below none.
func (p PainLevel) Severity() int {
	switch p {
	case PainLevelNone:
		return 1
	case PainLevelMild:
		return 2
	case PainLevelModerate:
		return 3
	case PainLevelSevere:
		return 4
	case PainLevelEmergency:
		return 5
	default:
		return 0
	}
}

// Urgency is the derived triage urgency.
type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyMedium    Urgency = "medium"
	UrgencyHigh      Urgency = "high"
	UrgencyEmergency Urgency = "emergency"
)

var (
	numericPainBuckets = []struct {
		tokens []string
		level  PainLevel
	}{
		{[]string{"9", "10"}, PainLevelEmergency},
		{[]string{"7", "8"}, PainLevelSevere},
		{[]string{"4", "5", "6"}, PainLevelModerate},
		{[]string{"1", "2", "3"}, PainLevelMild},
		{[]string{"0", "no pain"}, PainLevelNone},
	}

	descriptivePainBuckets = []struct {
		tokens []string
		level  PainLevel
	}{
		{[]string{"excruciating", "unbearable", "severe"}, PainLevelSevere},
		{[]string{"moderate", "strong", "significant"}, PainLevelModerate},
		{[]string{"mild", "slight", "minor"}, PainLevelMild},
		{[]string{"none", "no", "nothing"}, PainLevelNone},
	}
)

// NormalizePainLevel maps free-text pain descriptions to a PainLevel.
// Numeric mentions win over descriptive words, and higher buckets are
// checked first so "10" never matches the "0" bucket. Returns
// PainLevelUnset when nothing matches; callers must not overwrite an
// already-set level with unset.
func NormalizePainLevel(raw string) PainLevel {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return PainLevelUnset
	}

	for _, bucket := range numericPainBuckets {
		for _, token := range bucket.tokens {
			if strings.Contains(text, token) {
				return bucket.level
			}
		}
	}
	for _, bucket := range descriptivePainBuckets {
		for _, token := range bucket.tokens {
			if strings.Contains(text, token) {
				return bucket.level
			}
		}
	}
	return PainLevelUnset
}

// DeriveUrgency maps a pain level to triage urgency. Total over all
// levels including unset.
func DeriveUrgency(p PainLevel) Urgency {
	switch p {
	case PainLevelEmergency:
		return UrgencyEmergency
	case PainLevelSevere:
		return UrgencyHigh
	case PainLevelModerate:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// complaint keywords that force escalation regardless of pain level
var complaintEscalationKeywords = []string{"swelling", "fever", "trauma", "bleeding"}

// QualificationData is everything captured about a lead during the call.
type QualificationData struct {
	ChiefComplaint           string    `json:"chief_complaint,omitempty"`
	PainLevel                PainLevel `json:"pain_level,omitempty"`
	Urgency                  Urgency   `json:"urgency"`
	InsuranceProvider        string    `json:"insurance_provider,omitempty"`
	PreferredAppointmentTime string    `json:"preferred_appointment_time,omitempty"`
	LastDentalVisit          string    `json:"last_dental_visit,omitempty"`
	CurrentMedications       []string  `json:"current_medications,omitempty"`
	Allergies                []string  `json:"allergies,omitempty"`
	EmergencyIndicators      []string  `json:"emergency_indicators,omitempty"`
}

// RequiresEscalation reports whether the captured data alone warrants
// handing the call to a human.
func (d *QualificationData) RequiresEscalation() bool {
	if d.PainLevel == PainLevelEmergency {
		return true
	}
	complaint := strings.ToLower(d.ChiefComplaint)
	for _, kw := range complaintEscalationKeywords {
		if strings.Contains(complaint, kw) {
			return true
		}
	}
	return len(d.EmergencyIndicators) > 0
}

// Clone returns a deep copy of the data.
func (d QualificationData) Clone() QualificationData {
	out := d
	out.CurrentMedications = append([]string(nil), d.CurrentMedications...)
	out.Allergies = append([]string(nil), d.Allergies...)
	out.EmergencyIndicators = append([]string(nil), d.EmergencyIndicators...)
	return out
}

// Speaker identifies who produced a conversation turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// ConversationTurn is one utterance in the call transcript.
type ConversationTurn struct {
	Timestamp  time.Time `json:"timestamp"`
	Speaker    Speaker   `json:"speaker"`
	Message    string    `json:"message"`
	Confidence float64   `json:"confidence,omitempty"`
}

// Summary is the export form of a finished or in-flight session.
type Summary struct {
	LeadID             string            `json:"lead_id"`
	State              SessionState      `json:"state"`
	QualificationData  QualificationData `json:"qualification_data"`
	TurnCount          int               `json:"turn_count"`
	ConversationLength int               `json:"conversation_length"`
}
