package crm

import (
	"fmt"
	"strings"
	"time"

	"github.com/premierdental/nova-voice-ai/internal/qualification"
)

type customField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// formatQualificationNotes renders the call summary and captured data
// into the structured note block stored on the contact.
func formatQualificationNotes(callSummary string, data qualification.QualificationData, at time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "AI QUALIFICATION CALL - %s\n\n", at.Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&b, "CALL SUMMARY:\n%s\n\n", callSummary)
	b.WriteString("QUALIFICATION DATA:\n")
	fmt.Fprintf(&b, "• Chief Complaint: %s\n", orDefault(data.ChiefComplaint, "Not specified"))
	fmt.Fprintf(&b, "• Pain Level: %s\n", orDefault(string(data.PainLevel), "Not assessed"))
	fmt.Fprintf(&b, "• Urgency: %s\n", data.Urgency)
	fmt.Fprintf(&b, "• Insurance: %s\n", orDefault(data.InsuranceProvider, "Not provided"))
	fmt.Fprintf(&b, "• Preferred Appointment: %s\n", orDefault(data.PreferredAppointmentTime, "Flexible"))
	fmt.Fprintf(&b, "• Last Dental Visit: %s\n", orDefault(data.LastDentalVisit, "Not discussed"))

	b.WriteString("\nNEXT STEPS:\n")
	switch data.Urgency {
	case qualification.UrgencyEmergency:
		b.WriteString("• URGENT: Immediate follow-up required\n")
	case qualification.UrgencyHigh:
		b.WriteString("• Priority scheduling within 48 hours\n")
	default:
		b.WriteString("• Standard appointment scheduling\n")
	}

	if len(data.EmergencyIndicators) > 0 {
		fmt.Fprintf(&b, "• Emergency indicators noted: %s\n", strings.Join(data.EmergencyIndicators, ", "))
	}

	return strings.TrimSpace(b.String())
}

// customFields maps captured data onto the contact's AI custom fields.
// Empty values are skipped so stale data is never blanked out.
func customFields(data qualification.QualificationData, at time.Time) []customField {
	fields := []customField{}
	add := func(key, value string) {
		if value != "" {
			fields = append(fields, customField{Key: key, Value: value})
		}
	}

	add("ai_pain_level", string(data.PainLevel))
	add("ai_urgency", string(data.Urgency))
	add("ai_insurance", data.InsuranceProvider)
	add("ai_chief_complaint", data.ChiefComplaint)
	add("ai_preferred_time", data.PreferredAppointmentTime)
	add("ai_last_call", at.Format(time.RFC3339))

	return fields
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
