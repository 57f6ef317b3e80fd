package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/premierdental/nova-voice-ai/internal/leads"
	"github.com/premierdental/nova-voice-ai/internal/qualification"
	"github.com/premierdental/nova-voice-ai/pkg/logging"
)

// Service sends operational notifications to the practice team.
type Service struct {
	email      EmailSender
	recipients []string
	logger     *logging.Logger
	now        func() time.Time
}

// NewService creates a notification service. With no sender or no
// recipients configured, notifications become no-ops.
func NewService(email EmailSender, recipients []string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:      email,
		recipients: recipients,
		logger:     logger,
		now:        time.Now,
	}
}

// NotifyEscalation alerts the team that a call was handed off to the
// emergency line mid-conversation.
func (s *Service) NotifyEscalation(ctx context.Context, lead *leads.Lead, reason string, data qualification.QualificationData) error {
	if s.email == nil || len(s.recipients) == 0 {
		s.logger.Debug("notify: escalation notifications not configured")
		return nil
	}

	name := "Unknown caller"
	phone := ""
	if lead != nil {
		name = lead.FullName()
		phone = lead.Phone
	}

	subject := fmt.Sprintf("🚨 Escalated Call - %s", name)
	body := fmt.Sprintf(`A qualification call was escalated to the emergency line.

Patient: %s
Phone: %s
Reason: %s
Time: %s

Chief Complaint: %s
Pain Level: %s
Urgency: %s%s

Please confirm the caller reached a team member.

— Nova`,
		name, phone, reasonLabel(reason), s.now().UTC().Format("January 2, 2006 at 3:04 PM MST"),
		orDash(data.ChiefComplaint), orDash(string(data.PainLevel)), data.Urgency,
		indicatorsLine(data.EmergencyIndicators))

	html := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #dc2626;">🚨 Escalated Call</h2>
<p><strong>%s</strong> was transferred to the emergency dental line.</p>
<table style="border-collapse: collapse; margin: 20px 0;">
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Phone:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><a href="tel:%s">%s</a></td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Reason:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Chief Complaint:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Pain Level:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
</table>
<p style="background: #fef2f2; padding: 12px; border-radius: 8px; border-left: 4px solid #dc2626;">
  ⚠️ <strong>Immediate follow-up</strong> — confirm the caller reached a team member.
</p>
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">— Nova</p>
</div>`,
		name, phone, phone, reasonLabel(reason),
		orDash(data.ChiefComplaint), orDash(string(data.PainLevel)))

	return s.sendAll(ctx, subject, body, html)
}

// NotifyQualifiedLead tells the scheduling team a call finished with a
// fully qualified lead.
func (s *Service) NotifyQualifiedLead(ctx context.Context, lead *leads.Lead, data qualification.QualificationData, appointmentScheduled bool) error {
	if s.email == nil || len(s.recipients) == 0 {
		return nil
	}

	name := "Unknown caller"
	phone := ""
	if lead != nil {
		name = lead.FullName()
		phone = lead.Phone
	}

	nextStep := "Follow up to discuss their dental needs."
	if appointmentScheduled {
		nextStep = "An appointment request was created. Please confirm the slot with the patient."
	}

	subject := fmt.Sprintf("✅ Qualified Lead - %s", name)
	body := fmt.Sprintf(`Nova finished a qualification call.

Patient: %s
Phone: %s
Chief Complaint: %s
Pain Level: %s
Urgency: %s
Insurance: %s
Preferred Time: %s

%s

— Nova`,
		name, phone,
		orDash(data.ChiefComplaint), orDash(string(data.PainLevel)), data.Urgency,
		orDash(data.InsuranceProvider), orDash(data.PreferredAppointmentTime),
		nextStep)

	return s.sendAll(ctx, subject, body, "")
}

func (s *Service) sendAll(ctx context.Context, subject, body, html string) error {
	var errs []error
	for _, recipient := range s.recipients {
		msg := EmailMessage{To: recipient, Subject: subject, Body: body, HTML: html}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send email", "error", err, "to", recipient)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d notification(s) failed", len(errs))
	}
	return nil
}

func reasonLabel(reason string) string {
	switch reason {
	case qualification.ReasonSeverePain:
		return "Severe pain reported"
	case qualification.ReasonEmergencyCondition:
		return "Emergency condition mentioned"
	case qualification.ReasonTechnicalError:
		return "Technical error during call"
	default:
		return reason
	}
}

func indicatorsLine(indicators []string) string {
	if len(indicators) == 0 {
		return ""
	}
	return fmt.Sprintf("\nEmergency indicators: %s", strings.Join(indicators, ", "))
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
