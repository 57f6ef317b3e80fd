// Package crm integrates with the GoHighLevel REST API: contact lookup,
// qualification write-back, tagging, tasks, and calendar appointments.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/premierdental/nova-voice-ai/internal/qualification"
	"github.com/premierdental/nova-voice-ai/pkg/logging"
)

const defaultTimeout = 20 * time.Second

// Contact is the subset of a CRM contact record the dialer needs.
type Contact struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Source    string `json:"source"`
}

// AppointmentRequest describes a calendar slot to book for a contact.
type AppointmentRequest struct {
	ContactID   string
	StartAt     time.Time
	ServiceType string
	Notes       string
}

// Results reports which CRM side effects of a finished call succeeded.
// Write-back is best effort, so partial results are normal.
type Results struct {
	ContactUpdated     bool     `json:"contact_updated"`
	AppointmentCreated bool     `json:"appointment_created"`
	TagsAdded          []string `json:"tags_added"`
	TasksCreated       []string `json:"tasks_created"`
}

// Client talks to the GoHighLevel REST API.
type Client struct {
	baseURL    string
	apiKey     string
	calendarID string
	httpClient *http.Client
	logger     *logging.Logger
	now        func() time.Time
}

// NewClient creates a CRM client. baseURL defaults to the public
// GoHighLevel endpoint when empty.
func NewClient(baseURL, apiKey, calendarID string, logger *logging.Logger) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://rest.gohighlevel.com/v1"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		calendarID: calendarID,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
		now:        time.Now,
	}
}

// GetContact loads a contact by ID. A missing contact is an error.
func (c *Client) GetContact(ctx context.Context, contactID string) (*Contact, error) {
	var out struct {
		Contact Contact `json:"contact"`
	}
	if err := c.do(ctx, http.MethodGet, "/contacts/"+contactID, nil, &out); err != nil {
		return nil, err
	}
	if out.Contact.ID == "" {
		out.Contact.ID = contactID
	}
	return &out.Contact, nil
}

// UpdateContactNotes writes the call summary and qualification data to
// the contact as structured notes plus custom fields.
func (c *Client) UpdateContactNotes(ctx context.Context, contactID, callSummary string, data qualification.QualificationData) error {
	payload := map[string]any{
		"notes":        formatQualificationNotes(callSummary, data, c.now().UTC()),
		"customFields": customFields(data, c.now().UTC()),
	}
	return c.do(ctx, http.MethodPut, "/contacts/"+contactID, payload, nil)
}

// AddContactTag attaches a single tag to a contact.
func (c *Client) AddContactTag(ctx context.Context, contactID, tag string) error {
	payload := map[string]any{"tags": []string{tag}}
	return c.do(ctx, http.MethodPost, "/contacts/"+contactID+"/tags", payload, nil)
}

// CreateTask creates a follow-up task and returns its ID.
func (c *Client) CreateTask(ctx context.Context, contactID, title, body string, dueDate time.Time) (string, error) {
	payload := map[string]any{
		"contactId": contactID,
		"title":     title,
		"body":      body,
		"completed": false,
	}
	if !dueDate.IsZero() {
		payload["dueDate"] = dueDate.UTC().Format(time.RFC3339)
	}
	var out struct {
		Task struct {
			ID string `json:"id"`
		} `json:"task"`
	}
	if err := c.do(ctx, http.MethodPost, "/tasks", payload, &out); err != nil {
		return "", err
	}
	return out.Task.ID, nil
}

// CreateAppointment books a one-hour calendar slot and returns the
// appointment ID.
func (c *Client) CreateAppointment(ctx context.Context, req AppointmentRequest) (string, error) {
	payload := map[string]any{
		"contactId":         req.ContactID,
		"calendarId":        c.calendarID,
		"startTime":         req.StartAt.UTC().Format(time.RFC3339),
		"endTime":           req.StartAt.Add(time.Hour).UTC().Format(time.RFC3339),
		"title":             "Dental Consultation - " + req.ServiceType,
		"appointmentStatus": "confirmed",
		"notes":             req.Notes,
	}
	var out struct {
		Appointment struct {
			ID string `json:"id"`
		} `json:"appointment"`
	}
	if err := c.do(ctx, http.MethodPost, "/appointments", payload, &out); err != nil {
		return "", err
	}
	return out.Appointment.ID, nil
}

// ProcessQualificationResults runs the full post-call write-back for a
// lead: notes, urgency and pain tags, a next-day appointment for
// qualified non-emergency leads, and an urgent follow-up task when the
// urgency warrants one. Each step is attempted independently.
func (c *Client) ProcessQualificationResults(ctx context.Context, leadID string, data qualification.QualificationData, callSummary string) Results {
	results := Results{TagsAdded: []string{}, TasksCreated: []string{}}

	if err := c.UpdateContactNotes(ctx, leadID, callSummary, data); err != nil {
		c.logger.Error("crm contact update failed", "lead_id", leadID, "error", err)
	} else {
		results.ContactUpdated = true
	}

	urgencyTag := "AI-Qualified-" + titleCase(string(data.Urgency))
	if err := c.AddContactTag(ctx, leadID, urgencyTag); err != nil {
		c.logger.Error("crm tag failed", "lead_id", leadID, "tag", urgencyTag, "error", err)
	} else {
		results.TagsAdded = append(results.TagsAdded, urgencyTag)
	}

	if name := painTagName(data.PainLevel); name != "" {
		painTag := "Pain-Level-" + name
		if err := c.AddContactTag(ctx, leadID, painTag); err != nil {
			c.logger.Error("crm tag failed", "lead_id", leadID, "tag", painTag, "error", err)
		} else {
			results.TagsAdded = append(results.TagsAdded, painTag)
		}
	}

	if data.ChiefComplaint != "" && data.PreferredAppointmentTime != "" && data.Urgency != qualification.UrgencyEmergency {
		appointmentID, err := c.CreateAppointment(ctx, AppointmentRequest{
			ContactID:   leadID,
			StartAt:     c.now().UTC().Add(24 * time.Hour),
			ServiceType: "Initial Consultation",
			Notes:       "AI Qualified - " + data.ChiefComplaint,
		})
		if err != nil {
			c.logger.Error("crm appointment failed", "lead_id", leadID, "error", err)
		} else {
			results.AppointmentCreated = appointmentID != ""
		}
	}

	if data.Urgency == qualification.UrgencyHigh || data.Urgency == qualification.UrgencyEmergency {
		title := fmt.Sprintf("URGENT: Follow up AI qualified lead - %s", data.Urgency)
		body := fmt.Sprintf(
			"AI Qualification completed with %s urgency.\nChief complaint: %s\nPain level: %s\nImmediate attention required.",
			data.Urgency, data.ChiefComplaint, data.PainLevel,
		)
		taskID, err := c.CreateTask(ctx, leadID, title, body, c.now().UTC().Add(2*time.Hour))
		if err != nil {
			c.logger.Error("crm task failed", "lead_id", leadID, "error", err)
		} else if taskID != "" {
			results.TasksCreated = append(results.TasksCreated, taskID)
		}
	}

	c.logger.Info("qualification write-back finished",
		"lead_id", leadID,
		"contact_updated", results.ContactUpdated,
		"appointment_created", results.AppointmentCreated,
		"tags_added", len(results.TagsAdded),
		"tasks_created", len(results.TasksCreated),
	)
	return results
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	if strings.TrimSpace(c.apiKey) == "" {
		return fmt.Errorf("crm: missing api key")
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("crm: marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("crm: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("crm: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("crm: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return fmt.Errorf("crm: %s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("crm: unmarshal response: %w", err)
		}
	}
	return nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// painTagName maps high pain bands to a human-readable tag suffix.
// Lower bands are not tagged.
func painTagName(level qualification.PainLevel) string {
	switch level {
	case qualification.PainLevelSevere:
		return "Severe"
	case qualification.PainLevelEmergency:
		return "Emergency"
	default:
		return ""
	}
}
