// Package telephony drives outbound voice calls through the Twilio
// REST API and renders the TwiML documents the voice webhooks return.
package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/premierdental/nova-voice-ai/pkg/logging"
)

const (
	defaultBaseURL = "https://api.twilio.com"
	defaultTimeout = 20 * time.Second

	ringTimeoutSeconds         = 30
	machineDetectTimeoutSecond = 10
)

// CallStatus is the provider-side view of one call.
type CallStatus struct {
	SID        string `json:"sid"`
	Status     string `json:"status"`
	Direction  string `json:"direction"`
	Duration   string `json:"duration"`
	AnsweredBy string `json:"answered_by"`
}

// Client places and controls calls for one account.
type Client struct {
	baseURL       string
	accountSID    string
	authToken     string
	fromNumber    string
	publicBaseURL string
	httpClient    *http.Client
	logger        *logging.Logger
}

// NewClient creates a voice client. publicBaseURL is where the
// provider posts call webhooks back to this service.
func NewClient(baseURL, accountSID, authToken, fromNumber, publicBaseURL string, logger *logging.Logger) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		accountSID:    accountSID,
		authToken:     authToken,
		fromNumber:    fromNumber,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		httpClient:    &http.Client{Timeout: defaultTimeout},
		logger:        logger,
	}
}

// InitiateQualificationCall starts an outbound call to the lead and
// returns the provider call SID. The call is recorded and runs with
// answering machine detection so voicemail gets a short message
// instead of the qualification flow.
func (c *Client) InitiateQualificationCall(ctx context.Context, toNumber, leadID string) (string, error) {
	form := url.Values{}
	form.Set("To", toNumber)
	form.Set("From", c.fromNumber)
	form.Set("Url", fmt.Sprintf("%s/voice/start/%s", c.publicBaseURL, leadID))
	form.Set("Method", http.MethodPost)
	form.Set("StatusCallback", fmt.Sprintf("%s/voice/status/%s", c.publicBaseURL, leadID))
	form.Set("StatusCallbackMethod", http.MethodPost)
	for _, event := range []string{"initiated", "ringing", "answered", "completed"} {
		form.Add("StatusCallbackEvent", event)
	}
	form.Set("Record", "true")
	form.Set("Timeout", fmt.Sprintf("%d", ringTimeoutSeconds))
	form.Set("MachineDetection", "Enable")
	form.Set("MachineDetectionTimeout", fmt.Sprintf("%d", machineDetectTimeoutSecond))

	var out struct {
		SID string `json:"sid"`
	}
	if err := c.postForm(ctx, c.callsPath(), form, &out); err != nil {
		return "", err
	}
	if out.SID == "" {
		return "", fmt.Errorf("telephony: call create returned no sid")
	}

	c.logger.Info("call initiated", "lead_id", leadID, "call_sid", out.SID)
	return out.SID, nil
}

// EndCall hangs up an in-progress call.
func (c *Client) EndCall(ctx context.Context, callSID string) error {
	form := url.Values{}
	form.Set("Status", "completed")
	return c.postForm(ctx, c.callPath(callSID), form, nil)
}

// GetCallStatus fetches the provider's view of a call.
func (c *Client) GetCallStatus(ctx context.Context, callSID string) (*CallStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.callPath(callSID), nil)
	if err != nil {
		return nil, fmt.Errorf("telephony: create request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telephony: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("telephony: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telephony: status fetch failed: status %d", resp.StatusCode)
	}

	var status CallStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("telephony: unmarshal response: %w", err)
	}
	return &status, nil
}

func (c *Client) callsPath() string {
	return fmt.Sprintf("/2010-04-01/Accounts/%s/Calls.json", c.accountSID)
}

func (c *Client) callPath(callSID string) string {
	return fmt.Sprintf("/2010-04-01/Accounts/%s/Calls/%s.json", c.accountSID, callSID)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	if strings.TrimSpace(c.accountSID) == "" || strings.TrimSpace(c.authToken) == "" {
		return fmt.Errorf("telephony: missing account credentials")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telephony: create request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telephony: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telephony: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg := string(body)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return fmt.Errorf("telephony: POST %s: status %d: %s", path, resp.StatusCode, msg)
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("telephony: unmarshal response: %w", err)
		}
	}
	return nil
}
