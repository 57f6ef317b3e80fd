package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/premierdental/nova-voice-ai/internal/leads"
)

type stubPublisher struct {
	jobs []string
	err  error
}

func (s *stubPublisher) EnqueueDial(_ context.Context, leadID, phone string) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, leadID+"/"+phone)
	return nil
}

type stubDNC struct {
	listed bool
	err    error
}

func (s *stubDNC) Contains(context.Context, string) (bool, error) {
	return s.listed, s.err
}

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func webhookBody(event string) []byte {
	body, _ := json.Marshal(map[string]any{
		"event": event,
		"contact": map[string]any{
			"id":        "contact-1",
			"firstName": "Sam",
			"lastName":  "Avery",
			"phone":     "+15551234567",
			"email":     "sam@example.com",
			"source":    "website",
		},
	})
	return body
}

func postWebhook(t *testing.T, h *LeadWebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/crm", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Signature-256", signature)
	}
	w := httptest.NewRecorder()
	h.Handle(w, req)
	return w
}

func TestLeadWebhookSchedulesCall(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	pub := &stubPublisher{}
	h := NewLeadWebhookHandler("secret", repo, &stubDNC{}, pub, nil, nil)

	body := webhookBody("contact.created")
	w := postWebhook(t, h, body, signPayload("secret", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp["status"] != "processed" || resp["action"] != "call_scheduled" {
		t.Errorf("response = %v", resp)
	}

	lead, err := repo.GetByID(context.Background(), "contact-1")
	if err != nil {
		t.Fatalf("lead not stored: %v", err)
	}
	if lead.FullName() != "Sam Avery" {
		t.Errorf("FullName() = %q", lead.FullName())
	}
	if len(pub.jobs) != 1 || pub.jobs[0] != "contact-1/+15551234567" {
		t.Errorf("jobs = %v", pub.jobs)
	}
}

func TestLeadWebhookUpdateEventStoresWithoutDialing(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	pub := &stubPublisher{}
	h := NewLeadWebhookHandler("secret", repo, &stubDNC{}, pub, nil, nil)

	body := webhookBody("contact.updated")
	w := postWebhook(t, h, body, signPayload("secret", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(pub.jobs) != 0 {
		t.Errorf("jobs = %v, want none for contact.updated", pub.jobs)
	}
	if _, err := repo.GetByID(context.Background(), "contact-1"); err != nil {
		t.Errorf("lead not stored: %v", err)
	}
}

func TestLeadWebhookRejectsBadSignature(t *testing.T) {
	h := NewLeadWebhookHandler("secret", leads.NewInMemoryRepository(), &stubDNC{}, &stubPublisher{}, nil, nil)

	body := webhookBody("contact.created")
	w := postWebhook(t, h, body, signPayload("wrong-secret", body))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}

	w = postWebhook(t, h, body, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for missing signature", w.Code)
	}
}

func TestLeadWebhookRejectsIncompleteLead(t *testing.T) {
	h := NewLeadWebhookHandler("secret", leads.NewInMemoryRepository(), &stubDNC{}, &stubPublisher{}, nil, nil)

	body, _ := json.Marshal(map[string]any{
		"event":   "contact.created",
		"contact": map[string]any{"id": "contact-1", "firstName": "Sam"},
	})
	w := postWebhook(t, h, body, signPayload("secret", body))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing phone", w.Code)
	}
}

func TestLeadWebhookSkipsListedNumber(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	pub := &stubPublisher{}
	h := NewLeadWebhookHandler("secret", repo, &stubDNC{listed: true}, pub, nil, nil)

	body := webhookBody("contact.created")
	w := postWebhook(t, h, body, signPayload("secret", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]any
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp["status"] != "skipped" || resp["reason"] != "DNC_listed" {
		t.Errorf("response = %v", resp)
	}
	if len(pub.jobs) != 0 {
		t.Errorf("jobs = %v, want none for listed number", pub.jobs)
	}
}

func TestLeadWebhookFailsSafeOnDNCError(t *testing.T) {
	pub := &stubPublisher{}
	h := NewLeadWebhookHandler("secret", leads.NewInMemoryRepository(), &stubDNC{err: errors.New("redis down")}, pub, nil, nil)

	body := webhookBody("contact.created")
	w := postWebhook(t, h, body, signPayload("secret", body))

	var resp map[string]any
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp["status"] != "skipped" {
		t.Errorf("response = %v, want skipped when DNC status unverifiable", resp)
	}
	if len(pub.jobs) != 0 {
		t.Error("dial enqueued despite unverifiable do-not-call status")
	}
}

func TestLeadWebhookRejectsInvalidJSON(t *testing.T) {
	h := NewLeadWebhookHandler("secret", leads.NewInMemoryRepository(), &stubDNC{}, &stubPublisher{}, nil, nil)

	body := []byte("{not json")
	w := postWebhook(t, h, body, signPayload("secret", body))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
