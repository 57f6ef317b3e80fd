package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/premierdental/nova-voice-ai/internal/leads"
)

type stubCaller struct {
	mu    sync.Mutex
	calls []string
	sid   string
	err   error
	done  chan struct{}
}

func (s *stubCaller) InitiateQualificationCall(_ context.Context, toNumber, leadID string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, leadID+"/"+toNumber)
	s.mu.Unlock()
	if s.done != nil {
		close(s.done)
	}
	return s.sid, s.err
}

func (s *stubCaller) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubDNC struct {
	listed bool
	err    error
}

func (s *stubDNC) Contains(context.Context, string) (bool, error) {
	return s.listed, s.err
}

func seedLead(t *testing.T, repo leads.Repository) {
	t.Helper()
	if err := repo.Upsert(context.Background(), &leads.Lead{ID: "lead-1", Phone: "+15551234567"}); err != nil {
		t.Fatalf("seed lead: %v", err)
	}
}

func waitForStatus(t *testing.T, repo leads.Repository, want string) *leads.Lead {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		lead, err := repo.GetByID(context.Background(), "lead-1")
		if err == nil && lead.CallStatus == want {
			return lead
		}
		time.Sleep(10 * time.Millisecond)
	}
	lead, _ := repo.GetByID(context.Background(), "lead-1")
	t.Fatalf("lead never reached status %q, last seen %+v", want, lead)
	return nil
}

func runDialer(t *testing.T, caller CallPlacer, dnc DNCChecker, repo leads.Repository) *Publisher {
	t.Helper()
	queue := NewMemoryQueue(8)
	dialer := NewDialer(queue, caller, dnc, repo, nil, WithWorkerCount(1), WithReceiveWaitSeconds(1))

	ctx, cancel := context.WithCancel(context.Background())
	dialer.Start(ctx)
	t.Cleanup(func() {
		cancel()
		dialer.Wait()
	})
	return NewPublisher(queue, nil)
}

func TestDialerPlacesCall(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	seedLead(t, repo)
	caller := &stubCaller{sid: "CA123", done: make(chan struct{})}

	pub := runDialer(t, caller, &stubDNC{}, repo)
	if err := pub.EnqueueDial(context.Background(), "lead-1", "+15551234567"); err != nil {
		t.Fatalf("EnqueueDial() error = %v", err)
	}

	select {
	case <-caller.done:
	case <-time.After(2 * time.Second):
		t.Fatal("call never placed")
	}

	lead := waitForStatus(t, repo, leads.CallStatusInitiated)
	if lead.CallSID != "CA123" {
		t.Errorf("CallSID = %q, want CA123", lead.CallSID)
	}
}

func TestDialerSkipsListedNumber(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	seedLead(t, repo)
	caller := &stubCaller{sid: "CA123"}

	pub := runDialer(t, caller, &stubDNC{listed: true}, repo)
	if err := pub.EnqueueDial(context.Background(), "lead-1", "+15551234567"); err != nil {
		t.Fatalf("EnqueueDial() error = %v", err)
	}

	waitForStatus(t, repo, leads.CallStatusFailed)
	if caller.callCount() != 0 {
		t.Errorf("calls placed = %d, want 0 for listed number", caller.callCount())
	}
}

func TestDialerFailsSafeOnDNCError(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	seedLead(t, repo)
	caller := &stubCaller{sid: "CA123"}

	pub := runDialer(t, caller, &stubDNC{err: errors.New("redis down")}, repo)
	if err := pub.EnqueueDial(context.Background(), "lead-1", "+15551234567"); err != nil {
		t.Fatalf("EnqueueDial() error = %v", err)
	}

	waitForStatus(t, repo, leads.CallStatusFailed)
	if caller.callCount() != 0 {
		t.Error("call placed despite unverifiable do-not-call status")
	}
}

func TestDialerMarksFailedDial(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	seedLead(t, repo)
	caller := &stubCaller{err: errors.New("provider rejected"), done: make(chan struct{})}

	pub := runDialer(t, caller, &stubDNC{}, repo)
	if err := pub.EnqueueDial(context.Background(), "lead-1", "+15551234567"); err != nil {
		t.Fatalf("EnqueueDial() error = %v", err)
	}

	select {
	case <-caller.done:
	case <-time.After(2 * time.Second):
		t.Fatal("dial never attempted")
	}
	waitForStatus(t, repo, leads.CallStatusFailed)
}

func TestMarkStatusWritesRepositoryStatus(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	seedLead(t, repo)
	dialer := NewDialer(NewMemoryQueue(1), &stubCaller{}, &stubDNC{}, repo, nil)

	dialer.markStatus(context.Background(), "lead-1", "CA999", leads.CallStatusInitiated)

	lead, err := repo.GetByID(context.Background(), "lead-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if lead.CallStatus != leads.CallStatusInitiated || lead.CallSID != "CA999" {
		t.Errorf("lead = %+v, want initiated with CA999", lead)
	}
}

func TestMemoryQueueReceiveTimesOut(t *testing.T) {
	queue := NewMemoryQueue(1)

	start := time.Now()
	messages, err := queue.Receive(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if messages != nil {
		t.Errorf("messages = %v, want nil on timeout", messages)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Errorf("Receive returned after %v, want ~1s wait", elapsed)
	}
}

func TestMemoryQueueBatching(t *testing.T) {
	queue := NewMemoryQueue(8)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := queue.Send(ctx, "job"); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	messages, err := queue.Receive(ctx, 2, 0)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if len(messages) != 2 {
		t.Errorf("received %d messages, want batch of 2", len(messages))
	}
}
