package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findMetric(t *testing.T, families []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}

func TestQualificationMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQualificationMetrics(reg)

	m.ObserveTurn("continue")
	m.ObserveTurn("continue")
	m.ObserveEscalation("severe_pain")
	m.ObserveLLMLatency("extract", 0.25)
	m.ObserveLLMFailure("respond")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	turns := findMetric(t, families, "nova_qualification_turns_total")
	if got := turns.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("turns_total = %v, want 2", got)
	}
	escalations := findMetric(t, families, "nova_qualification_escalations_total")
	if got := escalations.GetMetric()[0].GetLabel()[0].GetValue(); got != "severe_pain" {
		t.Errorf("escalation reason label = %q, want severe_pain", got)
	}
}

func TestWebhookMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)

	m.ObserveInbound("contact.created", "processed")
	m.ObserveLatency("contact.created", 0.1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	findMetric(t, families, "nova_webhooks_inbound_total")
	findMetric(t, families, "nova_webhooks_latency_seconds")
}

func TestMetricsNilSafe(t *testing.T) {
	var q *QualificationMetrics
	q.ObserveTurn("continue")
	q.ObserveEscalation("severe_pain")
	q.ObserveLLMLatency("extract", 0.1)
	q.ObserveLLMFailure("extract")

	var w *WebhookMetrics
	w.ObserveInbound("event", "status")
	w.ObserveLatency("event", 0.1)
}
