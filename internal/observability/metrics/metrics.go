package metrics

import "github.com/prometheus/client_golang/prometheus"

// QualificationMetrics exposes counters/histograms for the turn engine.
type QualificationMetrics struct {
	turnsTotal       *prometheus.CounterVec
	escalationsTotal *prometheus.CounterVec
	llmLatency       *prometheus.HistogramVec
	llmFailures      *prometheus.CounterVec
}

func NewQualificationMetrics(reg prometheus.Registerer) *QualificationMetrics {
	m := &QualificationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nova",
			Subsystem: "qualification",
			Name:      "turns_total",
			Help:      "Total processed conversation turns",
		}, []string{"outcome"}),
		escalationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nova",
			Subsystem: "qualification",
			Name:      "escalations_total",
			Help:      "Total escalated calls",
		}, []string{"reason"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nova",
			Subsystem: "qualification",
			Name:      "llm_latency_seconds",
			Help:      "Latency of model calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		llmFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nova",
			Subsystem: "qualification",
			Name:      "llm_failures_total",
			Help:      "Total failed model calls",
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.escalationsTotal, m.llmLatency, m.llmFailures)
	return m
}

func (m *QualificationMetrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
}

func (m *QualificationMetrics) ObserveEscalation(reason string) {
	if m == nil {
		return
	}
	m.escalationsTotal.WithLabelValues(reason).Inc()
}

func (m *QualificationMetrics) ObserveLLMLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *QualificationMetrics) ObserveLLMFailure(operation string) {
	if m == nil {
		return
	}
	m.llmFailures.WithLabelValues(operation).Inc()
}

// WebhookMetrics exposes counters/histograms for inbound webhooks.
type WebhookMetrics struct {
	inboundTotal   *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nova",
			Subsystem: "webhooks",
			Name:      "inbound_total",
			Help:      "Total inbound webhooks",
		}, []string{"event_type", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nova",
			Subsystem: "webhooks",
			Name:      "latency_seconds",
			Help:      "Latency of webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.webhookLatency)
	return m
}

func (m *WebhookMetrics) ObserveInbound(eventType, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(eventType, status).Inc()
}

func (m *WebhookMetrics) ObserveLatency(eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(eventType).Observe(seconds)
}
