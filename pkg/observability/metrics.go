package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/slotflow/pkg/domain"
)

const namespace = "slotflow"

// Metrics holds the Prometheus collectors fed by the lifecycle hooks.
type Metrics struct {
	registry prometheus.Gatherer

	Turns          *prometheus.CounterVec
	TurnDuration   *prometheus.HistogramVec
	SlotVisits     *prometheus.CounterVec
	ActionCalls    *prometheus.CounterVec
	ActionDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg. When reg is
// nil a private registry is used.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gatherer = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{
		registry: gatherer,
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Handled turns by intent and outcome.",
		}, []string{"intent", "outcome"}),
		TurnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Duration of handled turns.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
		SlotVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_visits_total",
			Help:      "Slots entered by intent and slot id.",
		}, []string{"intent", "slot"}),
		ActionCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_calls_total",
			Help:      "Outbound calls by slot, method and status.",
		}, []string{"slot", "method", "status"}),
		ActionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Duration of outbound calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"slot"}),
	}
	reg.MustRegister(m.Turns, m.TurnDuration, m.SlotVisits, m.ActionCalls, m.ActionDuration)
	return m
}

// Hooks returns lifecycle hooks recording into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSlotEnter: func(_ context.Context, e *domain.SlotEvent) {
			m.SlotVisits.WithLabelValues(e.Intent, e.SlotID).Inc()
		},
		OnActionReturn: func(_ context.Context, e *domain.ActionEvent) {
			status := strconv.Itoa(e.Status)
			if e.IsError && e.Status == 0 {
				status = "error"
			}
			m.ActionCalls.WithLabelValues(e.SlotID, e.Method, status).Inc()
			m.ActionDuration.WithLabelValues(e.SlotID).Observe(e.Duration.Seconds())
		},
		OnTurn: func(_ context.Context, e *domain.TurnEvent) {
			m.Turns.WithLabelValues(e.Intent, string(e.Outcome)).Inc()
			m.TurnDuration.WithLabelValues(e.Intent).Observe(e.Duration.Seconds())
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
