package metrics

import "github.com/prometheus/client_golang/prometheus"

// TurnMetrics exposes counters/histograms for the turn pipeline.
type TurnMetrics struct {
	turnsTotal        *prometheus.CounterVec
	shortCircuitTotal *prometheus.CounterVec
	fallbackTotal     *prometheus.CounterVec
	generatorLatency  *prometheus.HistogramVec
	generatorTokens   *prometheus.CounterVec
	turnLatency       prometheus.Histogram
}

func NewTurnMetrics(reg prometheus.Registerer) *TurnMetrics {
	m := &TurnMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voiceagent",
			Subsystem: "engine",
			Name:      "turns_total",
			Help:      "Total processed turns",
		}, []string{"decision"}),
		shortCircuitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voiceagent",
			Subsystem: "engine",
			Name:      "short_circuit_total",
			Help:      "Turns answered without a generator call",
		}, []string{"kind"}),
		fallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voiceagent",
			Subsystem: "engine",
			Name:      "fallback_total",
			Help:      "Turns that ended in a fallback script",
		}, []string{"tier"}),
		generatorLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "voiceagent",
			Subsystem: "engine",
			Name:      "generator_latency_seconds",
			Help:      "Latency of generator completions",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.75, 1, 1.25, 1.5, 2, 3, 5},
		}, []string{"outcome"}),
		generatorTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voiceagent",
			Subsystem: "engine",
			Name:      "generator_tokens_total",
			Help:      "Tokens consumed by generator completions",
		}, []string{"direction"}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voiceagent",
			Subsystem: "engine",
			Name:      "turn_latency_seconds",
			Help:      "End-to-end turn processing latency",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 1.5, 2, 3, 5},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.shortCircuitTotal, m.fallbackTotal, m.generatorLatency, m.generatorTokens, m.turnLatency)
	return m
}

func (m *TurnMetrics) ObserveTurn(decision string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(decision).Inc()
	m.turnLatency.Observe(seconds)
}

func (m *TurnMetrics) ObserveShortCircuit(kind string) {
	if m == nil {
		return
	}
	m.shortCircuitTotal.WithLabelValues(kind).Inc()
}

func (m *TurnMetrics) ObserveFallback(tier string) {
	if m == nil {
		return
	}
	m.fallbackTotal.WithLabelValues(tier).Inc()
}

func (m *TurnMetrics) ObserveGenerator(outcome string, seconds float64, inputTokens, outputTokens int32) {
	if m == nil {
		return
	}
	m.generatorLatency.WithLabelValues(outcome).Observe(seconds)
	if inputTokens > 0 {
		m.generatorTokens.WithLabelValues("input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.generatorTokens.WithLabelValues("output").Add(float64(outputTokens))
	}
}
