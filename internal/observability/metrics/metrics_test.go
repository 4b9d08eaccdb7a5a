package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestTurnMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTurnMetrics(reg)
	m.ObserveTurn("booking", 0.4)
	m.ObserveShortCircuit("decline")
	m.ObserveFallback("tier1_repeat")
	m.ObserveGenerator("ok", 0.9, 320, 45)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestTurnMetricsTokenCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTurnMetrics(reg)
	m.ObserveGenerator("ok", 1.0, 100, 20)
	m.ObserveGenerator("ok", 1.0, 50, 10)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var inputTotal float64
	for _, mf := range families {
		if mf.GetName() != "voiceagent_engine_generator_tokens_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "direction" && label.GetValue() == "input" {
					inputTotal = metric.GetCounter().GetValue()
				}
			}
		}
	}
	if inputTotal != 150 {
		t.Fatalf("expected 150 input tokens, got %v", inputTotal)
	}
}

func TestTurnMetricsNilSafe(t *testing.T) {
	var m *TurnMetrics
	m.ObserveTurn("free", 0.1)
	m.ObserveShortCircuit("qa")
	m.ObserveFallback("tier2_slow_down")
	m.ObserveGenerator("error", 0.2, 0, 0)
}
