package engine

import "time"

// Trace is the append-only diagnostic record of one turn. It is informational
// output for logging and the live ops feed; the engine never reads it back.
type Trace struct {
	CallID    string       `json:"call_id"`
	CompanyID string       `json:"company_id"`
	TurnID    string       `json:"turn_id"`
	Utterance string       `json:"utterance"`
	Events    []TraceEvent `json:"events"`
	// GeneratorRaw is the unmodified generator output, empty on short-circuit
	// turns.
	GeneratorRaw string        `json:"generator_raw,omitempty"`
	Decision     string        `json:"decision"`
	Reply        string        `json:"reply"`
	StartedAt    time.Time     `json:"started_at"`
	Elapsed      time.Duration `json:"elapsed"`
}

// TraceEvent marks one stage of the turn pipeline.
type TraceEvent struct {
	Stage  string    `json:"stage"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

func (t *Trace) add(stage, detail string) {
	t.Events = append(t.Events, TraceEvent{Stage: stage, Detail: detail, At: time.Now().UTC()})
}

// TraceSink receives completed turn traces. Publish must not block the turn;
// implementations drop rather than wait.
type TraceSink interface {
	Publish(trace Trace)
}
