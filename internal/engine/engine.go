package engine

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldline/voice-agent-platform/internal/booking"
	"github.com/fieldline/voice-agent-platform/internal/catalog"
	"github.com/fieldline/voice-agent-platform/internal/company"
	"github.com/fieldline/voice-agent-platform/internal/llm"
	"github.com/fieldline/voice-agent-platform/internal/observability/metrics"
	"github.com/fieldline/voice-agent-platform/pkg/logging"
)

const (
	defaultGeneratorTimeout = 1200 * time.Millisecond
	defaultMaxReplyTokens   = 120
	defaultTemperature      = 0.2
	defaultHistoryWindow    = 12
)

// Per-call flags used across turns.
const (
	flagPartialNameAsked = "partial_name_asked"
	flagHeldFirstName    = "held_first_name"
	flagCallerIDOffered  = "caller_id_offered"
	flagServiceClass     = "service_class"
	offerCallerIDLine    = "Is the number you're calling from the best one to reach you at?"
	askLastNameLine      = "Thanks! And your last name?"
)

var affirmativeRE = regexp.MustCompile(`(?i)\b(?:yes|yeah|yep|yea|sure|correct|right|that works|that's fine|thats fine|it is)\b`)

// Engine runs the per-turn orchestration. It holds no per-call state; every
// call's ConversationState travels through TurnRequest/TurnResult.
type Engine struct {
	client        llm.Client
	model         string
	logger        *logging.Logger
	metrics       *metrics.TurnMetrics
	sink          TraceSink
	asked         AskedPredicate
	genTimeout    time.Duration
	maxTokens     int32
	temperature   float32
	historyWindow int
}

type Option func(*Engine)

// WithLogger overrides the default logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics attaches turn metrics. A nil value is safe; all metric methods
// are nil tolerant.
func WithMetrics(m *metrics.TurnMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTraceSink attaches a sink for completed turn traces.
func WithTraceSink(s TraceSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithAskedPredicate replaces the heuristic that decides whether the
// acknowledgment already asks for the slot.
func WithAskedPredicate(p AskedPredicate) Option {
	return func(e *Engine) {
		if p != nil {
			e.asked = p
		}
	}
}

// WithGeneratorTimeout bounds each generator call.
func WithGeneratorTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.genTimeout = d
		}
	}
}

// WithMaxReplyTokens caps generator output length.
func WithMaxReplyTokens(n int32) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// WithTemperature sets the generation temperature.
func WithTemperature(t float32) Option {
	return func(e *Engine) { e.temperature = t }
}

// WithHistoryWindow bounds how many transcript entries the prompt carries.
func WithHistoryWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.historyWindow = n
		}
	}
}

// NewEngine builds a turn engine around a generator client.
func NewEngine(client llm.Client, model string, opts ...Option) *Engine {
	if client == nil {
		panic("engine: llm client is required")
	}
	e := &Engine{
		client:        client,
		model:         model,
		logger:        logging.Default(),
		asked:         DefaultAskedPredicate,
		genTimeout:    defaultGeneratorTimeout,
		maxTokens:     defaultMaxReplyTokens,
		temperature:   defaultTemperature,
		historyWindow: defaultHistoryWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessTurn runs one caller utterance through the pipeline and returns the
// spoken reply with the updated state. It never returns an error: every
// failure path ends in a usable spoken reply.
func (e *Engine) ProcessTurn(ctx context.Context, cfg *company.Config, req TurnRequest) TurnResult {
	started := time.Now()
	state := req.State
	if state.KnownSlots == nil {
		state.KnownSlots = make(map[string]string)
	}
	utterance := strings.TrimSpace(req.Utterance)

	trace := Trace{
		CallID:    state.CallID,
		CompanyID: state.CompanyID,
		TurnID:    uuid.NewString(),
		Utterance: utterance,
		StartedAt: started.UTC(),
	}
	log := e.logger.WithCall(state.CallID, state.CompanyID)

	state.appendHistory(RoleCaller, utterance)
	slots := cfg.BookingSlots()

	reply, decision := e.runPipeline(ctx, cfg, slots, &state, utterance, req.CallerID, &trace, log)

	state.appendHistory(RoleAgent, reply)
	trace.Reply = reply
	trace.Decision = decision
	trace.Elapsed = time.Since(started)
	e.metrics.ObserveTurn(decision, trace.Elapsed.Seconds())
	if e.sink != nil {
		e.sink.Publish(trace)
	}

	return TurnResult{Reply: reply, State: state, Trace: trace}
}

// runPipeline is the ordered decision ladder: rescue, deterministic decline,
// canned Q&A, pending caller-ID offer, configuration defect, then generation.
// It returns the reply and a short decision label for metrics.
func (e *Engine) runPipeline(ctx context.Context, cfg *company.Config, slots *booking.Slots, state *ConversationState, utterance, callerID string, trace *Trace, log *logging.Logger) (string, string) {
	if phrase := matchedEscalation(utterance, cfg.EscalationPhrases); phrase != "" {
		trace.add("rescue", phrase)
		e.metrics.ObserveShortCircuit("rescue")
		log.Warn("escalation phrase heard, entering rescue", "phrase", phrase)
		state.Mode = ModeRescue
		state.MissCount = 0
		state.PendingSlot = ""
		return defaultRescueReply, "rescue"
	}

	detection := catalog.Detect(utterance, &cfg.Catalog)
	if detection.Matched {
		trace.add("catalog", detection.ServiceKey)
	}
	if detection.Action == catalog.ActionDecline {
		e.metrics.ObserveShortCircuit("decline")
		log.Info("declining disabled service", "service", detection.ServiceKey, "confidence", detection.Confidence)
		state.MissCount = 0
		return declineReply(detection, &cfg.Catalog), "decline"
	}

	// Admin requests (transfer, payment link, directions) are answered with
	// their configured line and never reach the generator.
	if detection.Matched && detection.ServiceType == catalog.ServiceTypeAdmin {
		e.metrics.ObserveShortCircuit("admin")
		log.Info("answering admin request", "service", detection.ServiceKey)
		state.MissCount = 0
		var question string
		if spec := slots.Lookup(state.PendingSlot); spec != nil && state.KnownSlots[spec.SlotID] == "" {
			question = spec.Question
		}
		return bridgeAfterAnswer(detection.AdminResponse, question), "admin"
	}

	if answer, ok := matchQA(utterance, cfg.QA); ok {
		trace.add("qa", "")
		e.metrics.ObserveShortCircuit("qa")
		state.MissCount = 0
		var question string
		if spec := slots.Lookup(state.PendingSlot); spec != nil && state.KnownSlots[spec.SlotID] == "" {
			question = spec.Question
		}
		return bridgeAfterAnswer(answer, question), "qa"
	}

	// A pending caller-ID offer resolves deterministically on a yes.
	if number := state.flag(flagCallerIDOffered); number != "" && booking.IsPhoneSlot(state.PendingSlot) && affirmativeRE.MatchString(utterance) {
		trace.add("caller_id", "accepted")
		state.KnownSlots = slots.Merge(state.KnownSlots, map[string]string{state.PendingSlot: number})
		state.setFlag(flagCallerIDOffered, "")
		state.MissCount = 0
		if next := slots.NextMissing(state.KnownSlots); next != nil {
			state.PendingSlot = next.SlotID
			state.Mode = ModeBooking
			return "Perfect, I'll use that number. " + next.Question, "booking"
		}
		return e.finishBooking(slots, state), "confirmation"
	}

	if slots.Empty() {
		trace.add("config_error", "no booking slots configured")
		e.metrics.ObserveFallback(string(TierConfigError))
		log.Error("company has no booking slots configured", "company_id", cfg.CompanyID)
		return configErrorReply(cfg.Fallback), "config_error"
	}

	return e.generate(ctx, cfg, slots, state, utterance, callerID, detection, trace, log)
}

// generate runs the single generator call for the turn and assembles the
// reply around its decision. Any failure lands on the tiered fallback.
func (e *Engine) generate(ctx context.Context, cfg *company.Config, slots *booking.Slots, state *ConversationState, utterance, callerID string, detection catalog.Detection, trace *Trace, log *logging.Logger) (string, string) {
	hints := promptHints{
		ServiceArea:     cfg.ServiceArea,
		LastAgentLine:   state.LastAgentLine(),
		PartialFollowUp: state.flag(flagPartialNameAsked) == "pending",
	}
	if detection.Matched && detection.ServiceType == catalog.ServiceTypeSymptom {
		hints.TriageHint = detection.DisplayName
		if state.Mode == ModeFree {
			state.Mode = ModeTriage
		}
	} else if detection.Matched {
		hints.ServiceHint = detection.DisplayName
	}
	if detection.Matched && state.flag(flagServiceClass) == "" {
		state.setFlag(flagServiceClass, string(booking.ClassifyService(utterance)))
	}

	system, messages := buildPrompt(cfg, state, slots, utterance, hints, e.historyWindow)
	trace.add("generate", e.model)

	genCtx, cancel := context.WithTimeout(ctx, e.genTimeout)
	defer cancel()

	genStart := time.Now()
	resp, err := e.client.Complete(genCtx, llm.Request{
		Model:       e.model,
		System:      system,
		Messages:    messages,
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	})
	genElapsed := time.Since(genStart).Seconds()
	if err != nil {
		e.metrics.ObserveGenerator("error", genElapsed, 0, 0)
		log.Error("generator call failed", "error", err, "elapsed_s", genElapsed)
		return e.miss(state, cfg, trace), "fallback"
	}
	e.metrics.ObserveGenerator("ok", genElapsed, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	trace.GeneratorRaw = resp.Text

	decision := ParseDecision(resp.Text)
	decision.Validate(slots)
	decision.Ack = scrubForbidden(decision.Ack, cfg.ForbiddenPhrases)

	confirmBack := e.mergeValues(slots, state, decision.Values)

	reply, label := e.assemble(cfg, slots, state, decision, detection, callerID, confirmBack)
	if strings.TrimSpace(reply) == "" {
		log.Warn("generator produced unusable turn", "raw_len", len(resp.Text))
		return e.miss(state, cfg, trace), "fallback"
	}
	state.MissCount = 0
	return reply, label
}

// mergeValues folds advisory extracted values into known slots, with the
// partial-name follow-up: a bare first name is held back once while the agent
// asks for the last name, then accepted as given.
func (e *Engine) mergeValues(slots *booking.Slots, state *ConversationState, values map[string]string) string {
	if len(values) == 0 {
		return ""
	}
	merged := make(map[string]string, len(values))
	for slotID, value := range values {
		spec := slots.Lookup(slotID)
		if spec == nil {
			continue
		}
		if slotID == "name" && !spec.UseFirstNameOnly {
			if booking.IsPartialName(value) {
				if state.flag(flagPartialNameAsked) == "" {
					// Hold the first name while the agent asks for the
					// last name, so the follow-up can join the two.
					state.setFlag(flagPartialNameAsked, "pending")
					state.setFlag(flagHeldFirstName, value)
					continue
				}
				if held := state.flag(flagHeldFirstName); held != "" && !strings.EqualFold(held, value) {
					value = held + " " + value
				}
				state.setFlag(flagPartialNameAsked, "accepted_partial")
			}
			state.setFlag(flagHeldFirstName, "")
		}
		merged[slotID] = value
	}
	wasEmpty := make(map[string]bool, len(merged))
	for slotID := range merged {
		wasEmpty[slotID] = strings.TrimSpace(state.KnownSlots[slotID]) == ""
	}
	state.KnownSlots = slots.Merge(state.KnownSlots, merged)

	// Read back the first newly filled slot that asks for confirmation.
	for _, spec := range slots.All() {
		if wasEmpty[spec.SlotID] && state.KnownSlots[spec.SlotID] != "" {
			if text := confirmBackText(&spec, state.KnownSlots[spec.SlotID]); text != "" {
				return text
			}
		}
	}
	return ""
}

// assemble turns the validated decision into the spoken reply and recomputes
// the conversation mode.
func (e *Engine) assemble(cfg *company.Config, slots *booking.Slots, state *ConversationState, decision Decision, detection catalog.Detection, callerID, confirmBack string) (string, string) {
	if slots.Complete(state.KnownSlots) {
		state.PendingSlot = ""
		return joinSpoken(confirmBack, e.finishBooking(slots, state)), "confirmation"
	}

	// The generator proposes a slot; the engine enforces no-re-ask by always
	// landing on the first missing one.
	bookingEngaged := decision.Slot != slotNone ||
		len(state.KnownSlots) > 0 ||
		detection.Matched ||
		state.Mode == ModeBooking || state.Mode == ModeTriage

	if !bookingEngaged {
		state.Mode = ModeFree
		state.PendingSlot = ""
		return decision.Ack, "free"
	}

	// Held-back partial name: ask for the last name instead of moving on.
	if state.flag(flagPartialNameAsked) == "pending" && state.KnownSlots["name"] == "" {
		state.PendingSlot = "name"
		state.Mode = ModeBooking
		return joinSpoken(confirmBack, askLastNameLine), "booking"
	}

	next := slots.NextMissing(state.KnownSlots)
	if next == nil {
		state.PendingSlot = ""
		return joinSpoken(confirmBack, e.finishBooking(slots, state)), "confirmation"
	}

	if state.Mode != ModeTriage {
		state.Mode = ModeBooking
	}
	state.PendingSlot = next.SlotID

	// Offer the inbound number instead of making the caller dictate it.
	if next.OfferCallerID && callerID != "" && state.flag(flagCallerIDOffered) == "" {
		state.setFlag(flagCallerIDOffered, callerID)
		return joinSpoken(confirmBack, joinSpoken(decision.Ack, offerCallerIDLine)), "booking"
	}

	return joinSpoken(confirmBack, assembleReply(decision.Ack, next, e.asked)), "booking"
}

// finishBooking produces the deterministic confirmation read-back once every
// required slot is filled.
func (e *Engine) finishBooking(slots *booking.Slots, state *ConversationState) string {
	state.Mode = ModeConfirmation
	state.PendingSlot = ""

	var parts []string
	for _, spec := range slots.All() {
		value := strings.TrimSpace(state.KnownSlots[spec.SlotID])
		if value == "" {
			continue
		}
		if booking.IsPhoneSlot(spec.SlotID) {
			value = booking.SpeakablePhone(value)
		}
		parts = append(parts, value)
	}
	return "Let me make sure I have everything: " + strings.Join(parts, ", ") + ". Is that all correct?"
}

// miss records an unusable generator turn and returns the tiered fallback
// script.
func (e *Engine) miss(state *ConversationState, cfg *company.Config, trace *Trace) string {
	state.MissCount++
	reply, tier := fallbackReply(state.MissCount, cfg.Fallback)
	trace.add("fallback", string(tier))
	e.metrics.ObserveFallback(string(tier))
	if tier == TierHandoff {
		state.Mode = ModeRescue
	}
	return reply
}

func joinSpoken(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
