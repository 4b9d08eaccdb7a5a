package calls

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fieldline/voice-agent-platform/internal/company"
	"github.com/fieldline/voice-agent-platform/internal/engine"
	"github.com/fieldline/voice-agent-platform/pkg/logging"
)

// StartRequest opens a new call for a company.
type StartRequest struct {
	CompanyID string `json:"company_id"`
	// CallID comes from the telephony provider when available; generated
	// otherwise.
	CallID   string `json:"call_id,omitempty"`
	CallerID string `json:"caller_id,omitempty"`

	// IdempotencyKey lets the telephony provider retry safely. A replayed
	// request with the same key returns the recorded response instead of
	// running the job twice.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// TurnRequest runs one caller utterance through an open call.
type TurnRequest struct {
	CallID         string `json:"call_id"`
	Utterance      string `json:"utterance"`
	CallerID       string `json:"caller_id,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Response is the spoken reply for a start or turn.
type Response struct {
	CallID string      `json:"call_id"`
	Reply  string      `json:"reply"`
	Mode   engine.Mode `json:"mode"`
	// Done signals the telephony layer that the call has reached a terminal
	// phase (confirmation read-back or rescue handoff).
	Done bool `json:"done"`
}

// Service is the call lifecycle: the HTTP layer and the queue dispatcher both
// speak this interface.
type Service interface {
	StartCall(ctx context.Context, req StartRequest) (*Response, error)
	ProcessTurn(ctx context.Context, req TurnRequest) (*Response, error)
	EndCall(ctx context.Context, callID string) error
}

// ConfigSource resolves a company's configuration.
type ConfigSource interface {
	Get(ctx context.Context, companyID string) (*company.Config, error)
}

// TranscriptRecorder receives the final transcript when a call closes.
type TranscriptRecorder interface {
	Record(ctx context.Context, state engine.ConversationState) error
}

// Notifier delivers the booking or handoff summary once a call closes.
type Notifier interface {
	CallClosed(ctx context.Context, cfg *company.Config, state engine.ConversationState) error
}

type service struct {
	engine      *engine.Engine
	companies   ConfigSource
	states      *StateStore
	transcripts TranscriptRecorder
	notifier    Notifier
	logger      *logging.Logger
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*service)

// WithTranscriptRecorder wires transcript persistence at call close.
func WithTranscriptRecorder(r TranscriptRecorder) ServiceOption {
	return func(s *service) { s.transcripts = r }
}

// WithNotifier wires the close-of-call notification path.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *service) { s.notifier = n }
}

// NewService wires the call lifecycle around the turn engine.
func NewService(eng *engine.Engine, companies ConfigSource, states *StateStore, logger *logging.Logger, opts ...ServiceOption) Service {
	if eng == nil {
		panic("calls: engine cannot be nil")
	}
	if companies == nil {
		panic("calls: company source cannot be nil")
	}
	if states == nil {
		panic("calls: state store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &service{
		engine:    eng,
		companies: companies,
		states:    states,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) StartCall(ctx context.Context, req StartRequest) (*Response, error) {
	if strings.TrimSpace(req.CompanyID) == "" {
		return nil, errors.New("calls: company_id is required")
	}
	cfg, err := s.companies.Get(ctx, req.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("calls: failed to resolve company %s: %w", req.CompanyID, err)
	}

	callID := strings.TrimSpace(req.CallID)
	if callID == "" {
		callID = uuid.NewString()
	}

	state := engine.NewConversationState(callID, req.CompanyID)
	greeting := strings.TrimSpace(cfg.Greeting)
	if greeting == "" {
		greeting = fmt.Sprintf("Thanks for calling %s! How can I help you today?", cfg.Name)
	}
	state.History = append(state.History, engine.HistoryEntry{Role: engine.RoleAgent, Text: greeting})

	if err := s.states.Save(ctx, state); err != nil {
		return nil, err
	}

	s.logger.WithCall(callID, req.CompanyID).Info("call started", "caller_id", req.CallerID)
	return &Response{CallID: callID, Reply: greeting, Mode: state.Mode}, nil
}

func (s *service) ProcessTurn(ctx context.Context, req TurnRequest) (*Response, error) {
	if strings.TrimSpace(req.CallID) == "" {
		return nil, errors.New("calls: call_id is required")
	}
	state, err := s.states.Load(ctx, req.CallID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.companies.Get(ctx, state.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("calls: failed to resolve company %s: %w", state.CompanyID, err)
	}

	result := s.engine.ProcessTurn(ctx, cfg, engine.TurnRequest{
		State:     state,
		Utterance: req.Utterance,
		CallerID:  req.CallerID,
	})

	if err := s.states.Save(ctx, result.State); err != nil {
		return nil, err
	}

	done := result.State.Mode == engine.ModeConfirmation || result.State.Mode == engine.ModeRescue
	return &Response{CallID: req.CallID, Reply: result.Reply, Mode: result.State.Mode, Done: done}, nil
}

// EndCall flushes the transcript and notification paths and drops the live
// state. Transcript failures are logged but do not block the hangup.
func (s *service) EndCall(ctx context.Context, callID string) error {
	state, err := s.states.Load(ctx, callID)
	if err != nil {
		return err
	}
	log := s.logger.WithCall(callID, state.CompanyID)

	if s.transcripts != nil {
		if err := s.transcripts.Record(ctx, state); err != nil {
			log.Error("failed to record transcript", "error", err)
		}
	}
	if s.notifier != nil {
		cfg, cfgErr := s.companies.Get(ctx, state.CompanyID)
		if cfgErr != nil {
			log.Error("failed to resolve company for notification", "error", cfgErr)
		} else if err := s.notifier.CallClosed(ctx, cfg, state); err != nil {
			log.Error("failed to send call notification", "error", err)
		}
	}

	if err := s.states.Delete(ctx, callID); err != nil {
		return err
	}
	log.Info("call closed", "turns", len(state.History), "mode", state.Mode)
	return nil
}
