// Package calls exposes the call lifecycle over HTTP and a work queue: start
// a call, run turns through the engine, and close the call out into the
// transcript and notification paths. Call state lives in Redis for the
// duration of the call plus a grace window.
package calls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/fieldline/voice-agent-platform/internal/engine"
)

const defaultStateTTL = 4 * time.Hour

// ErrCallNotFound indicates no live state exists for the call ID.
var ErrCallNotFound = errors.New("calls: call not found")

// StateStore persists in-flight conversation state between turns.
type StateStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	if client == nil {
		panic("calls: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &StateStore{
		redis:  client,
		tracer: otel.Tracer("voiceagent.internal.calls.state"),
		ttl:    ttl,
	}
}

func (s *StateStore) Save(ctx context.Context, state engine.ConversationState) error {
	ctx, span := s.tracer.Start(ctx, "calls.save_state")
	defer span.End()

	data, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("calls: failed to marshal state: %w", err)
	}
	if err := s.redis.Set(ctx, stateKey(state.CallID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("calls: failed to persist state: %w", err)
	}
	return nil
}

func (s *StateStore) Load(ctx context.Context, callID string) (engine.ConversationState, error) {
	ctx, span := s.tracer.Start(ctx, "calls.load_state")
	defer span.End()

	data, err := s.redis.Get(ctx, stateKey(callID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return engine.ConversationState{}, ErrCallNotFound
		}
		span.RecordError(err)
		return engine.ConversationState{}, fmt.Errorf("calls: failed to load state: %w", err)
	}

	var state engine.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		span.RecordError(err)
		return engine.ConversationState{}, fmt.Errorf("calls: failed to decode state: %w", err)
	}
	return state, nil
}

func (s *StateStore) Delete(ctx context.Context, callID string) error {
	ctx, span := s.tracer.Start(ctx, "calls.delete_state")
	defer span.End()

	if err := s.redis.Del(ctx, stateKey(callID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("calls: failed to delete state: %w", err)
	}
	return nil
}

func stateKey(callID string) string {
	return fmt.Sprintf("call:state:%s", callID)
}
