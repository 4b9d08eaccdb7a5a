package calls

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/voice-agent-platform/internal/engine"
)

func newTestStateStore(t *testing.T) (*StateStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStateStore(client, time.Hour), mr
}

func TestStateStoreRoundTrip(t *testing.T) {
	store, _ := newTestStateStore(t)
	ctx := context.Background()

	state := engine.NewConversationState("call_42", "co_test")
	state.KnownSlots["name"] = "Dana Ruiz"
	state.Mode = engine.ModeBooking
	state.History = append(state.History, engine.HistoryEntry{Role: engine.RoleCaller, Text: "hello"})

	require.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx, "call_42")
	require.NoError(t, err)
	assert.Equal(t, state.CallID, loaded.CallID)
	assert.Equal(t, engine.ModeBooking, loaded.Mode)
	assert.Equal(t, "Dana Ruiz", loaded.KnownSlots["name"])
	assert.Len(t, loaded.History, 1)
}

func TestStateStoreLoadMissingCall(t *testing.T) {
	store, _ := newTestStateStore(t)

	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrCallNotFound)
}

func TestStateStoreDelete(t *testing.T) {
	store, _ := newTestStateStore(t)
	ctx := context.Background()

	state := engine.NewConversationState("call_gone", "co_test")
	require.NoError(t, store.Save(ctx, state))
	require.NoError(t, store.Delete(ctx, "call_gone"))

	_, err := store.Load(ctx, "call_gone")
	assert.ErrorIs(t, err, ErrCallNotFound)
}

func TestStateStoreAppliesTTL(t *testing.T) {
	store, mr := newTestStateStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, engine.NewConversationState("call_ttl", "co_test")))

	mr.FastForward(2 * time.Hour)
	_, err := store.Load(ctx, "call_ttl")
	assert.ErrorIs(t, err, ErrCallNotFound)
}
