package calls

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/voice-agent-platform/internal/engine"
	"github.com/fieldline/voice-agent-platform/pkg/logging"
)

type stubService struct {
	starts int32
	turns  int32
	ends   int32
	err    error
}

func (s *stubService) StartCall(_ context.Context, req StartRequest) (*Response, error) {
	atomic.AddInt32(&s.starts, 1)
	if s.err != nil {
		return nil, s.err
	}
	return &Response{CallID: "call_new", Reply: "Thanks for calling!", Mode: engine.ModeFree}, nil
}

func (s *stubService) ProcessTurn(_ context.Context, req TurnRequest) (*Response, error) {
	atomic.AddInt32(&s.turns, 1)
	if s.err != nil {
		return nil, s.err
	}
	return &Response{CallID: req.CallID, Reply: "May I have your first and last name?", Mode: engine.ModeBooking}, nil
}

func (s *stubService) EndCall(_ context.Context, _ string) error {
	atomic.AddInt32(&s.ends, 1)
	return s.err
}

func newTestDispatcher(t *testing.T, svc Service) *Dispatcher {
	t.Helper()
	d := NewDispatcher(svc, NewMemoryQueue(8), logging.Default(), WithWorkerCount(1), WithReceiveWaitSeconds(1))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = d.Shutdown(ctx)
	})
	return d
}

func TestDispatcherRoundTripsThroughQueue(t *testing.T) {
	svc := &stubService{}
	d := newTestDispatcher(t, svc)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	resp, err := d.StartCall(ctx, StartRequest{CompanyID: "co_test"})
	require.NoError(t, err)
	assert.Equal(t, "call_new", resp.CallID)

	resp, err = d.ProcessTurn(ctx, TurnRequest{CallID: "call_new", Utterance: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "May I have your first and last name?", resp.Reply)

	require.NoError(t, d.EndCall(ctx, "call_new"))

	assert.Equal(t, int32(1), atomic.LoadInt32(&svc.starts))
	assert.Equal(t, int32(1), atomic.LoadInt32(&svc.turns))
	assert.Equal(t, int32(1), atomic.LoadInt32(&svc.ends))
}

func TestDispatcherPropagatesServiceError(t *testing.T) {
	svc := &stubService{err: errors.New("redis down")}
	d := newTestDispatcher(t, svc)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := d.ProcessTurn(ctx, TurnRequest{CallID: "call_err", Utterance: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

func TestDispatcherReplaysDuplicateIdempotencyKey(t *testing.T) {
	svc := &stubService{}
	jobs := NewJobStore(newFakeDynamo(), "turn_jobs", logging.Default())
	d := NewDispatcher(svc, NewMemoryQueue(8), logging.Default(), WithWorkerCount(1), WithReceiveWaitSeconds(1), WithJobRecorder(jobs))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = d.Shutdown(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	first, err := d.ProcessTurn(ctx, TurnRequest{CallID: "call_new", Utterance: "hi", IdempotencyKey: "retry_key_1"})
	require.NoError(t, err)

	// The provider retries with the same key. The recorded response comes
	// back and the service is not invoked again.
	second, err := d.ProcessTurn(ctx, TurnRequest{CallID: "call_new", Utterance: "hi", IdempotencyKey: "retry_key_1"})
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.Reply, second.Reply)
	assert.Equal(t, int32(1), atomic.LoadInt32(&svc.turns))
}

func TestDispatcherRejectsInFlightDuplicate(t *testing.T) {
	jobs := NewJobStore(newFakeDynamo(), "turn_jobs", logging.Default())
	pending := newJobRecord(queuePayload{ID: "retry_key_2", Kind: jobKindTurn, Turn: TurnRequest{CallID: "call_new"}})
	require.NoError(t, jobs.PutPending(context.Background(), pending))

	svc := &stubService{}
	d := NewDispatcher(svc, NewMemoryQueue(8), logging.Default(), WithWorkerCount(1), WithReceiveWaitSeconds(1), WithJobRecorder(jobs))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = d.Shutdown(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := d.ProcessTurn(ctx, TurnRequest{CallID: "call_new", Utterance: "hi", IdempotencyKey: "retry_key_2"})
	assert.ErrorIs(t, err, ErrJobInFlight)
	assert.Equal(t, int32(0), atomic.LoadInt32(&svc.turns))
}

func TestDispatcherShutdownFailsPendingCallers(t *testing.T) {
	// A queue nobody drains: send succeeds, no worker picks the job up.
	d := NewDispatcher(&stubService{}, NewMemoryQueue(8), logging.Default(), WithWorkerCount(1))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(shutdownCtx))

	ctx, cancelCall := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancelCall()
	_, err := d.StartCall(ctx, StartRequest{CompanyID: "co_test"})
	assert.Error(t, err)
}

func TestMemoryQueueSendReceive(t *testing.T) {
	q := NewMemoryQueue(2)
	ctx := context.Background()

	require.NoError(t, q.Send(ctx, "one"))
	require.NoError(t, q.Send(ctx, "two"))

	messages, err := q.Receive(ctx, 5, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "one", messages[0].Body)
	assert.Equal(t, "two", messages[1].Body)
}

func TestMemoryQueueReceiveTimesOut(t *testing.T) {
	q := NewMemoryQueue(1)

	start := time.Now()
	messages, err := q.Receive(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}
