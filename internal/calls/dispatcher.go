package calls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldline/voice-agent-platform/pkg/logging"
)

// ErrDispatcherClosed indicates the dispatcher stopped accepting work.
var ErrDispatcherClosed = errors.New("calls: dispatcher closed")

// ErrJobInFlight indicates a retried idempotency key whose original job has
// not finished yet.
var ErrJobInFlight = errors.New("calls: job still in flight")

const (
	defaultWorkers          = 2
	defaultReceiveWait      = 2 // seconds
	defaultReceiveMax       = 5 // messages
	maxReceiveWaitSeconds   = 20
	maxReceiveBatchMessages = 10
)

type dispatcherConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	jobs             JobRecorder
}

// DispatcherOption configures the queue dispatcher.
type DispatcherOption func(*dispatcherConfig)

// WithWorkerCount overrides the number of queue polling goroutines.
func WithWorkerCount(workers int) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		if workers > 0 {
			cfg.workers = workers
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait for ReceiveMessage calls.
func WithReceiveWaitSeconds(seconds int) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxReceiveWaitSeconds {
			seconds = maxReceiveWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize overrides how many messages each poll may return.
func WithReceiveBatchSize(size int) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchMessages {
			size = maxReceiveBatchMessages
		}
		cfg.receiveBatchSize = size
	}
}

// WithJobRecorder persists per-job status to DynamoDB for audit and retry
// inspection.
func WithJobRecorder(jobs JobRecorder) DispatcherOption {
	return func(cfg *dispatcherConfig) { cfg.jobs = jobs }
}

// Dispatcher routes call work through a queue before invoking the downstream
// Service, so development runs against the memory queue and production against
// SQS without the HTTP layer noticing.
type Dispatcher struct {
	processor Service
	queue     queueClient
	jobs      JobRecorder
	logger    *logging.Logger

	cfg dispatcherConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	pending sync.Map // jobID -> chan dispatchResult
}

var _ Service = (*Dispatcher)(nil)

type dispatchResult struct {
	response *Response
	err      error
}

// NewDispatcher starts worker goroutines polling the queue.
func NewDispatcher(processor Service, queue queueClient, logger *logging.Logger, opts ...DispatcherOption) *Dispatcher {
	if processor == nil {
		panic("calls: processor cannot be nil")
	}
	if queue == nil {
		panic("calls: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := dispatcherConfig{
		workers:          defaultWorkers,
		receiveWaitSecs:  defaultReceiveWait,
		receiveBatchSize: defaultReceiveMax,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		processor: processor,
		queue:     queue,
		jobs:      cfg.jobs,
		logger:    logger,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
	}

	for i := 0; i < cfg.workers; i++ {
		d.wg.Add(1)
		go d.runWorker(i + 1)
	}
	return d
}

func (d *Dispatcher) StartCall(ctx context.Context, req StartRequest) (*Response, error) {
	return d.enqueue(ctx, req.IdempotencyKey, queuePayload{Kind: jobKindStart, Start: req})
}

func (d *Dispatcher) ProcessTurn(ctx context.Context, req TurnRequest) (*Response, error) {
	return d.enqueue(ctx, req.IdempotencyKey, queuePayload{Kind: jobKindTurn, Turn: req})
}

func (d *Dispatcher) EndCall(ctx context.Context, callID string) error {
	_, err := d.enqueue(ctx, "", queuePayload{Kind: jobKindEnd, EndCallID: callID})
	return err
}

// Shutdown stops workers and fails any callers still waiting.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	d.pending.Range(func(key, value any) bool {
		if ch, ok := value.(chan dispatchResult); ok {
			select {
			case ch <- dispatchResult{err: ErrDispatcherClosed}:
			default:
			}
		}
		d.pending.Delete(key)
		return true
	})
	return nil
}

func (d *Dispatcher) enqueue(ctx context.Context, idempotencyKey string, payload queuePayload) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	payload.ID = idempotencyKey
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("calls: failed to encode payload: %w", err)
	}

	if d.jobs != nil {
		if err := d.jobs.PutPending(ctx, newJobRecord(payload)); err != nil {
			if errors.Is(err, ErrJobExists) {
				return d.replayRecordedJob(ctx, payload.ID)
			}
			d.logger.Error("failed to record pending job", "error", err, "job_id", payload.ID)
		}
	}

	resultCh := make(chan dispatchResult, 1)
	d.pending.Store(payload.ID, resultCh)
	defer d.pending.Delete(payload.ID)

	if err := d.queue.Send(ctx, string(body)); err != nil {
		return nil, fmt.Errorf("calls: failed to enqueue job: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultCh:
		return res.response, res.err
	}
}

// replayRecordedJob resolves a retried idempotency key from the job record
// instead of enqueueing the work a second time.
func (d *Dispatcher) replayRecordedJob(ctx context.Context, jobID string) (*Response, error) {
	job, err := d.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("calls: failed to resolve duplicate job %s: %w", jobID, err)
	}
	switch job.Status {
	case JobStatusCompleted:
		return job.Response, nil
	case JobStatusFailed:
		return nil, fmt.Errorf("calls: job %s failed: %s", jobID, job.ErrorMessage)
	default:
		return nil, fmt.Errorf("calls: job %s: %w", jobID, ErrJobInFlight)
	}
}

func (d *Dispatcher) runWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Debug("call dispatcher worker started", "worker_id", workerID)

	backoff := time.Second
	for {
		select {
		case <-d.ctx.Done():
			d.logger.Debug("call dispatcher worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := d.queue.Receive(d.ctx, d.cfg.receiveBatchSize, d.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			d.logger.Error("failed to receive call jobs", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			d.handleQueueMessage(msg)
		}
	}
}

func (d *Dispatcher) handleQueueMessage(msg queueMessage) {
	var payload queuePayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		d.logger.Error("failed to decode call job", "error", err)
		d.deleteMessage(msg.ReceiptHandle)
		return
	}

	var (
		resp *Response
		err  error
	)
	switch payload.Kind {
	case jobKindStart:
		resp, err = d.processor.StartCall(d.ctx, payload.Start)
	case jobKindTurn:
		resp, err = d.processor.ProcessTurn(d.ctx, payload.Turn)
	case jobKindEnd:
		err = d.processor.EndCall(d.ctx, payload.EndCallID)
	default:
		err = fmt.Errorf("calls: unknown job kind %q", payload.Kind)
	}

	d.deleteMessage(msg.ReceiptHandle)
	d.recordOutcome(payload.ID, resp, err)
	d.deliverResult(payload.ID, resp, err)
}

func (d *Dispatcher) deleteMessage(receiptHandle string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.queue.Delete(ctx, receiptHandle); err != nil {
		d.logger.Error("failed to delete call job", "error", err)
	}
}

func (d *Dispatcher) recordOutcome(jobID string, resp *Response, jobErr error) {
	if d.jobs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var err error
	if jobErr != nil {
		err = d.jobs.MarkFailed(ctx, jobID, jobErr.Error())
	} else {
		err = d.jobs.MarkCompleted(ctx, jobID, resp)
	}
	if err != nil {
		d.logger.Error("failed to record job outcome", "error", err, "job_id", jobID)
	}
}

func (d *Dispatcher) deliverResult(jobID string, resp *Response, err error) {
	value, ok := d.pending.Load(jobID)
	if !ok {
		d.logger.Debug("no waiting caller for call job", "job_id", jobID)
		return
	}
	ch, ok := value.(chan dispatchResult)
	if !ok {
		d.logger.Error("call dispatcher pending map corrupted", "job_id", jobID)
		d.pending.Delete(jobID)
		return
	}
	select {
	case ch <- dispatchResult{response: resp, err: err}:
	default:
	}
}
