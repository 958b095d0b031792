// Package dispatch runs document translations in the background. Submit
// acknowledges a document immediately; a fixed pool of workers runs one
// orchestrator pass per document and reports each Outcome through a
// callback.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oukeidos/mdtrans/internal/apperrors"
	"github.com/oukeidos/mdtrans/internal/logger"
	"github.com/oukeidos/mdtrans/internal/pipeline"
)

var (
	ErrClosed    = errors.New("dispatcher is closed")
	ErrQueueFull = errors.New("dispatch queue is full")
)

const (
	DefaultWorkers   = 1
	DefaultQueueSize = 64
)

var (
	defaultQPS    = 2
	defaultRampUp = 2 * time.Second
)

// Runner translates one document. *pipeline.Orchestrator satisfies it.
type Runner interface {
	Translate(ctx context.Context, documentID string) (pipeline.Result, error)
}

// Ticket acknowledges a submitted document.
type Ticket struct {
	JobID      string
	DocumentID string
}

// Outcome is delivered once per ticket.
type Outcome struct {
	Ticket
	Result   pipeline.Result
	Err      error
	Started  time.Time
	Finished time.Time
}

// Options configures a Dispatcher. Zero fields take the defaults.
type Options struct {
	Workers   int
	QueueSize int
	// QPS bounds how many documents start per second. RampUp staggers
	// worker start. Negative values disable either.
	QPS       int
	RampUp    time.Duration
	OnOutcome func(Outcome)
}

// Dispatcher is a fire-and-forget worker pool.
type Dispatcher struct {
	runner    Runner
	onOutcome func(Outcome)
	jobs      chan Ticket
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	stopRate  func()

	mu     sync.Mutex
	closed bool
}

// New starts the workers. Canceling ctx aborts queued and running jobs;
// they are still reported, with the context error.
func New(ctx context.Context, runner Runner, opts Options) *Dispatcher {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	qps := opts.QPS
	if qps == 0 {
		qps = defaultQPS
	}
	ramp := opts.RampUp
	if ramp == 0 {
		ramp = defaultRampUp
	}

	ctx, cancel := context.WithCancel(ctx)
	d := &Dispatcher{
		runner:    runner,
		onOutcome: opts.OnOutcome,
		jobs:      make(chan Ticket, queueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
	rateCh, stopRate := newRateLimiter(qps)
	d.stopRate = stopRate

	for w := 0; w < workers; w++ {
		d.wg.Add(1)
		go d.work(w, workers, ramp, rateCh)
	}
	return d
}

// Submit queues a document and returns without waiting for it to run.
func (d *Dispatcher) Submit(documentID string) (Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Ticket{}, ErrClosed
	}
	t := Ticket{JobID: newJobID(), DocumentID: documentID}
	select {
	case d.jobs <- t:
	default:
		return Ticket{}, ErrQueueFull
	}
	logger.Info("Translation accepted", "job_id", t.JobID, "document", documentID)
	return t, nil
}

// Close stops accepting documents and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
	d.stopRate()
	d.cancel()
}

// Shutdown cancels running jobs, reports the queued ones as canceled and
// waits for the workers to exit.
func (d *Dispatcher) Shutdown() {
	d.cancel()
	d.Close()
}

func (d *Dispatcher) work(worker, workers int, ramp time.Duration, rateCh <-chan time.Time) {
	defer d.wg.Done()
	if delay := rampDelay(worker, workers, ramp); delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-d.ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
	for t := range d.jobs {
		if d.ctx.Err() == nil && rateCh != nil {
			select {
			case <-d.ctx.Done():
			case <-rateCh:
			}
		}
		d.run(t)
	}
}

func (d *Dispatcher) run(t Ticket) {
	out := Outcome{Ticket: t, Started: time.Now()}
	if err := d.ctx.Err(); err != nil {
		out.Err = err
	} else {
		ctx, cancel := context.WithCancel(d.ctx)
		out.Result, out.Err = d.runner.Translate(ctx, t.DocumentID)
		cancel()
	}
	out.Finished = time.Now()

	log := logger.With("job_id", t.JobID, "document", t.DocumentID, "run_id", out.Result.RunID)
	if out.Err != nil {
		log.Error("Translation job failed", "error", apperrors.PublicMessage(out.Err))
	} else {
		log.Info("Translation job finished", "status", out.Result.Status, "elapsed", out.Finished.Sub(out.Started).Round(time.Millisecond).String())
	}
	if d.onOutcome != nil {
		d.onOutcome(out)
	}
}

func newJobID() string {
	if u, err := uuid.NewV7(); err == nil {
		return u.String()
	}
	return uuid.NewString()
}

func newRateLimiter(qps int) (<-chan time.Time, func()) {
	if qps <= 0 {
		return nil, func() {}
	}
	interval := time.Second / time.Duration(qps)
	ticker := time.NewTicker(interval)
	return ticker.C, ticker.Stop
}

func rampDelay(worker, concurrency int, ramp time.Duration) time.Duration {
	if ramp <= 0 || concurrency <= 1 {
		return 0
	}
	return time.Duration(int64(ramp) * int64(worker) / int64(concurrency-1))
}
