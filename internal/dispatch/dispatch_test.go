package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oukeidos/mdtrans/internal/pipeline"
)

type blockingRunner struct {
	started chan string
	release chan struct{}
}

func (r *blockingRunner) Translate(ctx context.Context, id string) (pipeline.Result, error) {
	r.started <- id
	select {
	case <-r.release:
		return pipeline.Result{RunID: "run-" + id, Status: pipeline.TranslationStatusSuccess}, nil
	case <-ctx.Done():
		return pipeline.Result{}, ctx.Err()
	}
}

type outcomes struct {
	mu  sync.Mutex
	got []Outcome
}

func (o *outcomes) add(out Outcome) {
	o.mu.Lock()
	o.got = append(o.got, out)
	o.mu.Unlock()
}

func (o *outcomes) list() []Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Outcome(nil), o.got...)
}

func fastOptions(workers, queue int, rec *outcomes) Options {
	return Options{Workers: workers, QueueSize: queue, QPS: -1, RampUp: -1, OnOutcome: rec.add}
}

func TestSubmit_AcknowledgesBeforeCompletion(t *testing.T) {
	runner := &blockingRunner{started: make(chan string, 1), release: make(chan struct{})}
	rec := &outcomes{}
	d := New(context.Background(), runner, fastOptions(1, 4, rec))

	ticket, err := d.Submit("42")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if ticket.JobID == "" || ticket.DocumentID != "42" {
		t.Fatalf("Ticket = %+v", ticket)
	}
	if got := <-runner.started; got != "42" {
		t.Fatalf("started %q", got)
	}
	if n := len(rec.list()); n != 0 {
		t.Fatalf("outcome delivered before completion: %d", n)
	}

	close(runner.release)
	d.Close()

	got := rec.list()
	if len(got) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(got))
	}
	if got[0].JobID != ticket.JobID || got[0].Err != nil || got[0].Result.RunID != "run-42" {
		t.Errorf("Outcome = %+v", got[0])
	}
	if got[0].Finished.Before(got[0].Started) {
		t.Errorf("Finished %v before Started %v", got[0].Finished, got[0].Started)
	}
}

type funcRunner func(ctx context.Context, id string) (pipeline.Result, error)

func (f funcRunner) Translate(ctx context.Context, id string) (pipeline.Result, error) {
	return f(ctx, id)
}

func TestDispatcher_RunsEveryDocumentOnce(t *testing.T) {
	rec := &outcomes{}
	runner := funcRunner(func(ctx context.Context, id string) (pipeline.Result, error) {
		if id == "bad" {
			return pipeline.Result{}, errors.New("fetch failed")
		}
		return pipeline.Result{RunID: id, Status: pipeline.TranslationStatusSuccess}, nil
	})
	d := New(context.Background(), runner, fastOptions(3, 16, rec))

	ids := []string{"a", "b", "c", "bad", "d", "e"}
	jobIDs := make(map[string]bool)
	for _, id := range ids {
		ticket, err := d.Submit(id)
		if err != nil {
			t.Fatalf("Submit(%q) failed: %v", id, err)
		}
		if jobIDs[ticket.JobID] {
			t.Fatalf("duplicate job id %q", ticket.JobID)
		}
		jobIDs[ticket.JobID] = true
	}
	d.Close()

	got := rec.list()
	if len(got) != len(ids) {
		t.Fatalf("expected %d outcomes, got %d", len(ids), len(got))
	}
	seen := make(map[string]int)
	for _, out := range got {
		seen[out.DocumentID]++
		if (out.DocumentID == "bad") != (out.Err != nil) {
			t.Errorf("Outcome(%s).Err = %v", out.DocumentID, out.Err)
		}
	}
	for _, id := range ids {
		if seen[id] != 1 {
			t.Errorf("document %q reported %d times", id, seen[id])
		}
	}
}

func TestSubmit_QueueFull(t *testing.T) {
	runner := &blockingRunner{started: make(chan string, 1), release: make(chan struct{})}
	d := New(context.Background(), runner, fastOptions(1, 1, &outcomes{}))
	defer func() {
		close(runner.release)
		d.Close()
	}()

	if _, err := d.Submit("1"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	<-runner.started
	if _, err := d.Submit("2"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := d.Submit("3"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestSubmit_AfterClose(t *testing.T) {
	d := New(context.Background(), funcRunner(func(context.Context, string) (pipeline.Result, error) {
		return pipeline.Result{}, nil
	}), fastOptions(1, 1, &outcomes{}))
	d.Close()
	if _, err := d.Submit("x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	d.Close()
}

func TestShutdown_CancelsQueuedAndRunning(t *testing.T) {
	runner := &blockingRunner{started: make(chan string, 1), release: make(chan struct{})}
	rec := &outcomes{}
	d := New(context.Background(), runner, fastOptions(1, 4, rec))

	for _, id := range []string{"1", "2", "3"} {
		if _, err := d.Submit(id); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	<-runner.started
	d.Shutdown()

	got := rec.list()
	if len(got) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(got))
	}
	for _, out := range got {
		if !errors.Is(out.Err, context.Canceled) {
			t.Errorf("Outcome(%s).Err = %v, want context.Canceled", out.DocumentID, out.Err)
		}
	}
}

func TestRampDelay(t *testing.T) {
	tests := []struct {
		worker, concurrency int
		ramp                time.Duration
		want                time.Duration
	}{
		{worker: 0, concurrency: 4, ramp: 3 * time.Second, want: 0},
		{worker: 3, concurrency: 4, ramp: 3 * time.Second, want: 3 * time.Second},
		{worker: 1, concurrency: 4, ramp: 3 * time.Second, want: time.Second},
		{worker: 1, concurrency: 1, ramp: 3 * time.Second, want: 0},
		{worker: 1, concurrency: 4, ramp: -1, want: 0},
	}
	for _, tt := range tests {
		if got := rampDelay(tt.worker, tt.concurrency, tt.ramp); got != tt.want {
			t.Errorf("rampDelay(%d, %d, %v) = %v, want %v", tt.worker, tt.concurrency, tt.ramp, got, tt.want)
		}
	}
}

func TestNewRateLimiter_Disabled(t *testing.T) {
	ch, stop := newRateLimiter(-1)
	defer stop()
	if ch != nil {
		t.Fatal("expected nil channel when disabled")
	}
}
