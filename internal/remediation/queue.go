package remediation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abhisek/studycast/internal/metrics"
)

// Processor handles a batch of records.
type Processor interface {
	Process(ctx context.Context, records []Record) Summary
}

// Queue runs remediation batches on background workers. Submitters get no
// result; completion is observable only through the artifact directory.
type Queue struct {
	proc    Processor
	ctx     context.Context
	logger  *slog.Logger
	pending chan []Record

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewQueue starts workers goroutines draining a buffer of size batches.
// Jobs run under ctx.
func NewQueue(ctx context.Context, proc Processor, size, workers int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 32
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		proc:    proc,
		ctx:     ctx,
		logger:  logger,
		pending: make(chan []Record, size),
	}
	q.wg.Add(workers)
	for range workers {
		go q.processLoop()
	}
	return q
}

// Submit enqueues a batch without blocking. It returns false when the
// queue is full or closed and the batch was dropped.
func (q *Queue) Submit(records []Record) bool {
	if len(records) == 0 {
		return true
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}

	select {
	case q.pending <- append([]Record(nil), records...):
		metrics.Get().RemediationQueued.Inc()
		return true
	default:
		q.logger.Warn("remediation queue full, dropping batch", "records", len(records))
		return false
	}
}

func (q *Queue) processLoop() {
	defer q.wg.Done()
	for batch := range q.pending {
		metrics.Get().RemediationQueued.Dec()
		q.run(batch)
	}
}

// run processes one batch. A panic is logged and the worker keeps going,
// since no caller is waiting for the result.
func (q *Queue) run(batch []Record) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("remediation worker panic", "err", fmt.Sprint(r), "records", len(batch))
		}
	}()
	sum := q.proc.Process(q.ctx, batch)
	q.logger.Info("remediation batch done",
		"created", sum.Created, "skipped", sum.Skipped, "failed", sum.Failed)
}

// Close stops accepting batches and waits for queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.pending)
	q.mu.Unlock()

	q.wg.Wait()
}
