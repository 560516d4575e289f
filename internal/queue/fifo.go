package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mstrack/mstrack/internal/interfaces"
	"github.com/mstrack/mstrack/internal/models"
	"github.com/ternarybob/arbor"
)

// defaultCapacity bounds how many jobs may wait. The queue is strictly
// serialized so a deep backlog means something upstream is wrong.
const defaultCapacity = 64

// JobRunner executes one job to completion. Wired to the automation
// service by the app.
type JobRunner func(ctx context.Context, job *models.AutomationJob) error

type submission struct {
	job  *models.AutomationJob
	done chan error
}

// FIFOQueue runs automation jobs on exactly one worker goroutine in strict
// submission order. Concurrency is fixed at 1: no two jobs' browser
// interactions ever overlap in time. Jobs cannot be cancelled; a failed
// job still counts as completed.
type FIFOQueue struct {
	runner JobRunner
	jobs   chan *submission
	logger arbor.ILogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool

	enqueued  atomic.Int64
	completed atomic.Int64
	inFlight  atomic.Int32
}

// NewFIFOQueue creates the queue. Call Start before submitting.
func NewFIFOQueue(runner JobRunner, logger arbor.ILogger) *FIFOQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &FIFOQueue{
		runner: runner,
		jobs:   make(chan *submission, defaultCapacity),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the single worker goroutine.
func (q *FIFOQueue) Start() {
	q.wg.Add(1)
	go q.worker()
	q.logger.Info().Msg("Job queue started")
}

// Stop stops accepting submissions and waits for the worker to drain the
// in-flight job. Queued-but-unstarted jobs resolve with an error.
func (q *FIFOQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.jobs)
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
	q.logger.Info().Msg("Job queue stopped")
}

// Submit enqueues a job and returns its submission handle. Position is
// informational: how many jobs (including this one) stand between the
// worker and this job at submission time.
func (q *FIFOQueue) Submit(job *models.AutomationJob) (*interfaces.JobSubmission, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return nil, fmt.Errorf("queue is stopped")
	}

	sub := &submission{job: job, done: make(chan error, 1)}
	select {
	case q.jobs <- sub:
	default:
		return nil, fmt.Errorf("queue is full")
	}

	enqueued := q.enqueued.Add(1)
	position := int(enqueued - q.completed.Load())

	q.logger.Info().
		Str("job_id", job.ID).
		Str("requester_id", job.RequesterID).
		Int("position", position).
		Msg("Job enqueued")

	return &interfaces.JobSubmission{
		Job:      job,
		Position: position,
		Done:     sub.done,
	}, nil
}

// Stats returns a snapshot of queue accounting.
func (q *FIFOQueue) Stats() interfaces.QueueStats {
	return interfaces.QueueStats{
		Enqueued:  q.enqueued.Load(),
		Completed: q.completed.Load(),
		InFlight:  q.inFlight.Load(),
	}
}

func (q *FIFOQueue) worker() {
	defer q.wg.Done()

	for sub := range q.jobs {
		select {
		case <-q.ctx.Done():
			sub.done <- q.ctx.Err()
			close(sub.done)
			q.completed.Add(1)
			continue
		default:
		}
		q.run(sub)
	}
}

// run executes one job. The in-flight gauge is decremented and the job
// counted completed in a deferred cleanup regardless of outcome.
func (q *FIFOQueue) run(sub *submission) {
	q.inFlight.Add(1)
	defer func() {
		q.inFlight.Add(-1)
		q.completed.Add(1)
	}()

	err := q.runner(q.ctx, sub.job)
	if err != nil {
		q.logger.Warn().
			Str("job_id", sub.job.ID).
			Err(err).
			Msg("Job failed")
	} else {
		q.logger.Info().
			Str("job_id", sub.job.ID).
			Msg("Job completed")
	}

	sub.done <- err
	close(sub.done)
}
