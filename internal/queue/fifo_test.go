package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mstrack/mstrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func testJob(id string) *models.AutomationJob {
	return &models.AutomationJob{
		ID:          id,
		RequesterID: "user-1",
		Destination: "dest",
		Status:      models.JobQueued,
		CreatedAt:   time.Now(),
	}
}

func TestFIFOQueue_RunsJobsInSubmissionOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string

	gate := make(chan struct{})
	q := NewFIFOQueue(func(_ context.Context, job *models.AutomationJob) error {
		<-gate
		mu.Lock()
		order = append(order, job.ID)
		mu.Unlock()
		return nil
	}, arbor.NewLogger())
	q.Start()
	defer q.Stop()

	subs := make([]chan error, 0, 3)
	for _, id := range []string{"a", "b", "c"} {
		sub, err := q.Submit(testJob(id))
		require.NoError(t, err)
		done := make(chan error, 1)
		go func(s <-chan error) { done <- <-s }(sub.Done)
		subs = append(subs, done)
	}
	close(gate)

	for _, done := range subs {
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("job did not complete")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestFIFOQueue_PositionAccounting(t *testing.T) {
	block := make(chan struct{})
	q := NewFIFOQueue(func(context.Context, *models.AutomationJob) error {
		<-block
		return nil
	}, arbor.NewLogger())
	q.Start()

	first, err := q.Submit(testJob("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Position)

	second, err := q.Submit(testJob("b"))
	require.NoError(t, err)
	assert.Equal(t, 2, second.Position)

	close(block)
	<-first.Done
	<-second.Done

	// after both complete, the next submission is back at position 1
	third, err := q.Submit(testJob("c"))
	require.NoError(t, err)
	assert.Equal(t, 1, third.Position)
	<-third.Done
	q.Stop()
}

func TestFIFOQueue_FailedJobStillCompletes(t *testing.T) {
	boom := errors.New("portal unreachable")
	q := NewFIFOQueue(func(context.Context, *models.AutomationJob) error {
		return boom
	}, arbor.NewLogger())
	q.Start()
	defer q.Stop()

	sub, err := q.Submit(testJob("a"))
	require.NoError(t, err)

	select {
	case err := <-sub.Done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not complete")
	}

	stats := q.Stats()
	assert.Equal(t, int64(1), stats.Enqueued)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int32(0), stats.InFlight)
}

func TestFIFOQueue_InFlightDuringRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	q := NewFIFOQueue(func(context.Context, *models.AutomationJob) error {
		close(started)
		<-release
		return nil
	}, arbor.NewLogger())
	q.Start()
	defer q.Stop()

	sub, err := q.Submit(testJob("a"))
	require.NoError(t, err)

	<-started
	assert.Equal(t, int32(1), q.Stats().InFlight)

	close(release)
	<-sub.Done
	assert.Equal(t, int32(0), q.Stats().InFlight)
}

func TestFIFOQueue_SubmitAfterStopFails(t *testing.T) {
	q := NewFIFOQueue(func(context.Context, *models.AutomationJob) error {
		return nil
	}, arbor.NewLogger())
	q.Start()
	q.Stop()

	_, err := q.Submit(testJob("a"))
	require.Error(t, err)
}
