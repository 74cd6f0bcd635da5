package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/dgallion1/docsect/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, job *Job) JobSnapshot {
	t.Helper()
	var snap JobSnapshot
	require.Eventually(t, func() bool {
		snap = job.Snapshot()
		return snap.Status.Done()
	}, 5*time.Second, 10*time.Millisecond)
	return snap
}

func TestOrchestrator_RunsJob(t *testing.T) {
	o := NewOrchestrator(newTestAnalyzer(cache.NewMemoryStore()), 2, 4, time.Hour, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob(tripInput("guide.md", "broken.pdf"), []Source{
		{Filename: "guide.md", Data: []byte(guideMD)},
		{Filename: "broken.pdf", Data: []byte("garbage")},
	})
	require.NoError(t, o.Submit(job))
	assert.Same(t, job, o.GetJob(job.ID))

	snap := waitDone(t, job)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 2, snap.Progress.Documents)
	assert.Equal(t, 1, snap.Progress.Parsed)
	assert.NotZero(t, snap.Progress.Selected)
	assert.Equal(t, []string{"1 of 2 documents could not be read"}, snap.Progress.Errors)

	out, status, _ := job.Result()
	assert.Equal(t, StatusCompleted, status)
	require.NotNil(t, out)
	assert.NotEmpty(t, out.ExtractedSections)
}

func TestOrchestrator_NoResults(t *testing.T) {
	o := NewOrchestrator(newTestAnalyzer(cache.NopStore{}), 1, 1, time.Hour, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob(tripInput("broken.pdf"), []Source{{Filename: "broken.pdf", Data: []byte("garbage")}})
	require.NoError(t, o.Submit(job))

	snap := waitDone(t, job)
	assert.Equal(t, StatusNoResults, snap.Status)
	assert.Equal(t, "no headings found", snap.Message)
}

func TestOrchestrator_SubmitFailsWhenFull(t *testing.T) {
	// Workers are not started, so the queue never drains.
	o := NewOrchestrator(newTestAnalyzer(cache.NopStore{}), 1, 1, time.Hour, discardLogger())

	first := NewJob(tripInput("a.md"), nil)
	second := NewJob(tripInput("b.md"), nil)
	require.NoError(t, o.Submit(first))
	assert.Equal(t, 1, o.QueueDepth())

	err := o.Submit(second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue is full")
	assert.Equal(t, StatusFailed, second.Snapshot().Status)
}
