package pipeline

import (
	"testing"
	"time"

	"github.com/dgallion1/docsect/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInput() report.Input {
	return report.Input{
		Documents:   []report.InputDocument{{Filename: "a.md"}, {Filename: "b.md"}},
		Persona:     report.Persona{Role: "Travel Planner"},
		JobToBeDone: report.JobToBeDone{Task: "Plan a trip"},
	}
}

func TestNewJob(t *testing.T) {
	sources := []Source{{Filename: "a.md", Data: []byte("# A")}, {Filename: "b.md", Data: []byte("# B")}}
	job := NewJob(testInput(), sources)

	require.NotEmpty(t, job.ID)
	assert.Equal(t, StatusQueued, job.Status)
	assert.Equal(t, 2, job.Progress.Documents)

	in, got := job.Request()
	assert.Equal(t, "Travel Planner", in.Persona.Role)
	require.Len(t, got, 2)
	assert.Equal(t, "b.md", got[1].Filename)
}

func TestNewJob_UniqueIDs(t *testing.T) {
	assert.NotEqual(t, NewJob(testInput(), nil).ID, NewJob(testInput(), nil).ID)
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{ID: "test-1", Status: StatusQueued, Phase: "queued", CreatedAt: time.Now(), UpdatedAt: time.Now()}

	for _, status := range []JobStatus{StatusParsing, StatusRanking, StatusExtracting} {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(status, string(status))

		assert.Equal(t, status, job.Status)
		assert.False(t, job.Status.Done(), "%s should not be terminal", status)
		assert.True(t, job.UpdatedAt.After(before), "UpdatedAt should advance after %s", status)
	}
}

func TestJob_Complete(t *testing.T) {
	job := NewJob(testInput(), []Source{{Filename: "a.md", Data: []byte("x")}})
	out := report.Build(testInput(), nil, time.Now())
	job.Complete(out)

	got, status, msg := job.Result()
	assert.Equal(t, StatusCompleted, status)
	assert.Same(t, out, got)
	assert.Empty(t, msg)

	_, sources := job.Request()
	assert.Nil(t, sources, "document bytes are released")
}

func TestJob_FinishNoResults(t *testing.T) {
	job := NewJob(testInput(), nil)
	job.Finish(StatusNoResults, ErrNoHeadings.Error())

	out, status, msg := job.Result()
	assert.Nil(t, out)
	assert.True(t, status.Done())
	assert.Equal(t, "no headings found", msg)
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("b.pdf: unreadable")
	job.AddError("c.pdf: unreadable")

	assert.Equal(t, []string{"b.pdf: unreadable", "c.pdf: unreadable"}, job.Snapshot().Progress.Errors)
}

func TestJob_SetStats(t *testing.T) {
	job := &Job{ID: "stats-test", UpdatedAt: time.Now()}
	job.SetStats(RunStats{Documents: 3, Parsed: 2, Candidates: 14, Selected: 5})

	p := job.Snapshot().Progress
	assert.Equal(t, 2, p.Parsed)
	assert.Equal(t, 14, p.Candidates)
	assert.Equal(t, 5, p.Selected)
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	errs := job.Snapshot().Progress.Errors
	assert.NotNil(t, errs)
	assert.Empty(t, errs)
}

func TestJob_SnapshotIsACopy(t *testing.T) {
	job := &Job{ID: "copy-test", UpdatedAt: time.Now()}
	job.AddError("first")
	snap := job.Snapshot()
	job.AddError("second")
	assert.Equal(t, []string{"first"}, snap.Progress.Errors)
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	store.Put(&Job{ID: "store-1", UpdatedAt: time.Now()})

	got := store.Get("store-1")
	require.NotNil(t, got)
	assert.Equal(t, "store-1", got.ID)
	assert.Nil(t, store.Get("nonexistent"))
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)
	store.Put(&Job{ID: "old", Status: StatusCompleted, UpdatedAt: time.Now()})
	store.Put(&Job{ID: "running", Status: StatusRanking, UpdatedAt: time.Now()})

	time.Sleep(100 * time.Millisecond)
	store.Put(&Job{ID: "new", Status: StatusFailed, UpdatedAt: time.Now()})

	assert.Equal(t, 1, store.Cleanup())
	assert.Nil(t, store.Get("old"), "expired finished job is removed")
	assert.NotNil(t, store.Get("running"), "running jobs never expire")
	assert.NotNil(t, store.Get("new"))
	assert.Equal(t, 2, store.Len())
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	assert.Zero(t, NewJobStore(time.Hour).Cleanup())
}
