package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Worker runs queued jobs through the analyzer.
type Worker struct {
	analyzer *Analyzer
	log      *slog.Logger
}

func NewWorker(a *Analyzer, log *slog.Logger) *Worker {
	return &Worker{analyzer: a, log: log}
}

// Process runs one job to a terminal status.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)
	in, sources := job.Request()
	log.Info("analysis started", "documents", len(sources))

	out, stats, err := w.analyzer.withLogger(log).analyze(ctx, in, sources, func(s JobStatus) {
		job.SetStatus(s, string(s))
	})
	job.SetStats(stats)
	if skipped := stats.Documents - stats.Parsed; skipped > 0 && err == nil {
		job.AddError(fmt.Sprintf("%d of %d documents could not be read", skipped, stats.Documents))
	}

	switch {
	case err == nil:
		job.Complete(out)
	case errors.Is(err, ErrNoHeadings), errors.Is(err, ErrNothingRelevant):
		log.Info("no results", "reason", err)
		job.Finish(StatusNoResults, err.Error())
	default:
		log.Error("analysis failed", "error", err)
		job.AddError(err.Error())
		job.Finish(StatusFailed, err.Error())
	}
}
