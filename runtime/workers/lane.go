package workers

import (
	"context"
	"log/slog"
	"pairchat/contract"
)

var _ contract.Worker = (*LaneWorker)(nil)

// Task is a unit of work bound to one lane.
type Task func(ctx context.Context)

// LaneWorker executes the tasks of one lane strictly one after the other.
// The channel outlives the worker so a restarted worker resumes where the crashed one stopped.
type LaneWorker struct {
	index int
	tasks <-chan Task
	log   *slog.Logger
}

func NewLaneWorker(index int, tasks <-chan Task, log *slog.Logger) *LaneWorker {
	return &LaneWorker{index: index, tasks: tasks, log: log}
}

func (w *LaneWorker) Run(ctx context.Context) error {
	w.log.Debug("Lane started", "lane", w.index)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task, ok := <-w.tasks:
			if !ok {
				w.log.Debug("Lane closed", "lane", w.index)
				return nil
			}
			task(ctx)
		}
	}
}
