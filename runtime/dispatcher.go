package runtime

import (
	"context"
	"log/slog"
	"pairchat/contract"
	"pairchat/errors"
	"pairchat/runtime/workers"
	"sync"

	"github.com/cespare/xxhash/v2"
)

var _ contract.IDispatcher = (*Dispatcher)(nil)

// Dispatcher shards tasks onto a fixed set of supervised lanes.
// Tasks sharing a key always land on the same lane and run in submission order.
type Dispatcher struct {
	lanes      []chan workers.Task
	supervisor *workers.Supervisor
	log        *slog.Logger

	stopOnce sync.Once
	stopped  chan struct{}
}

func NewDispatcher(numberOfLanes, laneBufferSize int, supervisor *workers.Supervisor, log *slog.Logger) *Dispatcher {
	if numberOfLanes <= 0 {
		numberOfLanes = 1
	}
	d := &Dispatcher{
		lanes:      make([]chan workers.Task, numberOfLanes),
		supervisor: supervisor,
		log:        log,
		stopped:    make(chan struct{}),
	}
	for i := range d.lanes {
		d.lanes[i] = make(chan workers.Task, laneBufferSize)
		supervisor.Add(workers.NewLaneWorker(i, d.lanes[i], log))
	}
	return d
}

// Run blocks until ctx is canceled or Stop is called.
func (d *Dispatcher) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
		case <-d.stopped:
			cancel()
		}
	}()
	d.log.Info("Starting dispatcher", "lanes", len(d.lanes))
	d.supervisor.Run(ctx)
	d.Stop()
}

// Stop refuses new tasks. Tasks still queued are abandoned.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopped) })
}

func (d *Dispatcher) lane(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(d.lanes)))
}

// Dispatch queues task on the lane owning key. It blocks while the lane is full.
func (d *Dispatcher) Dispatch(ctx context.Context, key string, task func(ctx context.Context)) error {
	select {
	case <-d.stopped:
		return errors.ErrShuttingDown
	default:
	}
	select {
	case d.lanes[d.lane(key)] <- task:
		return nil
	case <-d.stopped:
		return errors.ErrShuttingDown
	case <-ctx.Done():
		return ctx.Err()
	}
}
