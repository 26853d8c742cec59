package runtime

import (
	"context"
	"log/slog"
	"pairchat/contract"
	"pairchat/domain"
	"pairchat/domain/event"
	"pairchat/errors"
	"pairchat/observability"
)

// Fanout delivers events to the sessions found in the registry.
// Delivery is best effort: a slow or closed connection never blocks the others for
// longer than its sink allows, and failures are only logged and counted.
type Fanout struct {
	registry contract.IRegistry
	metrics  *observability.Metrics
	log      *slog.Logger
}

func NewFanout(registry contract.IRegistry, metrics *observability.Metrics, log *slog.Logger) *Fanout {
	return &Fanout{registry: registry, metrics: metrics, log: log}
}

// Deliver sends e to every session subscribed to room except the given connections.
func (f *Fanout) Deliver(ctx context.Context, room domain.RoomKey, e event.Event, except ...domain.ConnectionID) {
	f.consume(ctx, f.registry.GetSinksForRoom(room, except...), e)
}

// Broadcast sends e to every registered session, whatever the rooms it joined.
func (f *Fanout) Broadcast(ctx context.Context, e event.Event) {
	f.consume(ctx, f.registry.ActiveSinks(), e)
}

func (f *Fanout) consume(ctx context.Context, sinks []contract.EventSink, e event.Event) {
	for _, sink := range sinks {
		err := sink.Consume(ctx, e)
		switch {
		case err == nil, errors.Is(err, errors.ErrSessionClosed):
		default:
			f.metrics.FanoutDropped()
			f.log.Warn("Event dropped", "event", e.Name(), "error", err)
		}
	}
}
