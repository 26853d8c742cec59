package sink

import (
	"context"
	"pairchat/domain/event"
	"pairchat/errors"
	"sync"
	"time"
)

// ConnectionSink buffers the events of one connection until its write pump drains them.
type ConnectionSink struct {
	events          chan event.Event
	done            chan struct{}
	closeOnce       sync.Once
	deliveryTimeout time.Duration
}

func NewConnectionSink(bufferSize int, deliveryTimeout time.Duration) *ConnectionSink {
	return &ConnectionSink{
		events:          make(chan event.Event, bufferSize),
		done:            make(chan struct{}),
		deliveryTimeout: deliveryTimeout,
	}
}

// Consume is called by fanout.
// A full buffer is waited on for at most deliveryTimeout, then the event is dropped.
func (s *ConnectionSink) Consume(ctx context.Context, e event.Event) error {
	select {
	case <-s.done:
		return errors.ErrSessionClosed
	default:
	}

	select {
	case s.events <- e:
		return nil
	default:
	}

	timer := time.NewTimer(s.deliveryTimeout)
	defer timer.Stop()
	select {
	case s.events <- e:
		return nil
	case <-s.done:
		return errors.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.ErrDeliveryTimeout
	}
}

// Events is drained by the connection write pump.
func (s *ConnectionSink) Events() <-chan event.Event {
	return s.events
}

// Done is closed once the connection is gone.
func (s *ConnectionSink) Done() <-chan struct{} {
	return s.done
}

// Close never closes the events channel, so late producers cannot panic.
func (s *ConnectionSink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
