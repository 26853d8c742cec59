package runtime

import (
	"context"
	"log/slog"
	"pairchat/domain"
	"pairchat/errors"
	"pairchat/runtime/workers"
	"pairchat/sink"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDispatcher_Same_Key_Runs_In_Order(t *testing.T) {
	req := require.New(t)
	dispatcher := NewDispatcher(4, 8, workers.NewSupervisor(slog.Default(), 10*time.Millisecond), slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.Run(ctx)

	var (
		mu   sync.Mutex
		seen []int
	)
	for i := range 20 {
		err := dispatcher.Dispatch(ctx, "room:alice:bob", func(context.Context) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, i)
		})
		req.NoError(err)
	}

	req.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 20
	}, time.Second, 5*time.Millisecond)
	for i, v := range seen {
		req.Equal(i, v)
	}
}

func TestDispatcher_Lane_Survives_A_Panicking_Task(t *testing.T) {
	req := require.New(t)
	dispatcher := NewDispatcher(1, 8, workers.NewSupervisor(slog.Default(), 5*time.Millisecond), slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.Run(ctx)

	done := make(chan struct{})
	req.NoError(dispatcher.Dispatch(ctx, "k", func(context.Context) { panic("boom") }))
	req.NoError(dispatcher.Dispatch(ctx, "k", func(context.Context) { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("task after panic never ran")
	}
}

func TestDispatcher_Refuses_Tasks_Once_Stopped(t *testing.T) {
	req := require.New(t)
	dispatcher := NewDispatcher(2, 1, workers.NewSupervisor(slog.Default(), 0), slog.Default())

	dispatcher.Stop()

	err := dispatcher.Dispatch(context.Background(), "k", func(context.Context) {})
	req.ErrorIs(err, errors.ErrShuttingDown)
}

func TestSession_Lifecycle(t *testing.T) {
	req := require.New(t)
	s := NewSession("c1", domain.Identity{ID: "dan", Username: "Dan"}, time.Now().Add(time.Minute), sink.NewRecorder())

	req.Equal(Authenticating, s.State())
	req.True(s.activate())
	req.False(s.activate())
	req.True(s.IsActive())

	s.join("alice:dan")
	req.True(s.HasJoined("alice:dan"))

	req.True(s.close())
	req.False(s.close())
	req.Equal("closed", s.State().String())
	req.ErrorIs(s.Consume(context.Background(), nil), errors.ErrSessionClosed)
}
