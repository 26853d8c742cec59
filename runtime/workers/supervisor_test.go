package workers

import (
	"context"
	"log/slog"
	"pairchat/mocks"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSupervisor_RestartOnPanic(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	workerMock := mocks.NewMockWorker(ctrl)

	var calls, restarts atomic.Int32
	workerMock.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			calls.Add(1)
			panic("boom")
		}).
		AnyTimes()

	sup := NewSupervisor(slog.Default(), 20*time.Millisecond).
		OnRestart(func(string) { restarts.Add(1) })

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	// When
	sup.Add(workerMock).Run(ctx)

	// Then
	req.GreaterOrEqual(calls.Load(), int32(2))
	req.GreaterOrEqual(restarts.Load(), int32(1))
}

func TestSupervisor_StopOnSuccess(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	workerMock := mocks.NewMockWorker(ctrl)

	// Given a worker running only once
	workerMock.EXPECT().
		Run(gomock.Any()).
		Return(nil).
		Times(1)

	sup := NewSupervisor(slog.Default(), 0)
	done := make(chan struct{})
	go func() {
		sup.Add(workerMock).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
		// Then supervisor detected a success and stopped
	case <-time.After(500 * time.Millisecond):
		req.Fail("Supervisor should have stopped after worker success")
	}
}

func TestSupervisor_Stop(t *testing.T) {
	req := require.New(t)
	tasks := make(chan Task)
	sup := NewSupervisor(slog.Default(), 0)
	sup.Add(NewLaneWorker(0, tasks, slog.Default()))

	done := make(chan struct{})
	go func() {
		sup.Run(context.Background())
		close(done)
	}()

	req.Eventually(func() bool {
		sup.Stop()
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestLaneWorker_Runs_Tasks_In_Order(t *testing.T) {
	req := require.New(t)
	tasks := make(chan Task, 10)
	var order []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		tasks <- func(context.Context) { order = append(order, i) }
	}
	tasks <- func(context.Context) { close(done) }
	close(tasks)

	err := NewLaneWorker(0, tasks, slog.Default()).Run(context.Background())

	req.NoError(err)
	<-done
	req.Equal([]int{0, 1, 2, 3, 4}, order)
}

func TestLaneWorker_Resumes_After_Panic(t *testing.T) {
	req := require.New(t)
	tasks := make(chan Task, 3)
	executed := make(chan string, 2)
	tasks <- func(context.Context) { panic("bad task") }
	tasks <- func(context.Context) { executed <- "after panic" }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup := NewSupervisor(slog.Default(), 10*time.Millisecond)
	go sup.Add(NewLaneWorker(0, tasks, slog.Default())).Run(ctx)

	select {
	case got := <-executed:
		req.Equal("after panic", got)
	case <-time.After(time.Second):
		req.Fail("lane should have been restarted")
	}
}
