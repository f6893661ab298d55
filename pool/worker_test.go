package pool

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestWorker(t *testing.T, numWorkers int) *Worker {
	t.Helper()

	w := NewWorker(&WorkerConfig{
		NumWorkers:    numWorkers,
		WorkerTimeout: 100 * time.Millisecond,
	})
	require.NoError(t, w.Start())
	t.Cleanup(func() {
		require.NoError(t, w.Stop())
	})

	return w
}

// TestWorkerSubmit asserts that Submit executes the closure and returns its
// error.
func TestWorkerSubmit(t *testing.T) {
	t.Parallel()

	w := newTestWorker(t, 2)

	taskErr := errors.New("task failed")
	require.ErrorIs(t, w.Submit(func() error { return taskErr }), taskErr)

	var ran bool
	require.NoError(t, w.Submit(func() error {
		ran = true
		return nil
	}))
	require.True(t, ran)
}

// TestWorkerDispatch asserts that Dispatch executes the closure without the
// caller waiting on it.
func TestWorkerDispatch(t *testing.T) {
	t.Parallel()

	w := newTestWorker(t, 2)

	done := make(chan struct{})
	require.NoError(t, w.Dispatch(func() {
		close(done)
	}))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatched task never ran")
	}
}

// TestWorkerSubmitConcurrent asserts that many concurrent submissions all
// execute, even when they outnumber the worker goroutines.
func TestWorkerSubmitConcurrent(t *testing.T) {
	t.Parallel()

	w := newTestWorker(t, 4)

	const numTasks = 64

	var executed int32
	var wg sync.WaitGroup
	for i := 0; i < numTasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, w.Submit(func() error {
				atomic.AddInt32(&executed, 1)
				return nil
			}))
		}()
	}
	wg.Wait()

	require.EqualValues(t, numTasks, atomic.LoadInt32(&executed))
}

// TestWorkerStop asserts that submissions against a stopped pool fail with
// ErrWorkerPoolExiting.
func TestWorkerStop(t *testing.T) {
	t.Parallel()

	w := NewWorker(&WorkerConfig{
		NumWorkers:    1,
		WorkerTimeout: 100 * time.Millisecond,
	})
	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())

	require.ErrorIs(t, w.Submit(func() error { return nil }),
		ErrWorkerPoolExiting)
	require.ErrorIs(t, w.Dispatch(func() {}), ErrWorkerPoolExiting)
}
