package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteKeepsInputOrder(t *testing.T) {
	pool := NewPool[int, int](3, func(_ context.Context, n int) (int, error) {
		return n * n, nil
	})
	tasks := pool.Execute(context.Background(), []int{1, 2, 3, 4, 5, 6, 7})
	require.Len(t, tasks, 7)
	for i, task := range tasks {
		assert.Equal(t, i+1, task.Input)
		assert.Equal(t, (i+1)*(i+1), task.Result)
		assert.NoError(t, task.Err)
	}
	assert.NoError(t, Errors(tasks))
}

func TestErrorsJoinsFailures(t *testing.T) {
	errOdd := errors.New("odd")
	pool := NewPool[int, int](0, func(_ context.Context, n int) (int, error) {
		if n%2 == 1 {
			return 0, errOdd
		}
		return n, nil
	})
	tasks := pool.Execute(context.Background(), []int{1, 2, 3})
	assert.NoError(t, tasks[1].Err)
	assert.ErrorIs(t, Errors(tasks), errOdd)
}

func TestExecuteCancelledContext(t *testing.T) {
	var calls atomic.Int32
	pool := NewPool[int, int](2, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := pool.Execute(ctx, []int{1, 2, 3, 4})
	require.Len(t, tasks, 4)
	var cancelled int
	for _, task := range tasks {
		if errors.Is(task.Err, context.Canceled) {
			cancelled++
		}
	}
	assert.Equal(t, 4, cancelled+int(calls.Load()))
}

func TestExecuteEmpty(t *testing.T) {
	pool := NewPool[int, int](4, func(_ context.Context, n int) (int, error) { return n, nil })
	assert.Empty(t, pool.Execute(context.Background(), nil))
}
