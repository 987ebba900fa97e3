package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labeled(label string, out *[]string) task {
	return newTask(context.Background(), func(context.Context) error {
		*out = append(*out, label)
		return nil
	})
}

func TestTaskQueue_FIFO(t *testing.T) {
	q := newTaskQueue()
	var ran []string

	for _, l := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(labeled(l, &ran)))
	}

	for {
		tk, ok := q.TryDequeue()
		if !ok {
			break
		}
		require.NoError(t, tk.run(tk.ctx))
	}
	assert.Equal(t, []string{"A", "B", "C"}, ran)
}

func TestTaskQueue_TryDequeue_Empty(t *testing.T) {
	q := newTaskQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestTaskQueue_WaitSignals(t *testing.T) {
	q := newTaskQueue()
	var ran []string

	q.Enqueue(labeled("A", &ran))

	select {
	case <-q.Wait():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("enqueue did not signal")
	}
}

func TestTaskQueue_Close(t *testing.T) {
	q := newTaskQueue()
	var ran []string

	q.Enqueue(labeled("A", &ran))
	q.Close()
	q.Close() // idempotent

	assert.False(t, q.Enqueue(labeled("B", &ran)), "enqueue after close should return false")
	assert.False(t, q.Drained(), "queued task survives close")

	_, ok := q.TryDequeue()
	require.True(t, ok)
	assert.True(t, q.Drained())

	select {
	case <-q.Wait():
	default:
		t.Fatal("closed queue should wake waiters")
	}
}

func TestTaskQueue_Len(t *testing.T) {
	q := newTaskQueue()
	var ran []string

	assert.Equal(t, 0, q.Len())
	q.Enqueue(labeled("1", &ran))
	q.Enqueue(labeled("2", &ran))
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())
}

func TestTaskQueue_ThreadSafe(t *testing.T) {
	q := newTaskQueue()

	const producers = 10
	const tasksPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < tasksPerProducer; i++ {
				q.Enqueue(newTask(context.Background(), func(context.Context) error { return nil }))
			}
		}()
	}
	wg.Wait()

	received := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		received++
	}
	assert.Equal(t, producers*tasksPerProducer, received)
}
