package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFOOrder(t *testing.T) {
	q := New[string]()
	for i := 0; i < 100; i++ {
		require.True(t, q.Enqueue(line(i)))
	}
	assert.Equal(t, 100, q.Len())

	for i := 0; i < 100; i++ {
		got, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, line(i), got)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueue_DequeueBlocksUntilEnqueue(t *testing.T) {
	q := New[string]()
	got := make(chan string, 1)

	go func() {
		item, _ := q.Dequeue()
		got <- item
	}()

	select {
	case <-got:
		t.Fatal("dequeue returned before any item was enqueued")
	case <-time.After(50 * time.Millisecond):
	}

	q.Enqueue("|challstr|abc")
	select {
	case item := <-got:
		assert.Equal(t, "|challstr|abc", item)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dequeue")
	}
}

func TestQueue_CloseUnblocksConsumer(t *testing.T) {
	q := New[string]()
	done := make(chan bool, 1)

	go func() {
		_, ok := q.Dequeue()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("close did not wake the consumer")
	}
	assert.True(t, q.Closed())
}

func TestQueue_EnqueueAfterClose(t *testing.T) {
	q := New[int]()
	q.Close()
	q.Close()
	assert.False(t, q.Enqueue(1))
	assert.Equal(t, 0, q.Len())
}

func TestQueue_DrainsAfterClose(t *testing.T) {
	q := New[int]()
	q.Enqueue(1)
	q.Enqueue(2)
	q.Close()

	v, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	v, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = q.Dequeue()
	assert.False(t, ok)
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	const perProducer = 500
	q := New[int]()

	var wg sync.WaitGroup
	for p := 0; p < 2; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(base + i)
			}
		}(p * perProducer)
	}

	go func() {
		wg.Wait()
		q.Close()
	}()

	// Per-producer order must hold even though producers interleave.
	last := map[int]int{0: -1, 1: -1}
	count := 0
	for {
		v, ok := q.Dequeue()
		if !ok {
			break
		}
		producer := v / perProducer
		require.Greater(t, v, last[producer])
		last[producer] = v
		count++
	}
	assert.Equal(t, 2*perProducer, count)
}
