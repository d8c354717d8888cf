package starlark

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestThreadPool_GetPut(t *testing.T) {
	pool := NewThreadPool(5, nil)

	thread := pool.Get("test1")
	require.NotNil(t, thread)
	assert.Equal(t, "test1", thread.Name)

	pool.Put(thread)
	assert.Equal(t, 1, pool.Size())

	thread2 := pool.Get("test2")
	assert.Equal(t, 0, pool.Size())
	assert.Same(t, thread, thread2, "idle thread is reused")
	assert.Equal(t, "test2", thread2.Name)
}

func TestThreadPool_MaxSize(t *testing.T) {
	pool := NewThreadPool(2, nil)

	threads := make([]*starlark.Thread, 3)
	for i := range threads {
		threads[i] = pool.Get("test")
	}
	for _, thread := range threads {
		pool.Put(thread)
	}

	assert.Equal(t, 2, pool.Size())
}

func TestThreadPool_Concurrent(t *testing.T) {
	pool := NewThreadPool(10, nil)
	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			thread := pool.Get("concurrent")
			pool.Put(thread)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, pool.Size(), 10)
}
