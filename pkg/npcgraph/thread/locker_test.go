package thread

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_SerializesPerThread(t *testing.T) {
	l := NewLocker()
	ctx := context.Background()

	var mu sync.Mutex
	inside := 0
	maxInside := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLock(ctx, "guard:s1", func(context.Context) error {
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
	assert.Equal(t, 0, l.Active(), "entries are released")
}

func TestLocker_IndependentThreads(t *testing.T) {
	l := NewLocker()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "a:1")
	require.NoError(t, err)
	defer unlockA()

	timeout, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := l.Lock(timeout, "b:1")
	require.NoError(t, err, "a different thread is not blocked")
	unlockB()

	assert.Equal(t, 1, l.Active())
}

func TestLocker_ContextCancellation(t *testing.T) {
	l := NewLocker()
	unlock, err := l.Lock(context.Background(), "a:1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "a:1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op
	assert.Equal(t, 0, l.Active())
}

func TestLocker_Waiters(t *testing.T) {
	l := NewLocker()
	assert.Equal(t, 0, l.Waiters("a:1"))

	unlock, err := l.Lock(context.Background(), "a:1")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Waiters("a:1"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := l.Lock(ctx, "a:1")
		done <- err
	}()
	require.Eventually(t, func() bool { return l.Waiters("a:1") == 2 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 1, l.Waiters("a:1"))

	unlock()
	assert.Equal(t, 0, l.Waiters("a:1"))
}

func TestLocker_ArrivalOrder(t *testing.T) {
	l := NewLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "a:1")
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = l.WithLock(ctx, "a:1", func(context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}(i)
		// Let each waiter queue before starting the next.
		require.Eventually(t, func() bool {
			l.mu.Lock()
			defer l.mu.Unlock()
			return l.entries["a:1"].refs == i+2
		}, time.Second, time.Millisecond)
		time.Sleep(5 * time.Millisecond)
	}

	unlock()
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2}, order)
}
