package marketlock_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polystrat/strategy-core/internal/marketlock"
)

func TestRegistry_SameMarketSerializes(t *testing.T) {
	r := marketlock.NewRegistry()

	var inCriticalSection atomic.Bool
	var overlapDetected atomic.Bool

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.WithLock("market-1", func() {
				if !inCriticalSection.CompareAndSwap(false, true) {
					overlapDetected.Store(true)
				}
				time.Sleep(time.Millisecond)
				inCriticalSection.Store(false)
			})
		}()
	}
	wg.Wait()

	assert.False(t, overlapDetected.Load(), "two goroutines executed the critical section for the same market concurrently")
}

func TestRegistry_DifferentMarketsProceedConcurrently(t *testing.T) {
	r := marketlock.NewRegistry()

	release := make(chan struct{})
	started := make(chan struct{}, 2)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		r.WithLock("market-a", func() {
			started <- struct{}{}
			<-release
		})
	}()
	go func() {
		defer wg.Done()
		r.WithLock("market-b", func() {
			started <- struct{}{}
			<-release
		})
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("expected both distinct-market critical sections to start without waiting on each other")
		}
	}

	close(release)
	wg.Wait()
}

func TestRegistry_LockCreatedLazilyAndReused(t *testing.T) {
	r := marketlock.NewRegistry()
	require.Equal(t, 0, r.Size())

	first := r.Lock("market-1")
	second := r.Lock("market-1")
	assert.Same(t, first, second)
	assert.Equal(t, 1, r.Size())

	r.Lock("market-2")
	assert.Equal(t, 2, r.Size())
}

func TestRegistry_ReleasesOnPanic(t *testing.T) {
	r := marketlock.NewRegistry()

	func() {
		defer func() {
			_ = recover()
		}()
		r.WithLock("market-1", func() {
			panic("boom")
		})
	}()

	done := make(chan struct{})
	go func() {
		r.WithLock("market-1", func() {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock was not released after a panic inside WithLock")
	}
}
