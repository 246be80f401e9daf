package browser

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpQueue_ExecutesInSubmissionOrder(t *testing.T) {
	q := NewOpQueue()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		q.Do(func() {
			order = append(order, i)
		})
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestOpQueue_NeverOverlapsOperations(t *testing.T) {
	q := NewOpQueue()

	var active int32
	var overlaps int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Do(func() {
				if atomic.AddInt32(&active, 1) > 1 {
					atomic.AddInt32(&overlaps, 1)
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
			})
		}()
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&overlaps), "no two operations may execute concurrently")
}

func TestOpQueue_PicksUpWorkEnqueuedWhileDraining(t *testing.T) {
	q := NewOpQueue()

	firstRunning := make(chan struct{})
	release := make(chan struct{})
	var firstDone, secondAfterFirst bool

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		q.Do(func() {
			close(firstRunning)
			<-release
			firstDone = true
		})
	}()

	go func() {
		defer wg.Done()
		<-firstRunning
		q.Do(func() {
			secondAfterFirst = firstDone
		})
	}()

	// Let the second caller enqueue while the first operation is mid-flight.
	<-firstRunning
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	require.True(t, firstDone)
	assert.True(t, secondAfterFirst, "second operation must run after the in-flight one completed")
}

func TestOpQueue_DoReturnsAfterExecution(t *testing.T) {
	q := NewOpQueue()

	ran := false
	q.Do(func() { ran = true })
	assert.True(t, ran)
}
