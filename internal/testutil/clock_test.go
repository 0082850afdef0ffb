package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepClock_StartsAtEpoch(t *testing.T) {
	clock := NewStepClock(time.Second)
	assert.Equal(t, Epoch, clock.Peek())
	assert.Equal(t, Epoch, clock.Now())
}

func TestStepClock_NowAdvancesByStep(t *testing.T) {
	clock := NewStepClock(time.Minute)

	first := clock.Now()
	second := clock.Now()
	third := clock.Now()

	assert.Equal(t, time.Minute, second.Sub(first))
	assert.Equal(t, time.Minute, third.Sub(second))
	assert.Equal(t, Epoch.Add(3*time.Minute), clock.Peek())
}

func TestStepClock_Reset(t *testing.T) {
	clock := NewStepClock(time.Second)
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, Epoch, clock.Now())
}

func TestStepClock_ConcurrentCallsAreUnique(t *testing.T) {
	clock := NewStepClock(time.Millisecond)
	const n = 100

	var mu sync.Mutex
	seen := make(map[time.Time]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := clock.Now()
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
	assert.Equal(t, Epoch.Add(n*time.Millisecond), clock.Peek())
}
