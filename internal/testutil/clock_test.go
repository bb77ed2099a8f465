package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock_StaysPut(t *testing.T) {
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	clock := NewFixedClock(at)

	assert.Equal(t, at, clock.Now())
	assert.Equal(t, at, clock.Now())
}

func TestFixedClock_SetAndAdvance(t *testing.T) {
	clock := NewFixedClock(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC))

	clock.Set(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2025, clock.Now().Year())

	got := clock.Advance(36 * time.Hour)
	assert.Equal(t, time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC), got)
	assert.Equal(t, got, clock.Now())
}

func TestFixedClock_ConcurrentAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFixedClock(start)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				clock.Advance(time.Second)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, start.Add(1000*time.Second), clock.Now())
}

func TestFixedNamer(t *testing.T) {
	n := NewFixedNamer("")
	assert.Equal(t, "temp_table", n.NextName())
	assert.Equal(t, "temp_table", n.NextName())

	assert.Equal(t, "tmp_orders", NewFixedNamer("tmp_orders").NextName())
}
