package sms

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedupCache_Window(t *testing.T) {
	cache := NewDedupCache(60*time.Second, 10)
	start := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)
	key := Key("VM-HDFCBK", start, "Rs.100 debited")

	assert.False(t, cache.Seen(key, start))
	assert.True(t, cache.Seen(key, start.Add(30*time.Second)))
	assert.True(t, cache.Seen(key, start.Add(59*time.Second)))
	assert.False(t, cache.Seen(key, start.Add(60*time.Second)), "entry expires after the window")
	assert.Equal(t, 1, cache.Len())
}

func TestDedupCache_PrunesOnAccess(t *testing.T) {
	cache := NewDedupCache(time.Minute, 10)
	start := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		cache.Seen(fmt.Sprintf("k%d", i), start)
	}
	assert.Equal(t, 5, cache.Len())

	cache.Seen("fresh", start.Add(2*time.Minute))
	assert.Equal(t, 1, cache.Len())
}

func TestDedupCache_Capacity(t *testing.T) {
	cache := NewDedupCache(time.Hour, 3)
	now := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)

	for _, k := range []string{"a", "b", "c", "d"} {
		assert.False(t, cache.Seen(k, now))
	}
	assert.Equal(t, 3, cache.Len())
	assert.False(t, cache.Seen("a", now), "oldest entry was evicted")
	assert.True(t, cache.Seen("d", now))
}

func TestDedupCache_Defaults(t *testing.T) {
	cache := NewDedupCache(0, 0)
	assert.Equal(t, DefaultDedupWindow, cache.window)
	assert.Equal(t, DefaultDedupCapacity, cache.capacity)
}

func TestKey(t *testing.T) {
	at := time.UnixMilli(1710234000123)
	assert.Equal(t, "HDFCBK_1710234000123_hello", Key("HDFCBK", at, "hello"))
	assert.NotEqual(t, Key("HDFCBK", at, "hello"), Key("HDFCBK", at.Add(time.Millisecond), "hello"))
}

func TestDedupCache_Concurrent(t *testing.T) {
	cache := NewDedupCache(time.Minute, 100)
	now := time.Now()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fresh int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !cache.Seen("same-message", now) {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fresh)
}
