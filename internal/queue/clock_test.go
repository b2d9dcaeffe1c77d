package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClock_StrictlyIncreasingOnFrozenTime(t *testing.T) {
	frozen := time.Unix(1700000000, 0)
	c := &Clock{now: func() time.Time { return frozen }}

	a := c.Next()
	b := c.Next()
	require.Equal(t, frozen.UnixNano(), a)
	require.Equal(t, a+1, b)
}

func TestClock_ConcurrentUnique(t *testing.T) {
	c := NewClock()
	const n = 64
	var mu sync.Mutex
	seen := make(map[int64]struct{}, n*10)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Go(func() {
			for j := 0; j < 10; j++ {
				v := c.Next()
				mu.Lock()
				seen[v] = struct{}{}
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	require.Len(t, seen, n*10)
}
