package queue

import (
	"sync/atomic"
	"time"
)

// Clock hands out strictly increasing nanosecond scores for this process.
// Scores from different processes only rely on wall clocks being close.
type Clock struct {
	last atomic.Int64
	now  func() time.Time
}

// NewClock returns a Clock backed by time.Now.
func NewClock() *Clock { return &Clock{now: time.Now} }

// Next returns a score greater than every score previously returned.
func (c *Clock) Next() int64 {
	for {
		last := c.last.Load()
		n := c.now().UnixNano()
		if n <= last {
			n = last + 1
		}
		if c.last.CompareAndSwap(last, n) {
			return n
		}
	}
}
