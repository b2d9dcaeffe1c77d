package runtime

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// PrimePeriods are the spawn periods, in seconds, a pool picks from. Nodes
// started together end up on different primes and drift apart.
var PrimePeriods = []int{11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61}

// PickPeriod returns one of PrimePeriods at random.
func PickPeriod() time.Duration {
	return time.Duration(PrimePeriods[rand.IntN(len(PrimePeriods))]) * time.Second
}

// every fires at a fixed interval. Unlike cron.Every it keeps sub-second
// precision.
type every time.Duration

func (e every) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

var _ cron.Schedule = every(0)

// cronLogger routes cron's logs into the runtime logger.
type cronLogger struct{ log Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugf("cron: %s%s", msg, formatKV(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorf("cron: %s err=%v%s", msg, err, formatKV(keysAndValues))
}

func formatKV(kv []any) string {
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	if len(kv)%2 == 1 {
		fmt.Fprintf(&b, " %v", kv[len(kv)-1])
	}
	return b.String()
}
