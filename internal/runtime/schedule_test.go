package runtime

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPickPeriod_IsPrimeSeconds(t *testing.T) {
	for i := 0; i < 100; i++ {
		p := PickPeriod()
		assert.Zero(t, p%time.Second)
		assert.Contains(t, PrimePeriods, int(p/time.Second))
	}
}

func TestEvery_SubSecond(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(15*time.Millisecond), every(15*time.Millisecond).Next(base))
	assert.Equal(t, base.Add(17*time.Second), every(17*time.Second).Next(base))
}

type recLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recLogger) add(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *recLogger) Debugf(f string, a ...any) { l.add("DEBUG", f, a...) }
func (l *recLogger) Infof(f string, a ...any)  { l.add("INFO", f, a...) }
func (l *recLogger) Warnf(f string, a ...any)  { l.add("WARN", f, a...) }
func (l *recLogger) Errorf(f string, a ...any) { l.add("ERROR", f, a...) }

func TestCronLogger(t *testing.T) {
	rl := &recLogger{}
	cl := cronLogger{rl}
	cl.Info("wake", "now", "t1")
	cl.Error(errors.New("panic"), "recovered", "stack", "s", "dangling")

	assert.Equal(t, []string{
		"DEBUG cron: wake now=t1",
		"ERROR cron: recovered err=panic stack=s dangling",
	}, rl.lines)
}
