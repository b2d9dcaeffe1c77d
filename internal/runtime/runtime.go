package runtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/UniQw/uniqm-go/internal/claim"
	"github.com/UniQw/uniqm-go/internal/metrics"
	"github.com/UniQw/uniqm-go/internal/queue"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// ErrNoHandler indicates no callback is registered for the job's action; the
// job is recorded as NoCallbackFound.
var ErrNoHandler = errors.New("no handler")

// Logger is a minimal logging interface used internally by the runtime.
// It mirrors the public logger in the root package to avoid an import cycle.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}

// Defaults used by the root package when the caller leaves a field unset.
const (
	DefaultCapacity      = 5
	DefaultFinishedAge   = time.Hour
	DefaultFailedAge     = 24 * time.Hour
	DefaultNoCallbackAge = time.Hour
	DefaultMinJitter     = 100 * time.Millisecond
	DefaultMaxJitter     = time.Second
)

// Config controls one worker pool. TTLs of zero or below store records
// without expiry.
type Config struct {
	// Capacity bounds concurrent drains in this process.
	Capacity int

	FinishedAge   time.Duration
	FailedAge     time.Duration
	NoCallbackAge time.Duration

	// Period between spawn cycles. Zero picks a prime number of seconds.
	Period time.Duration
	// MinJitter and MaxJitter bound the random delay before claiming.
	MinJitter time.Duration
	MaxJitter time.Duration

	// SpawnerID identifies this pool in the claim lock. Defaults to a uuid.
	SpawnerID string

	Logger  Logger
	Metrics *metrics.Metrics
}

// Executor runs the callback registered for action and returns its
// JSON-encoded result. It returns ErrNoHandler for unknown actions.
type Executor func(ctx context.Context, action string, payload []byte) ([]byte, error)

// Runtime is the per-process worker pool: it claims queues through the
// coordinator and drains each claimed queue in its own goroutine.
type Runtime struct {
	repo  *queue.Repository
	coord *claim.Coordinator
	exec  Executor
	cfg   Config
	log   Logger
	m     *metrics.Metrics

	active atomic.Int64
	busy   atomic.Bool
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	cron    *cron.Cron
}

// New creates a worker pool. It does nothing until Start or SpawnCycle.
func New(repo *queue.Repository, coord *claim.Coordinator, exec Executor, cfg Config) *Runtime {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Period <= 0 {
		cfg.Period = PickPeriod()
	}
	if cfg.MinJitter < 0 {
		cfg.MinJitter = 0
	}
	if cfg.MaxJitter < cfg.MinJitter {
		cfg.MaxJitter = cfg.MinJitter
	}
	if cfg.SpawnerID == "" {
		cfg.SpawnerID = uuid.NewString()
	}
	lg := cfg.Logger
	if lg == nil {
		lg = noopLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runtime{
		repo:   repo,
		coord:  coord,
		exec:   exec,
		cfg:    cfg,
		log:    lg,
		m:      cfg.Metrics,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start registers the periodic spawn cycle and starts it.
func (rt *Runtime) Start() {
	rt.mu.Lock()
	if rt.started {
		rt.log.Warnf("runtime already started; ignoring Start()")
		rt.mu.Unlock()
		return
	}
	rt.started = true
	if rt.ctx.Err() != nil {
		rt.ctx, rt.cancel = context.WithCancel(context.Background())
	}
	ctx := rt.ctx
	cl := cronLogger{rt.log}
	rt.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
	rt.cron.Schedule(every(rt.cfg.Period), cron.FuncJob(func() { rt.SpawnCycle(ctx) }))
	rt.cron.Start()
	rt.mu.Unlock()

	rt.log.Infof("runtime starting: spawner=%s capacity=%d period=%s jitter=%s..%s",
		rt.cfg.SpawnerID, rt.cfg.Capacity, rt.cfg.Period, rt.cfg.MinJitter, rt.cfg.MaxJitter)
}

// Stop halts the trigger, asks drains to stop after their current job and
// waits for them. Queues left with entries become claimable again.
func (rt *Runtime) Stop() {
	rt.mu.Lock()
	if !rt.started {
		rt.log.Warnf("runtime not started; ignoring Stop()")
		rt.mu.Unlock()
		return
	}
	rt.started = false
	c, cancel := rt.cron, rt.cancel
	rt.cron = nil
	rt.mu.Unlock()
	rt.log.Infof("runtime stopping")

	cancel()
	<-c.Stop().Done()
	rt.wg.Wait()
	rt.log.Infof("runtime stopped: spawner=%s", rt.cfg.SpawnerID)
}

// Wait blocks until every drain launched so far has finished.
func (rt *Runtime) Wait() { rt.wg.Wait() }

// Active returns the number of in-flight drains.
func (rt *Runtime) Active() int { return int(rt.active.Load()) }

// Busy reports whether a spawn cycle is running.
func (rt *Runtime) Busy() bool { return rt.busy.Load() }

// Capacity returns the configured drain limit.
func (rt *Runtime) Capacity() int { return rt.cfg.Capacity }

// Period returns the interval between spawn cycles.
func (rt *Runtime) Period() time.Duration { return rt.cfg.Period }

// SpawnerID returns the id written to the claim lock.
func (rt *Runtime) SpawnerID() string { return rt.cfg.SpawnerID }

func (rt *Runtime) baseContext() context.Context {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.ctx
}
