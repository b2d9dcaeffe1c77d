package uniqm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/UniQw/uniqm-go/internal/claim"
	ikeys "github.com/UniQw/uniqm-go/internal/keys"
	"github.com/UniQw/uniqm-go/internal/metrics"
	"github.com/UniQw/uniqm-go/internal/queue"
	rtm "github.com/UniQw/uniqm-go/internal/runtime"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Config defines the configuration for a Manager. Zero values take the
// defaults below; a negative TTL stores records without expiry.
type Config struct {
	// Prefix namespaces every key. Defaults to "uniqm".
	Prefix string
	// Capacity bounds concurrent queue drains in this process. Defaults to 5.
	Capacity int

	// FinishedAge is how long a Finished status is kept. Defaults to 1h.
	FinishedAge time.Duration
	// FailedAge is how long a Failed status is kept. Defaults to 24h.
	FailedAge time.Duration
	// NoCallbackAge is how long a NoCallbackFound status is kept. Defaults to 1h.
	NoCallbackAge time.Duration
	// InProgressAge bounds an InProgress status whose job never completes.
	// Defaults to 1h.
	InProgressAge time.Duration

	// Period between spawn cycles. Zero picks a prime number of seconds
	// between 11 and 61.
	Period time.Duration
	// MinJitter and MaxJitter bound the random delay before each claim.
	// Both zero selects 100ms..1s; negative values disable the delay.
	MinJitter time.Duration
	MaxJitter time.Duration

	// AtomicClaim takes the claim lock with one atomic check-and-set script
	// instead of read-then-write.
	AtomicClaim bool
	// ClaimLockTTL expires a claim lock left by a crashed node. Defaults to 30s.
	ClaimLockTTL time.Duration
	// SpawnerID identifies this process in the claim lock. Defaults to a uuid.
	SpawnerID string

	// Logger is the logger used for pool events. Defaults to FmtLogger.
	Logger Logger
	// Registerer, when set, receives the pool's Prometheus metrics.
	Registerer prometheus.Registerer
	// MetricsNamespace prefixes metric names. Defaults to "uniqm".
	MetricsNamespace string
	// Encoder serializes payloads and results. Defaults to JSONEncoder.
	Encoder Encoder
}

func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = ikeys.DefaultPrefix
	}
	if c.Capacity <= 0 {
		c.Capacity = rtm.DefaultCapacity
	}
	if c.FinishedAge == 0 {
		c.FinishedAge = rtm.DefaultFinishedAge
	}
	if c.FailedAge == 0 {
		c.FailedAge = rtm.DefaultFailedAge
	}
	if c.NoCallbackAge == 0 {
		c.NoCallbackAge = rtm.DefaultNoCallbackAge
	}
	if c.InProgressAge == 0 {
		c.InProgressAge = queue.DefaultInProgressTTL
	}
	if c.MinJitter == 0 && c.MaxJitter == 0 {
		c.MinJitter, c.MaxJitter = rtm.DefaultMinJitter, rtm.DefaultMaxJitter
	}
	c.MinJitter = max(c.MinJitter, 0)
	c.MaxJitter = max(c.MaxJitter, 0)
	if c.ClaimLockTTL == 0 {
		c.ClaimLockTTL = claim.DefaultTTL
	}
	if c.Logger == nil {
		c.Logger = NewFmtLogger()
	}
	if c.MetricsNamespace == "" {
		c.MetricsNamespace = "uniqm"
	}
	if c.Encoder == nil {
		c.Encoder = &JSONEncoder{}
	}
	return c
}

// Manager submits jobs, runs the worker pool and reports job status.
type Manager struct {
	cfg  Config
	repo *queue.Repository
	rt   *rtm.Runtime
	mux  *Mux
	log  Logger

	mu      sync.Mutex
	started bool
}

// NewManager creates a Manager. mux may be nil for producer-only use.
func NewManager(rdb redis.UniversalClient, cfg Config, mux *Mux) *Manager {
	cfg = cfg.withDefaults()
	if mux == nil {
		mux = NewMux()
	}
	mux.encoder = cfg.Encoder

	k := ikeys.For(cfg.Prefix)
	repo := queue.New(rdb, k, queue.WithInProgressTTL(cfg.InProgressAge))

	mode := claim.ModeReadThenWrite
	if cfg.AtomicClaim {
		mode = claim.ModeSetIfAbsent
	}
	coord := claim.New(rdb, k.ClaimLock, claim.WithTTL(cfg.ClaimLockTTL), claim.WithMode(mode))

	if cfg.SpawnerID == "" {
		cfg.SpawnerID = uuid.NewString()
	}
	if cfg.Period <= 0 {
		cfg.Period = rtm.PickPeriod()
	}
	var mx *metrics.Metrics
	if cfg.Registerer != nil {
		mx = metrics.New(cfg.Registerer, cfg.MetricsNamespace, cfg.SpawnerID)
	}

	rt := rtm.New(repo, coord, mux.execute, rtm.Config{
		Capacity:      cfg.Capacity,
		FinishedAge:   cfg.FinishedAge,
		FailedAge:     cfg.FailedAge,
		NoCallbackAge: cfg.NoCallbackAge,
		Period:        cfg.Period,
		MinJitter:     cfg.MinJitter,
		MaxJitter:     cfg.MaxJitter,
		SpawnerID:     cfg.SpawnerID,
		Logger:        rtLogger{Logger: cfg.Logger},
		Metrics:       mx,
	})
	return &Manager{cfg: cfg, repo: repo, rt: rt, mux: mux, log: cfg.Logger}
}

// Submit stores payload for action at the tail of queueName and returns the
// job id. The payload is encoded with the configured Encoder.
func (m *Manager) Submit(ctx context.Context, queueName, action string, payload any) (string, error) {
	if queueName == "" {
		return "", ErrEmptyQueue
	}
	if action == "" {
		return "", ErrEmptyAction
	}
	body, err := m.cfg.Encoder.Encode(payload)
	if err != nil {
		return "", fmt.Errorf("uniqm: encode payload: %w", err)
	}
	data, err := rtm.EncodeEnvelope(action, body)
	if err != nil {
		return "", fmt.Errorf("uniqm: %w", err)
	}
	e, err := m.repo.Enqueue(ctx, queueName, data)
	if err != nil {
		return "", err
	}
	m.log.Debugf("submitted: job=%s queue=%s action=%s", e.JobID, queueName, action)
	return e.JobID, nil
}

// Start launches periodic spawning. It is idempotent and non-blocking.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started {
		m.log.Warnf("manager already started; ignoring Start()")
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()
	m.log.Infof("starting manager: spawner=%s capacity=%d period=%s actions=%d",
		m.rt.SpawnerID(), m.rt.Capacity(), m.rt.Period(), len(m.mux.Actions()))
	m.rt.Start()
}

// Stop halts spawning and waits for running drains. Each drain finishes its
// current job; remaining entries stay queued for the next pool.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.log.Warnf("manager not started; ignoring Stop()")
		m.mu.Unlock()
		return
	}
	m.started = false
	m.mu.Unlock()
	m.log.Infof("stopping manager")
	m.rt.Stop()
}

// RunOnce runs a single spawn cycle and waits for the drains it started.
func (m *Manager) RunOnce(ctx context.Context) {
	m.rt.SpawnCycle(ctx)
	m.rt.Wait()
}

// GetStatus returns the status of jobID, or ErrJobNotFound when no record
// exists (not yet dequeued, unknown or expired).
func (m *Manager) GetStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	queueName, _, err := ParseJobID(jobID)
	if err != nil {
		return nil, err
	}
	rec, err := m.repo.GetJobStatus(ctx, jobID)
	if errors.Is(err, queue.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return jobStatusFromRecord(jobID, queueName, rec)
}

// QueueState is the claim state of a queue with pending or running work.
type QueueState string

const (
	// QueueNoLock marks a queue with pending entries and no drain.
	QueueNoLock QueueState = queue.NoLock
	// QueueLocked marks a queue being drained.
	QueueLocked QueueState = queue.Locked
)

// QueueStatuses returns the claim state of every known queue. Queues that are
// empty and idle are absent.
func (m *Manager) QueueStatuses(ctx context.Context) (map[string]QueueState, error) {
	raw, err := m.repo.QueueStatuses(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]QueueState, len(raw))
	for name, st := range raw {
		out[name] = QueueState(st)
	}
	return out, nil
}

// Pending returns the number of entries waiting in queueName.
func (m *Manager) Pending(ctx context.Context, queueName string) (int64, error) {
	return m.repo.Pending(ctx, queueName)
}

// Active returns the number of queues this process is draining.
func (m *Manager) Active() int { return m.rt.Active() }

// SpawnerID returns the id this process writes to the claim lock.
func (m *Manager) SpawnerID() string { return m.rt.SpawnerID() }

// Period returns the interval between spawn cycles.
func (m *Manager) Period() time.Duration { return m.rt.Period() }
