package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/UniQw/uniqm-go/internal/keys"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// Queue status values stored in the status hash.
const (
	NoLock = "NoLock"
	Locked = "Locked"
)

// Job status values stored in job status records.
const (
	StatusInProgress      = "InProgress"
	StatusFinished        = "Finished"
	StatusFailed          = "Failed"
	StatusNoCallbackFound = "NoCallbackFound"
)

// DefaultInProgressTTL is how long an InProgress record lives if the job
// never reaches a terminal state.
const DefaultInProgressTTL = time.Hour

// ErrNotFound is returned when a job status record does not exist (never
// written or expired).
var ErrNotFound = errors.New("job status not found")

// Entry is one queued work item.
type Entry struct {
	Queue string
	Score int64
	// Key is the storage key of the payload, also the ZSET member.
	Key   string
	JobID string
	Data  []byte
}

// Record is the JSON document stored under a job status key.
type Record struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Repository implements queue and job semantics on top of Redis.
type Repository struct {
	rdb           redis.UniversalClient
	keys          keys.Keys
	clock         *Clock
	inProgressTTL time.Duration
	inProgressRaw string
}

// Option configures a Repository.
type Option func(*Repository)

// WithInProgressTTL overrides the TTL of InProgress records.
func WithInProgressTTL(d time.Duration) Option {
	return func(r *Repository) { r.inProgressTTL = d }
}

// WithClock replaces the score source.
func WithClock(c *Clock) Option {
	return func(r *Repository) { r.clock = c }
}

// New creates a Repository using the given key set.
func New(rdb redis.UniversalClient, k keys.Keys, opts ...Option) *Repository {
	r := &Repository{
		rdb:           rdb,
		keys:          k,
		clock:         NewClock(),
		inProgressTTL: DefaultInProgressTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.inProgressRaw = string(encodeJSON(Record{Status: StatusInProgress}))
	return r
}

// Keys exposes the key set used by the repository.
func (r *Repository) Keys() keys.Keys { return r.keys }

// Enqueue stores data as a new entry of queue and indexes it. The queue is
// marked NoLock only when its ZSET did not exist before the insert and no
// status is recorded; a queue being drained stays Locked.
func (r *Repository) Enqueue(ctx context.Context, queue string, data []byte) (Entry, error) {
	score := r.clock.Next()
	s := strconv.FormatInt(score, 10)
	key := r.keys.Entry(queue, s)

	if err := r.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return Entry{}, fmt.Errorf("uniqm/queue: enqueue %s: %w", queue, err)
	}
	err := indexScript.Run(ctx, r.rdb,
		[]string{r.keys.Queue(queue), r.keys.QueueStatus},
		s, key, queue, NoLock,
	).Err()
	if err != nil {
		// the payload is unreachable without its index entry
		_ = r.rdb.Del(ctx, key).Err()
		return Entry{}, fmt.Errorf("uniqm/queue: index %s: %w", queue, err)
	}
	return Entry{Queue: queue, Score: score, Key: key, JobID: r.keys.JobID(key), Data: data}, nil
}

// Dequeue pops the oldest entry of queue and marks its job InProgress.
// It returns nil, nil when the queue is missing or empty.
func (r *Repository) Dequeue(ctx context.Context, queue string) (*Entry, error) {
	ttl := int64(r.inProgressTTL / time.Second)
	res, err := dequeueScript.Run(ctx, r.rdb,
		[]string{r.keys.Queue(queue)},
		r.keys.Prefix()+":", r.keys.JobStatusPrefix(), r.inProgressRaw, ttl,
	).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("uniqm/queue: dequeue %s: %w", queue, err)
	}
	if res == nil {
		return nil, nil
	}
	parts, ok := res.([]any)
	if !ok || len(parts) != 2 {
		return nil, fmt.Errorf("uniqm/queue: dequeue %s: unexpected reply %T", queue, res)
	}
	key, _ := parts[0].(string)
	data, _ := parts[1].(string)

	e := &Entry{Queue: queue, Key: key, JobID: r.keys.JobID(key), Data: []byte(data)}
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		e.Score, _ = strconv.ParseInt(key[i+1:], 10, 64)
	}
	return e, nil
}

// SetQueueStatus writes the status field of queue.
func (r *Repository) SetQueueStatus(ctx context.Context, queue, state string) error {
	if err := r.rdb.HSet(ctx, r.keys.QueueStatus, queue, state).Err(); err != nil {
		return fmt.Errorf("uniqm/queue: set status %s: %w", queue, err)
	}
	return nil
}

// ClearQueueStatus deletes the status field of queue.
func (r *Repository) ClearQueueStatus(ctx context.Context, queue string) error {
	if err := r.rdb.HDel(ctx, r.keys.QueueStatus, queue).Err(); err != nil {
		return fmt.Errorf("uniqm/queue: clear status %s: %w", queue, err)
	}
	return nil
}

// QueueStatus reads the status field of queue. ok is false when absent.
func (r *Repository) QueueStatus(ctx context.Context, queue string) (state string, ok bool, err error) {
	state, err = r.rdb.HGet(ctx, r.keys.QueueStatus, queue).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("uniqm/queue: get status %s: %w", queue, err)
	}
	return state, true, nil
}

// QueueStatuses returns the whole status hash.
func (r *Repository) QueueStatuses(ctx context.Context) (map[string]string, error) {
	m, err := r.rdb.HGetAll(ctx, r.keys.QueueStatus).Result()
	if err != nil {
		return nil, fmt.Errorf("uniqm/queue: list statuses: %w", err)
	}
	return m, nil
}

// ListClaimableQueues returns the queues whose status is NoLock, in no
// particular order.
func (r *Repository) ListClaimableQueues(ctx context.Context) ([]string, error) {
	m, err := r.QueueStatuses(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(m))
	for name, state := range m {
		if state == NoLock {
			out = append(out, name)
		}
	}
	return out, nil
}

// ClaimQueue moves queue from NoLock to Locked. It reports false when the
// queue is no longer NoLock (claimed elsewhere or released).
func (r *Repository) ClaimQueue(ctx context.Context, queue string) (bool, error) {
	n, err := claimScript.Run(ctx, r.rdb, []string{r.keys.QueueStatus}, queue, NoLock, Locked).Int64()
	if err != nil {
		return false, fmt.Errorf("uniqm/queue: claim %s: %w", queue, err)
	}
	return n == 1, nil
}

// ReleaseQueue ends a drain of queue. The status record is removed when the
// queue is empty, or reset to NoLock so the queue is claimable again.
func (r *Repository) ReleaseQueue(ctx context.Context, queue string) (requeued bool, err error) {
	n, err := releaseScript.Run(ctx, r.rdb,
		[]string{r.keys.QueueStatus, r.keys.Queue(queue)},
		queue, NoLock,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("uniqm/queue: release %s: %w", queue, err)
	}
	return n == 1, nil
}

// Pending returns the number of entries waiting in queue.
func (r *Repository) Pending(ctx context.Context, queue string) (int64, error) {
	n, err := r.rdb.ZCard(ctx, r.keys.Queue(queue)).Result()
	if err != nil {
		return 0, fmt.Errorf("uniqm/queue: pending %s: %w", queue, err)
	}
	return n, nil
}

// SetJobStatus writes the status record of jobID. A non-positive ttl keeps
// the record until overwritten.
func (r *Repository) SetJobStatus(ctx context.Context, jobID string, rec Record, ttl time.Duration) error {
	if ttl < 0 {
		// go-redis reads -1 as KEEPTTL
		ttl = 0
	}
	if err := r.rdb.Set(ctx, r.keys.JobStatus(jobID), encodeJSON(rec), ttl).Err(); err != nil {
		return fmt.Errorf("uniqm/queue: set job status %s: %w", jobID, err)
	}
	return nil
}

// GetJobStatus reads the status record of jobID, or ErrNotFound.
func (r *Repository) GetJobStatus(ctx context.Context, jobID string) (*Record, error) {
	raw, err := r.rdb.Get(ctx, r.keys.JobStatus(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("uniqm/queue: get job status %s: %w", jobID, err)
	}
	var rec Record
	if err := sonic.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("uniqm/queue: decode job status %s: %w", jobID, err)
	}
	return &rec, nil
}

// encodeJSON encodes value using stdlib json.Marshal for lower latency in encoding.
func encodeJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
