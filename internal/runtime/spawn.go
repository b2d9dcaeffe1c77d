package runtime

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/UniQw/uniqm-go/internal/metrics"
)

// SpawnCycle claims up to the free capacity of claimable queues and starts
// one drain per claimed queue. Only one cycle runs at a time per Runtime; a
// call made while another is in progress returns immediately.
func (rt *Runtime) SpawnCycle(ctx context.Context) {
	if !rt.busy.CompareAndSwap(false, true) {
		rt.m.RecordCycle(metrics.CycleSkippedBusy)
		rt.log.Debugf("spawn cycle skipped: previous cycle running spawner=%s", rt.cfg.SpawnerID)
		return
	}
	defer rt.busy.Store(false)
	rt.m.RecordCycle(rt.spawn(ctx))
}

func (rt *Runtime) spawn(ctx context.Context) string {
	free := rt.cfg.Capacity - rt.Active()
	if free <= 0 {
		rt.log.Debugf("capacity reached: active=%d capacity=%d", rt.Active(), rt.cfg.Capacity)
		return metrics.CycleNoCapacity
	}

	if err := sleep(ctx, rt.jitter()); err != nil {
		return metrics.CycleError
	}

	id := rt.cfg.SpawnerID
	ok, err := rt.coord.TryAcquire(ctx, id)
	if err != nil {
		rt.log.Warnf("claim lock failed: spawner=%s err=%v", id, err)
		return metrics.CycleError
	}
	if !ok {
		rt.log.Debugf("claim lock held elsewhere: spawner=%s", id)
		return metrics.CycleLockHeld
	}
	defer func() {
		if err := rt.coord.Release(context.WithoutCancel(ctx), id); err != nil {
			rt.log.Warnf("claim lock release failed: spawner=%s err=%v", id, err)
		}
	}()

	names, err := rt.repo.ListClaimableQueues(ctx)
	if err != nil {
		rt.log.Warnf("list claimable queues failed: err=%v", err)
		return metrics.CycleError
	}
	if len(names) == 0 {
		return metrics.CycleNoQueues
	}
	rand.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })

	claimed := 0
	for _, q := range names {
		if claimed >= free {
			break
		}
		won, err := rt.repo.ClaimQueue(ctx, q)
		if err != nil {
			rt.log.Warnf("claim failed: queue=%s err=%v", q, err)
			return metrics.CycleError
		}
		rt.m.RecordClaim(won)
		if !won {
			continue
		}
		claimed++
		rt.launch(q)
		rt.log.Infof("claimed queue=%s spawner=%s active=%d", q, id, rt.Active())
	}
	if claimed == 0 {
		return metrics.CycleNoQueues
	}
	return metrics.CycleClaimed
}

// jitter returns a random delay in [MinJitter, MaxJitter].
func (rt *Runtime) jitter() time.Duration {
	d := rt.cfg.MinJitter
	if span := rt.cfg.MaxJitter - rt.cfg.MinJitter; span > 0 {
		d += rand.N(span + 1)
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
