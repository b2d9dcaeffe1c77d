package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/UniQw/uniqm-go/internal/hctx"
	"github.com/UniQw/uniqm-go/internal/queue"
)

// releaseTimeout bounds the store calls made after the runtime is cancelled.
const releaseTimeout = 5 * time.Second

// launch counts a claimed queue as active and drains it in a supervised
// goroutine. The completion step runs exactly once per launch.
func (rt *Runtime) launch(name string) {
	rt.active.Add(1)
	rt.m.DrainStarted()
	ctx := rt.baseContext()

	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		err := rt.supervise(ctx, name)
		rt.finish(ctx, name, err)
	}()
}

func (rt *Runtime) supervise(ctx context.Context, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("drain panic: %v", r)
		}
	}()
	return rt.drainQueue(ctx, name)
}

// finish releases the queue and frees the slot.
func (rt *Runtime) finish(ctx context.Context, name string, err error) {
	if err != nil {
		rt.log.Errorf("drain aborted: queue=%s err=%v", name, err)
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	requeued, rerr := rt.repo.ReleaseQueue(rctx, name)
	if rerr != nil {
		rt.log.Errorf("release failed: queue=%s err=%v", name, rerr)
	}
	rt.active.Add(-1)
	rt.m.DrainFinished(err != nil)
	rt.log.Infof("drain finished: queue=%s requeued=%t active=%d", name, requeued, rt.Active())
}

// drainQueue processes entries of name until it is empty or the runtime is
// stopping. Only store errors end it early.
func (rt *Runtime) drainQueue(ctx context.Context, name string) error {
	// a popped entry must be processed, so store calls ignore cancellation
	jobCtx := context.WithoutCancel(ctx)
	for {
		if ctx.Err() != nil {
			return nil
		}
		e, err := rt.repo.Dequeue(jobCtx, name)
		if err != nil {
			return err
		}
		if e == nil {
			return nil
		}
		if err := rt.process(jobCtx, e); err != nil {
			return err
		}
	}
}

// process runs one job and records its terminal status.
func (rt *Runtime) process(ctx context.Context, e *queue.Entry) error {
	env, err := DecodeEnvelope(e.Data)
	if err != nil {
		rt.log.Warnf("bad envelope: job=%s queue=%s err=%v", e.JobID, e.Queue, err)
		return rt.record(ctx, e, "", queue.StatusFailed, errorResult(err), rt.cfg.FailedAge, 0)
	}

	jctx := hctx.WithState(ctx, hctx.New(e.JobID, e.Queue, env.ActionName))
	start := time.Now()
	res, err := rt.call(jctx, env)
	took := time.Since(start)

	switch {
	case errors.Is(err, ErrNoHandler):
		rt.log.Warnf("no callback: job=%s queue=%s action=%s", e.JobID, e.Queue, env.ActionName)
		return rt.record(ctx, e, env.ActionName, queue.StatusNoCallbackFound, nil, rt.cfg.NoCallbackAge, took)
	case err != nil:
		rt.log.Warnf("callback error: job=%s queue=%s action=%s err=%v", e.JobID, e.Queue, env.ActionName, err)
		return rt.record(ctx, e, env.ActionName, queue.StatusFailed, errorResult(err), rt.cfg.FailedAge, took)
	default:
		return rt.record(ctx, e, env.ActionName, queue.StatusFinished, res, rt.cfg.FinishedAge, took)
	}
}

func (rt *Runtime) call(ctx context.Context, env Envelope) (res []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return rt.exec(ctx, env.ActionName, env.Payload)
}

func (rt *Runtime) record(ctx context.Context, e *queue.Entry, action, status string, result []byte, ttl, took time.Duration) error {
	rec := queue.Record{Status: status, Result: result}
	if err := rt.repo.SetJobStatus(ctx, e.JobID, rec, ttl); err != nil {
		return err
	}
	rt.m.RecordJob(status, took)
	rt.log.Debugf("processed: job=%s queue=%s action=%s status=%s took=%s", e.JobID, e.Queue, action, status, took)
	return nil
}

// errorResult stores the error message as a JSON string.
func errorResult(err error) []byte {
	b, _ := json.Marshal(err.Error())
	return b
}
