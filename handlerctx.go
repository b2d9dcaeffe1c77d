package uniqm

import (
	"context"

	"github.com/UniQw/uniqm-go/internal/hctx"
)

// JobInfo identifies the job a callback is running.
type JobInfo struct {
	ID     string
	Queue  string
	Action string
}

// JobFromContext returns the job being processed. ok is false when ctx was
// not provided by the worker pool.
func JobFromContext(ctx context.Context) (JobInfo, bool) {
	st, ok := hctx.From(ctx)
	if !ok || st == nil {
		return JobInfo{}, false
	}
	return JobInfo{ID: st.JobID, Queue: st.Queue, Action: st.Action}, true
}
