package uniqm

import (
	"encoding/json"

	"github.com/UniQw/uniqm-go/internal/queue"
	"github.com/bytedance/sonic"
)

// JobState is the lifecycle state recorded for a dequeued job.
type JobState string

const (
	// StateInProgress is written when a worker dequeues the job.
	StateInProgress JobState = queue.StatusInProgress
	// StateFinished means the callback returned without error.
	StateFinished JobState = queue.StatusFinished
	// StateFailed means the callback returned an error or panicked.
	StateFailed JobState = queue.StatusFailed
	// StateNoCallbackFound means no callback was registered for the action.
	StateNoCallbackFound JobState = queue.StatusNoCallbackFound
)

// AllJobStates lists every valid job state in lifecycle order.
var AllJobStates = []JobState{StateInProgress, StateFinished, StateFailed, StateNoCallbackFound}

// String returns the raw string value of the state.
func (s JobState) String() string { return string(s) }

// Terminal reports whether the state is final.
func (s JobState) Terminal() bool { return s != StateInProgress }

// ParseJobState converts a string into a JobState, returning an error for unknown values.
func ParseJobState(s string) (JobState, error) {
	switch JobState(s) {
	case StateInProgress, StateFinished, StateFailed, StateNoCallbackFound:
		return JobState(s), nil
	default:
		return "", ErrUnknownJobState
	}
}

// JobStatus is the status of one job as returned by GetStatus.
type JobStatus struct {
	ID    string
	Queue string
	State JobState
	// Result is the JSON value returned by the callback (Finished only).
	Result json.RawMessage
	// Error is the failure message (Failed only).
	Error string
}

// Decode unmarshals the callback result into v.
func (s *JobStatus) Decode(v any) error {
	if len(s.Result) == 0 {
		return nil
	}
	return sonic.Unmarshal(s.Result, v)
}

func jobStatusFromRecord(id, queueName string, rec *queue.Record) (*JobStatus, error) {
	st, err := ParseJobState(rec.Status)
	if err != nil {
		return nil, err
	}
	js := &JobStatus{ID: id, Queue: queueName, State: st}
	switch st {
	case StateFinished:
		js.Result = rec.Result
	case StateFailed:
		if len(rec.Result) > 0 {
			if err := sonic.Unmarshal(rec.Result, &js.Error); err != nil {
				js.Error = string(rec.Result)
			}
		}
	}
	return js, nil
}
