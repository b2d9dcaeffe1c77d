package uniqm

import "errors"

// ErrJobNotFound is returned when a job has no status record: it was never
// dequeued, its id is unknown, or its record expired.
var ErrJobNotFound = errors.New("uniqm: job not found")

// ErrInvalidJobID is returned when a job id is not of the form "<queue>:<score>".
var ErrInvalidJobID = errors.New("uniqm: invalid job id")

// ErrEmptyQueue is returned when Submit is called without a queue name.
var ErrEmptyQueue = errors.New("uniqm: empty queue name")

// ErrEmptyAction is returned when Submit is called without an action name.
var ErrEmptyAction = errors.New("uniqm: empty action name")

// ErrUnknownJobState is returned when a status record holds an unknown state.
var ErrUnknownJobState = errors.New("uniqm: unknown job state")
