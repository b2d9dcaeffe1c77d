package keys

// Package keys centralizes Redis key construction.
// It is kept in internal to avoid leaking key formats to public API.

import "strings"

// DefaultPrefix namespaces every key when no prefix is configured.
const DefaultPrefix = "uniqm"

// Keys holds the prefix-derived keys shared by every queue, and builds the
// per-queue and per-job ones.
type Keys struct {
	prefix string

	// QueueStatus is the hash of queue name -> NoLock/Locked.
	QueueStatus string
	// ClaimLock holds the id of the spawner currently reading QueueStatus.
	ClaimLock string

	jobStatus string
}

// For returns the key set for the provided prefix.
func For(prefix string) Keys {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Keys{
		prefix:      prefix,
		QueueStatus: prefix + ":queueStatus",
		ClaimLock:   prefix + ":queueReadingLock",
		jobStatus:   prefix + ":jobStatus:",
	}
}

// Prefix returns the namespace used by the key set.
func (k Keys) Prefix() string { return k.prefix }

// Queue returns the ZSET key indexing pending entries of q.
func (k Keys) Queue(q string) string { return k.prefix + ":" + q + ":queue" }

// Entry returns the string key holding the payload of one entry.
func (k Keys) Entry(q, score string) string { return k.prefix + ":" + q + ":" + score }

// JobStatusPrefix is the common prefix of every job status key.
func (k Keys) JobStatusPrefix() string { return k.jobStatus }

// JobStatus returns the status key for a job id ("<queue>:<score>").
func (k Keys) JobStatus(jobID string) string { return k.jobStatus + jobID }

// JobID derives the job id from an entry key by stripping the prefix.
// It returns an empty string for keys outside this namespace.
func (k Keys) JobID(entryKey string) string {
	id, ok := strings.CutPrefix(entryKey, k.prefix+":")
	if !ok {
		return ""
	}
	return id
}
