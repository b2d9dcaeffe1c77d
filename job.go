package uniqm

import (
	"strconv"
	"strings"
)

// ParseJobID splits a job id into its queue name and score. Queue names may
// contain ':'; the score follows the last one.
func ParseJobID(id string) (queueName string, score int64, err error) {
	i := strings.LastIndexByte(id, ':')
	if i <= 0 || i == len(id)-1 {
		return "", 0, ErrInvalidJobID
	}
	score, err = strconv.ParseInt(id[i+1:], 10, 64)
	if err != nil || score < 0 {
		return "", 0, ErrInvalidJobID
	}
	return id[:i], score, nil
}

// FormatJobID is the inverse of ParseJobID.
func FormatJobID(queueName string, score int64) string {
	return queueName + ":" + strconv.FormatInt(score, 10)
}
