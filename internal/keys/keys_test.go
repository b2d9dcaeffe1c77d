package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys_Builders(t *testing.T) {
	k := For("app")
	assert.Equal(t, "app", k.Prefix())
	assert.Equal(t, "app:queueStatus", k.QueueStatus)
	assert.Equal(t, "app:queueReadingLock", k.ClaimLock)
	assert.Equal(t, "app:email:queue", k.Queue("email"))
	assert.Equal(t, "app:email:1700000000000000001", k.Entry("email", "1700000000000000001"))
	assert.Equal(t, "app:jobStatus:email:42", k.JobStatus("email:42"))
	assert.Equal(t, "app:jobStatus:", k.JobStatusPrefix())
}

func TestKeys_DefaultPrefix(t *testing.T) {
	k := For("")
	assert.Equal(t, DefaultPrefix, k.Prefix())
	assert.Equal(t, "uniqm:queueStatus", k.QueueStatus)
}

func TestKeys_JobID(t *testing.T) {
	k := For("app")
	assert.Equal(t, "email:42", k.JobID(k.Entry("email", "42")))
	// queue names may contain the separator
	assert.Equal(t, "a:b:42", k.JobID(k.Entry("a:b", "42")))
	assert.Equal(t, "", k.JobID("other:email:42"))
}
