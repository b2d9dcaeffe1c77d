package uniqm

import (
	"encoding/json"
	"testing"

	"github.com/UniQw/uniqm-go/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobState(t *testing.T) {
	for _, s := range AllJobStates {
		got, err := ParseJobState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseJobState("Running")
	require.ErrorIs(t, err, ErrUnknownJobState)
}

func TestJobState_Terminal(t *testing.T) {
	assert.False(t, StateInProgress.Terminal())
	assert.True(t, StateFinished.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateNoCallbackFound.Terminal())
}

func TestJobStatusFromRecord(t *testing.T) {
	js, err := jobStatusFromRecord("q:1", "q", &queue.Record{Status: "Failed", Result: json.RawMessage(`"boom"`)})
	require.NoError(t, err)
	assert.Equal(t, StateFailed, js.State)
	assert.Equal(t, "boom", js.Error)
	assert.Empty(t, js.Result)

	js, err = jobStatusFromRecord("q:2", "q", &queue.Record{Status: "Finished", Result: json.RawMessage(`[1,2]`)})
	require.NoError(t, err)
	var out []int
	require.NoError(t, js.Decode(&out))
	assert.Equal(t, []int{1, 2}, out)

	js, err = jobStatusFromRecord("q:3", "q", &queue.Record{Status: "InProgress"})
	require.NoError(t, err)
	var none map[string]any
	require.NoError(t, js.Decode(&none))
	assert.Nil(t, none)
}
