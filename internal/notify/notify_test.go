package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	events []WakeEvent
	err    error
}

func (r *recordingNotifier) NotifyQueued(_ context.Context, e WakeEvent) error {
	r.events = append(r.events, e)
	return r.err
}

func TestEventCodec(t *testing.T) {
	at := time.Date(2026, 1, 15, 10, 3, 0, 0, time.UTC)
	in := WakeEvent{JobID: "job-1", OwnerID: "owner-1", Reason: ReasonStaleReset, At: at}

	data, err := encodeEvent(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"job_id":"job-1","owner_id":"owner-1","reason":"stale_reset","at":"2026-01-15T10:03:00Z"}`, string(data))

	out, err := decodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeEvent_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "invalid json", data: `{not json`},
		{name: "missing job id", data: `{"owner_id":"o"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeEvent([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestPublish_SwallowsErrors(t *testing.T) {
	n := &recordingNotifier{err: errors.New("nats down")}

	assert.NotPanics(t, func() {
		Publish(context.Background(), n, "job-1", "owner-1", ReasonEnqueued)
	})
	require.Len(t, n.events, 1)
	assert.Equal(t, ReasonEnqueued, n.events[0].Reason)

	assert.NotPanics(t, func() {
		Publish(context.Background(), nil, "job-1", "owner-1", ReasonEnqueued)
	})
}

func TestNoop(t *testing.T) {
	var n Noop
	assert.NoError(t, n.NotifyQueued(context.Background(), WakeEvent{JobID: "x"}))

	ch, unsubscribe, err := n.Subscribe()
	require.NoError(t, err)
	unsubscribe()
	_, open := <-ch
	assert.False(t, open)
}
