package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowmon/pkg/schema"
)

func newTestEventLog(t *testing.T) (*EventLog, *LibSQLStore) {
	t.Helper()
	s := newTestStore(t)
	return NewEventLog(s), s
}

func TestEventLog_RecordStatus_MonotonicSequence(t *testing.T) {
	el, s := newTestEventLog(t)
	ctx := context.Background()
	wf := seedWorkflow(t, s)

	for i := 0; i < 5; i++ {
		e, err := el.RecordStatus(ctx, wf.ID, "stage-1", schema.NodeStatusInProgress, "")
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), e.Sequence, "sequence should be monotonic")
		assert.Equal(t, schema.EventNodeStarted, e.Type)
	}
}

func TestEventLog_RecordStatus_UpdatesNodeState(t *testing.T) {
	el, s := newTestEventLog(t)
	ctx := context.Background()
	wf := seedWorkflow(t, s)

	_, err := el.RecordStatus(ctx, wf.ID, "substage-10", schema.NodeStatusInProgress, "")
	require.NoError(t, err)
	_, err = el.RecordStatus(ctx, wf.ID, "substage-10", schema.NodeStatusCompleted, "ok")
	require.NoError(t, err)

	ns, err := s.GetNodeState(ctx, wf.ID, "substage-10")
	require.NoError(t, err)
	assert.Equal(t, schema.NodeStatusCompleted, ns.Status)
	assert.Equal(t, "ok", ns.Message)
	assert.NotNil(t, ns.StartedAt)
	assert.NotNil(t, ns.CompletedAt)

	events, err := s.GetEvents(ctx, wf.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, schema.EventNodeCompleted, events[1].Type)
	assert.JSONEq(t, `{"status":"completed","message":"ok"}`, string(events[1].Payload))

	since, err := s.GetEvents(ctx, wf.ID, 1)
	require.NoError(t, err)
	assert.Len(t, since, 1)
}

func TestEventLog_ReplayMatchesMaterializedState(t *testing.T) {
	el, s := newTestEventLog(t)
	ctx := context.Background()
	wf := seedWorkflow(t, s)

	steps := []struct {
		node   string
		status schema.NodeStatus
	}{
		{"stage-1", schema.NodeStatusInProgress},
		{"substage-10", schema.NodeStatusInProgress},
		{"substage-10", schema.NodeStatusCompleted},
		{"substage-11", schema.NodeStatusInProgress},
		{"substage-11", schema.NodeStatusFailed},
		{"stage-1", schema.NodeStatusFailed},
		{"substage-11", schema.NodeStatusPending},
	}
	for _, st := range steps {
		_, err := el.RecordStatus(ctx, wf.ID, st.node, st.status, "")
		require.NoError(t, err)
	}

	replayed, err := el.ReplayEvents(ctx, wf.ID)
	require.NoError(t, err)
	materialized, err := s.ListNodeStates(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, replayed, len(materialized))
	for _, ns := range materialized {
		require.Contains(t, replayed, ns.NodeID)
		assert.Equal(t, ns.Status, replayed[ns.NodeID].Status, ns.NodeID)
	}
	assert.Equal(t, schema.NodeStatusPending, replayed["substage-11"].Status)
	assert.Nil(t, replayed["substage-11"].CompletedAt)
}

func TestEventLog_ReplayEmpty(t *testing.T) {
	el, s := newTestEventLog(t)
	wf := seedWorkflow(t, s)

	states, err := el.ReplayEvents(context.Background(), wf.ID)
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestEventLog_ReplayDetectsGap(t *testing.T) {
	el, s := newTestEventLog(t)
	ctx := context.Background()
	wf := seedWorkflow(t, s)

	for i := 0; i < 3; i++ {
		_, err := el.RecordStatus(ctx, wf.ID, "stage-2", schema.NodeStatusInProgress, "")
		require.NoError(t, err)
	}
	_, err := s.DB().ExecContext(ctx, `DELETE FROM events WHERE workflow_id = ? AND sequence = 2`, wf.ID)
	require.NoError(t, err)

	_, err = el.ReplayEvents(ctx, wf.ID)
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeStore))
}

func TestEventLog_ConcurrentRecord(t *testing.T) {
	el, s := newTestEventLog(t)
	ctx := context.Background()
	wf := seedWorkflow(t, s)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := el.RecordStatus(ctx, wf.ID, "stage-1", schema.NodeStatusInProgress, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	events, err := s.GetEvents(ctx, wf.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, n)
	for i, e := range events {
		assert.Equal(t, int64(i+1), e.Sequence)
	}
}

func TestStatusEventType(t *testing.T) {
	assert.Equal(t, schema.EventNodeStarted, schema.StatusEventType(schema.NodeStatusInProgress))
	assert.Equal(t, schema.EventNodeCompleted, schema.StatusEventType(schema.NodeStatusCompleted))
	assert.Equal(t, schema.EventNodeFailed, schema.StatusEventType(schema.NodeStatusFailed))
	assert.Equal(t, schema.EventNodeReset, schema.StatusEventType(schema.NodeStatusPending))
}
