package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentlab-dev/agentlab/artifact"
	"github.com/agentlab-dev/agentlab/core"
	"github.com/agentlab-dev/agentlab/logging"
	"github.com/agentlab-dev/agentlab/memory"
	"github.com/agentlab-dev/agentlab/session"
)

func newRunContext(t *testing.T, emit chan core.Event) *core.RunContext {
	t.Helper()
	store := session.NewInMemoryStore()
	sess, err := store.Create("s-1")
	require.NoError(t, err)

	return core.NewRunContext(
		context.Background(), "s-1", "r-1",
		core.AgentInfo{Name: "worker", Type: "assistant"},
		core.NewUserContent("hello"), 10,
		emit, nil, sess, store,
		artifact.NewInMemoryStore(), memory.NewInMemoryStore(), logging.NoOpLogger{},
	)
}

func TestRunContext_StateDeltaLifecycle(t *testing.T) {
	rc := newRunContext(t, make(chan core.Event, 4))

	rc.SetState("step", 1)
	v, ok := rc.GetState("step")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// staged values shadow the session until committed
	_, ok = rc.Session.GetState("step")
	assert.False(t, ok)

	require.NoError(t, rc.CommitStateDelta())
	assert.Empty(t, rc.StateDelta)

	persisted, err := rc.SessionStore.Get("s-1")
	require.NoError(t, err)
	v, ok = persisted.GetState("step")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestRunContext_EmitEventMergesDeltas(t *testing.T) {
	emit := make(chan core.Event, 4)
	rc := newRunContext(t, emit)

	rc.SetState("answered", true)
	require.NoError(t, rc.SaveArtifact("notes.txt", []byte("text")))

	require.NoError(t, rc.EmitEvent(core.NewMessageEvent("worker", "done")))

	ev := <-emit
	assert.Equal(t, true, ev.Actions.StateDelta["answered"])
	assert.Equal(t, 1, ev.Actions.ArtifactDelta["notes.txt"])

	// buffers reset after emission
	assert.Empty(t, rc.StateDelta)
	assert.Empty(t, rc.Artifacts)
}

func TestRunContext_EmitEventCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := session.NewInMemoryStore()
	sess, err := store.Create("s-1")
	require.NoError(t, err)

	rc := core.NewRunContext(
		ctx, "s-1", "r-1", core.AgentInfo{Name: "worker"},
		core.NewUserContent("hi"), 10,
		make(chan core.Event), nil, sess, store, nil, nil, logging.NoOpLogger{},
	)
	cancel()

	assert.ErrorIs(t, rc.EmitEvent(core.NewMessageEvent("worker", "late")), context.Canceled)
}

func TestRunContext_ArtifactsAndMemory(t *testing.T) {
	rc := newRunContext(t, make(chan core.Event, 4))

	require.NoError(t, rc.SaveArtifact("a.txt", []byte("alpha")))
	data, err := rc.GetArtifact("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))

	ids, err := rc.ListArtifacts()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, ids)

	require.NoError(t, rc.StoreMemory("user lives in Utrecht", nil))
	results, err := rc.SearchMemory("Utrecht", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "user lives in Utrecht", results[0].Content)
}

func TestRunContext_CloneIsolatesBuffers(t *testing.T) {
	rc := newRunContext(t, make(chan core.Event, 4))
	rc.SetState("shared", 1)

	clone := rc.Clone()
	clone.SetState("cloned", 2)

	_, ok := rc.GetState("cloned")
	assert.False(t, ok)
	v, ok := clone.GetState("shared")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	branched := rc.WithBranch("left")
	assert.Equal(t, "left", branched.Branch)
	assert.Empty(t, rc.Branch)
}

func TestRunContext_WaitForResume(t *testing.T) {
	resume := make(chan struct{}, 1)
	store := session.NewInMemoryStore()
	sess, err := store.Create("s-1")
	require.NoError(t, err)

	rc := core.NewRunContext(
		context.Background(), "s-1", "r-1", core.AgentInfo{Name: "worker"},
		core.NewUserContent("hi"), 10,
		make(chan core.Event, 1), resume, sess, store, nil, nil, logging.NoOpLogger{},
	)

	resume <- struct{}{}
	assert.NoError(t, rc.WaitForResume())

	// nil resume channel means no pause is expected
	rc.Resume = nil
	assert.NoError(t, rc.WaitForResume())
}

func TestToolContext_StateAndActions(t *testing.T) {
	rc := newRunContext(t, make(chan core.Event, 4))
	tc := core.NewToolContext(rc, "fc-7")

	assert.Equal(t, "fc-7", tc.FunctionCallID())
	assert.Equal(t, "worker", tc.AgentName())
	assert.Equal(t, "s-1", tc.SessionID())
	assert.Equal(t, "r-1", tc.RunID())

	tc.SetState("mood", "good")
	v, ok := tc.GetState("mood")
	require.True(t, ok)
	assert.Equal(t, "good", v)

	tc.TransferToAgent("closer")
	tc.Escalate()
	require.NotNil(t, tc.Actions().TransferToAgent)
	assert.Equal(t, "closer", *tc.Actions().TransferToAgent)
	assert.True(t, *tc.Actions().Escalate)
}
