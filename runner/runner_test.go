package runner

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/agentlab-dev/agentlab/agent"
	"github.com/agentlab-dev/agentlab/core"
	"github.com/agentlab-dev/agentlab/model"
	"github.com/agentlab-dev/agentlab/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, eventsCh <-chan core.Event, errorsCh <-chan error) []core.Event {
	t.Helper()
	var events []core.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-eventsCh:
			if !ok {
				if err, open := <-errorsCh; open && err != nil {
					t.Fatalf("run error: %v", err)
				}
				return events
			}
			events = append(events, ev)
		case err, ok := <-errorsCh:
			if ok && err != nil {
				t.Fatalf("run error: %v", err)
			}
		case <-timeout:
			t.Fatalf("timed out draining events")
		}
	}
}

func TestRunner_Run_CompletesAndPersists(t *testing.T) {
	llm := model.NewMockModel("m", "mock")
	llm.AddResponse("hello", "Hi there!")

	assistant := agent.NewAssistantAgent("Helper", llm, func(o *agent.AssistantAgentOptions) {
		o.EnableStreaming = false
		o.AllowTransfer = false
	})

	store := session.NewInMemoryStore()
	r := New(assistant, func(o *Options) { o.SessionStore = store })

	runID, eventsCh, errorsCh, err := r.Run(context.Background(), "sess-1", core.NewUserContent("hello"))
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	events := drain(t, eventsCh, errorsCh)
	require.NotEmpty(t, events)

	final := events[len(events)-1]
	assert.Equal(t, "Hi there!", final.Text())
	assert.True(t, final.IsFinalResponse())

	sess, err := store.Get("sess-1")
	require.NoError(t, err)
	history := sess.GetConversationHistory()
	require.Len(t, history, 2) // user turn + assistant reply
	assert.Equal(t, "hello", history[0].Text())
	assert.Equal(t, "Hi there!", history[1].Text())
}

func TestRunner_Run_Streaming(t *testing.T) {
	llm := model.NewMockModel("m", "mock")
	llm.AddResponse("hello", "Hey")

	assistant := agent.NewAssistantAgent("Helper", llm, func(o *agent.AssistantAgentOptions) {
		o.EnableStreaming = true
		o.AllowTransfer = false
	})

	r := New(assistant)

	_, eventsCh, errorsCh, err := r.Run(context.Background(), "sess-1", core.NewUserContent("hello"))
	require.NoError(t, err)

	events := drain(t, eventsCh, errorsCh)

	partials := 0
	for _, ev := range events {
		if ev.IsPartial() {
			partials++
		}
	}
	assert.Greater(t, partials, 0, "expected streaming partial events")
	assert.True(t, events[len(events)-1].IsFinalResponse())
}

func TestRunner_Cancel_UnknownRun(t *testing.T) {
	r := New(agent.NewSequentialAgent("noop"))
	assert.Error(t, r.Cancel("missing"))
}

// failingAppendStore persists the user turn, then rejects every later append.
type failingAppendStore struct {
	core.SessionStore
	appends int
}

func (s *failingAppendStore) AppendEvent(sessionID string, ev core.Event) error {
	s.appends++
	if s.appends > 1 {
		return fmt.Errorf("session storage unavailable")
	}
	return s.SessionStore.AppendEvent(sessionID, ev)
}

// faultyAgent emits one reply and then fails without waiting for the event
// loop, so its error lands after the loop has already shut down.
type faultyAgent struct {
	agent.BaseAgent
}

func (a *faultyAgent) Run(runCtx *core.RunContext) error {
	ev := core.NewMessageEvent(a.Name(), "partial work")
	select {
	case runCtx.Emit <- ev:
	case <-runCtx.Done():
		return runCtx.Err()
	}
	time.Sleep(10 * time.Millisecond)
	return fmt.Errorf("agent blew up")
}

func TestRunner_PersistenceErrorThenAgentError(t *testing.T) {
	store := &failingAppendStore{SessionStore: session.NewInMemoryStore()}
	r := New(&faultyAgent{BaseAgent: agent.NewBaseAgent("faulty")}, func(o *Options) {
		o.SessionStore = store
	})

	_, eventsCh, errorsCh, err := r.Run(context.Background(), "sess-1", core.NewUserContent("go"))
	require.NoError(t, err)

	var errs []error
	timeout := time.After(5 * time.Second)
	for eventsCh != nil || errorsCh != nil {
		select {
		case _, ok := <-eventsCh:
			if !ok {
				eventsCh = nil
			}
		case e, ok := <-errorsCh:
			if !ok {
				errorsCh = nil
				continue
			}
			if e != nil {
				errs = append(errs, e)
			}
		case <-timeout:
			t.Fatal("run did not shut down")
		}
	}

	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Error(), "session storage unavailable")
}
