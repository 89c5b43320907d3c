package groupchat

import (
	"context"
	"testing"

	"github.com/agentlab-dev/agentlab/agent"
	"github.com/agentlab-dev/agentlab/core"
	"github.com/agentlab-dev/agentlab/logging"
	"github.com/agentlab-dev/agentlab/model"
	"github.com/agentlab-dev/agentlab/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// escalatingAgent immediately ends the conversation.
type escalatingAgent struct {
	agent.BaseAgent
}

func newEscalatingAgent(name string) *escalatingAgent {
	return &escalatingAgent{BaseAgent: agent.NewBaseAgent(name)}
}

func (a *escalatingAgent) Run(runCtx *core.RunContext) error {
	escalate := true
	ev := core.NewEvent(runCtx.RunID, a.Name())
	ev.Actions.Escalate = &escalate

	select {
	case runCtx.Emit <- ev:
	case <-runCtx.Context.Done():
		return runCtx.Context.Err()
	}
	return runCtx.WaitForResume()
}

func newManagerRunContext(emit chan core.Event, message string) *core.RunContext {
	sessStore := session.NewInMemoryStore()
	sess, _ := sessStore.Create("chat-session")
	return core.NewRunContext(
		context.Background(), "chat-session", "chat-run",
		core.AgentInfo{Name: "manager", Type: "groupchat"},
		core.NewUserContent(message), 100, emit, nil, sess, sessStore, nil, nil, logging.NoOpLogger{},
	)
}

func runManager(t *testing.T, m *Manager, message string) []core.Event {
	t.Helper()
	emit := make(chan core.Event, 256)
	runCtx := newManagerRunContext(emit, message)
	require.NoError(t, m.Run(runCtx))
	close(emit)
	var events []core.Event
	for ev := range emit {
		events = append(events, ev)
	}
	return events
}

func speakersOf(chat *GroupChat) []string {
	var speakers []string
	for _, ev := range chat.Messages() {
		speakers = append(speakers, ev.Author)
	}
	return speakers
}

func TestManager_ConditionalPipeline_Negative(t *testing.T) {
	chat, route, _ := newSupportPipeline("The sentiment is negative.")

	m, err := NewManager("support-chat", chat, func(o *ManagerOptions) {
		o.Selector = route
		o.Initiator = chat.AgentByName("user_proxy")
	})
	require.NoError(t, err)

	runManager(t, m, "The delivery was late and the box was damaged.")

	// user message + sentiment + topic + summary
	assert.Equal(t, []string{"user_proxy", "sentiment", "topic", "summarizer"}, speakersOf(chat))
}

func TestManager_ConditionalPipeline_PositiveSkipsTopic(t *testing.T) {
	chat, route, _ := newSupportPipeline("The sentiment is positive.")

	m, err := NewManager("support-chat", chat, func(o *ManagerOptions) {
		o.Selector = route
		o.Initiator = chat.AgentByName("user_proxy")
	})
	require.NoError(t, err)

	runManager(t, m, "Everything arrived on time, thanks!")

	assert.Equal(t, []string{"user_proxy", "sentiment", "summarizer"}, speakersOf(chat))
}

func TestManager_HierarchicalRouting(t *testing.T) {
	userProxy := newScriptedAgent("user_proxy", "question")
	tech := newScriptedAgent("tech_specialist", "It is a laptop issue.")
	car := newScriptedAgent("car_specialist", "It is an engine issue.")
	topic := newScriptedAgent("topic_analyzer", "Topic: overheating")
	summarizer := newScriptedAgent("summarizer", "Summary.")
	tech.SetDescription("Handles technology questions.")
	car.SetDescription("Handles car questions.")

	chat, err := New([]core.Agent{userProxy, tech, car, topic, summarizer})
	require.NoError(t, err)

	route := SelectorFunc(func(_ context.Context, last core.Agent, chat *GroupChat) (core.Agent, error) {
		switch {
		case last == nil || last.Name() == "user_proxy":
			return Auto, nil // let the model pick the right specialist
		case last.Name() == "tech_specialist" || last.Name() == "car_specialist":
			return chat.AgentByName("topic_analyzer"), nil
		case last.Name() == "topic_analyzer":
			return chat.AgentByName("summarizer"), nil
		default:
			return nil, nil
		}
	})

	selectionModel := model.NewMockModel("sel", "mock")
	selectionModel.AddSequence("tech_specialist")

	m, err := NewManager("hier-chat", chat, func(o *ManagerOptions) {
		o.Selector = route
		o.SelectionModel = selectionModel
		o.Initiator = userProxy
	})
	require.NoError(t, err)

	runManager(t, m, "My laptop keeps overheating.")

	assert.Equal(t, []string{"user_proxy", "tech_specialist", "topic_analyzer", "summarizer"}, speakersOf(chat))
}

func TestManager_AutoWithoutSelectionModel(t *testing.T) {
	chat, _, _ := newSupportPipeline("x")
	m, err := NewManager("chat", chat, func(o *ManagerOptions) {
		o.Selector = SelectorFunc(func(context.Context, core.Agent, *GroupChat) (core.Agent, error) { return Auto, nil })
	})
	require.NoError(t, err)

	emit := make(chan core.Event, 16)
	err = m.Run(newManagerRunContext(emit, "hi"))
	assert.Error(t, err)
}

func TestManager_RoundRobinTermination(t *testing.T) {
	a := newScriptedAgent("a", "working", "still working")
	b := newScriptedAgent("b", "done. TERMINATE")
	chat, err := New([]core.Agent{a, b}, func(o *Options) { o.MaxRounds = 10 })
	require.NoError(t, err)

	m, err := NewManager("rr-chat", chat)
	require.NoError(t, err)

	runManager(t, m, "start")

	speakers := speakersOf(chat)
	// user seed, then a, then b terminating
	assert.Equal(t, []string{"user", "a", "b"}, speakers)
}

func TestManager_MaxRoundsExhaustion(t *testing.T) {
	a := newScriptedAgent("a", "more")
	b := newScriptedAgent("b", "more")
	chat, err := New([]core.Agent{a, b}, func(o *Options) { o.MaxRounds = 4 })
	require.NoError(t, err)

	m, err := NewManager("bounded-chat", chat)
	require.NoError(t, err)

	runManager(t, m, "go") // normal stop, not an error

	assert.Len(t, chat.Messages(), 5) // seed + 4 rounds
}

func TestManager_EscalationEndsChat(t *testing.T) {
	a := newEscalatingAgent("guard")
	b := newScriptedAgent("b", "never reached")
	chat, err := New([]core.Agent{a, b})
	require.NoError(t, err)

	m, err := NewManager("esc-chat", chat)
	require.NoError(t, err)

	runManager(t, m, "start")

	// only the seed message; the guard produced no text and ended the chat
	assert.Equal(t, []string{"user"}, speakersOf(chat))
}

func TestManager_NonRosterSelectionError(t *testing.T) {
	a := newScriptedAgent("a", "hi")
	chat, err := New([]core.Agent{a})
	require.NoError(t, err)

	outsider := newScriptedAgent("outsider", "x")
	m, err := NewManager("chat", chat, func(o *ManagerOptions) {
		o.Selector = SelectorFunc(func(context.Context, core.Agent, *GroupChat) (core.Agent, error) { return outsider, nil })
	})
	require.NoError(t, err)

	emit := make(chan core.Event, 16)
	err = m.Run(newManagerRunContext(emit, "hi"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not part of the roster")
}

func TestManager_InitiatorMustBeInRoster(t *testing.T) {
	chat, _, _ := newSupportPipeline("x")
	_, err := NewManager("chat", chat, func(o *ManagerOptions) {
		o.Initiator = newScriptedAgent("stranger", "x")
	})
	assert.Error(t, err)
}
