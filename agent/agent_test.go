package agent

import (
	"context"
	"testing"

	"github.com/agentlab-dev/agentlab/core"
	"github.com/agentlab-dev/agentlab/internal/util"
	"github.com/agentlab-dev/agentlab/logging"
	"github.com/agentlab-dev/agentlab/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockAgent for testing composite agents
type MockAgent struct {
	mock.Mock
	name string
}

func NewMockAgent(name string) *MockAgent {
	return &MockAgent{name: name}
}

func (m *MockAgent) Name() string { return m.name }

func (m *MockAgent) Run(runCtx *core.RunContext) error {
	args := m.Called(runCtx)
	return args.Error(0)
}

func (m *MockAgent) Start(runCtx *core.RunContext) error {
	args := m.Called(runCtx)
	return args.Error(0)
}

func (m *MockAgent) Stop(runCtx *core.RunContext) error {
	args := m.Called(runCtx)
	return args.Error(0)
}

func (m *MockAgent) SubAgents() []core.Agent {
	args := m.Called()
	return args.Get(0).([]core.Agent)
}

func (m *MockAgent) Description() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockAgent) SetSubAgents(children ...core.Agent) error {
	args := m.Called(children)
	return args.Error(0)
}

func (m *MockAgent) Parent() core.Agent {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(core.Agent)
}

func (m *MockAgent) FindAgent(name string) core.Agent {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(core.Agent)
}

// newTestRunContext builds a run context backed by an in-memory session store.
func newTestRunContext(emit chan core.Event) *core.RunContext {
	sessStore := session.NewInMemoryStore()
	sess, _ := sessStore.Create("test-session")
	userContent := core.Content{Role: "user", Parts: []core.Part{core.TextPart{Text: "test input"}}}
	if emit == nil {
		emit = make(chan core.Event, 64)
	}
	return core.NewRunContext(
		context.Background(), "test-session", "test-run",
		core.AgentInfo{Name: "TestAgent", Type: "test"},
		userContent, 100, emit, nil, sess, sessStore, nil, nil, logging.NoOpLogger{},
	)
}

// Common test utilities
func TestNewEventID(t *testing.T) {
	eventID := util.NewID()
	assert.NotEmpty(t, eventID)
	assert.Len(t, eventID, 36) // UUID length
}

func TestBaseAgent_Hierarchy(t *testing.T) {
	parent := NewSequentialAgent("parent")
	childA := NewSequentialAgent("a")
	childB := NewSequentialAgent("b")

	assert.NoError(t, parent.SetSubAgents(childA, childB))
	assert.Len(t, parent.SubAgents(), 2)
	assert.Equal(t, "parent", childA.Parent().Name())

	found := parent.FindAgent("b")
	assert.NotNil(t, found)
	assert.Equal(t, "b", found.Name())

	assert.Nil(t, parent.FindAgent("missing"))
}

func TestBaseAgent_Lifecycle(t *testing.T) {
	a := NewSequentialAgent("lifecycle")
	rc := newTestRunContext(nil)

	assert.NoError(t, a.Start(rc))
	assert.Error(t, a.Start(rc))
	assert.NoError(t, a.Stop(rc))
	assert.Error(t, a.Stop(rc))
}
