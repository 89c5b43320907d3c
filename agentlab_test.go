package agentlab

import (
	"context"
	"testing"

	"github.com/agentlab-dev/agentlab/agent"
	"github.com/agentlab-dev/agentlab/core"
	"github.com/agentlab-dev/agentlab/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEchoAssistant(t *testing.T) *agent.AssistantAgent {
	t.Helper()
	llm := model.NewMockModel("mock-model", "mock")
	llm.AddResponse("hello", "Hi there!")

	return agent.NewAssistantAgent("Helper", llm, func(o *agent.AssistantAgentOptions) {
		o.EnableStreaming = false
		o.AllowTransfer = false
	})
}

func TestAgentLab_InvokeSync(t *testing.T) {
	lab := New(newEchoAssistant(t))

	runID, events, err := lab.InvokeSync(context.Background(), "session-1", core.NewUserContent("hello"))
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	require.NotEmpty(t, events)

	final := events[len(events)-1]
	assert.Equal(t, "Hi there!", final.Text())
	assert.True(t, final.IsFinalResponse())

	// the conversation is persisted in the configured session store
	sess, err := lab.SessionStore().Get("session-1")
	require.NoError(t, err)
	assert.Len(t, sess.GetConversationHistory(), 2)
}

func TestAgentLab_Invoke_Async(t *testing.T) {
	lab := New(newEchoAssistant(t))

	runID, eventsCh, errorsCh, err := lab.Invoke(context.Background(), "session-1", core.NewUserContent("hello"))
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	var events []core.Event
	for ev := range eventsCh {
		events = append(events, ev)
	}
	if runErr, ok := <-errorsCh; ok {
		require.NoError(t, runErr)
	}
	assert.NotEmpty(t, events)
}
