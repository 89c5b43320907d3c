package groupchat

import (
	"context"
	"strings"
	"testing"

	"github.com/agentlab-dev/agentlab/core"
	"github.com/agentlab-dev/agentlab/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRobinSelector(t *testing.T) {
	a := newScriptedAgent("a", "1")
	b := newScriptedAgent("b", "2")
	c := newScriptedAgent("c", "3")
	chat, err := New([]core.Agent{a, b, c})
	require.NoError(t, err)

	sel := NewRoundRobinSelector()

	next, err := sel.Select(context.Background(), nil, chat)
	require.NoError(t, err)
	assert.Equal(t, "a", next.Name())

	next, err = sel.Select(context.Background(), a, chat)
	require.NoError(t, err)
	assert.Equal(t, "b", next.Name())

	next, err = sel.Select(context.Background(), c, chat)
	require.NoError(t, err)
	assert.Equal(t, "a", next.Name()) // wraps around

	unknown := newScriptedAgent("zzz", "x")
	next, err = sel.Select(context.Background(), unknown, chat)
	require.NoError(t, err)
	assert.Equal(t, "a", next.Name())
}

// newSupportPipeline builds the customer-feedback routing roster: sentiment
// analysis first, topic extraction only for negative feedback, then a summary.
func newSupportPipeline(sentimentReply string) (*GroupChat, SelectorFunc, map[string]*scriptedAgent) {
	agents := map[string]*scriptedAgent{
		"user_proxy": newScriptedAgent("user_proxy", "feedback"),
		"sentiment":  newScriptedAgent("sentiment", sentimentReply),
		"topic":      newScriptedAgent("topic", "Topic: delivery delays"),
		"summarizer": newScriptedAgent("summarizer", "Summary of the feedback."),
	}
	chat, _ := New([]core.Agent{agents["user_proxy"], agents["sentiment"], agents["topic"], agents["summarizer"]})

	route := SelectorFunc(func(_ context.Context, last core.Agent, chat *GroupChat) (core.Agent, error) {
		switch {
		case last == nil || last.Name() == "user_proxy":
			return chat.AgentByName("sentiment"), nil
		case last.Name() == "sentiment":
			if msg, ok := chat.LastMessage(); ok && strings.Contains(strings.ToLower(msg.Text()), "negative") {
				return chat.AgentByName("topic"), nil
			}
			return chat.AgentByName("summarizer"), nil
		case last.Name() == "topic":
			return chat.AgentByName("summarizer"), nil
		default:
			return nil, nil
		}
	})

	return chat, route, agents
}

func TestSelectorFunc_ConditionalRouting_Negative(t *testing.T) {
	chat, route, _ := newSupportPipeline("The sentiment is negative.")

	// user -> sentiment
	next, err := route.Select(context.Background(), chat.AgentByName("user_proxy"), chat)
	require.NoError(t, err)
	assert.Equal(t, "sentiment", next.Name())

	// negative verdict -> topic extraction
	chat.Append(core.NewMessageEvent("sentiment", "The sentiment is negative."))
	next, err = route.Select(context.Background(), chat.AgentByName("sentiment"), chat)
	require.NoError(t, err)
	assert.Equal(t, "topic", next.Name())

	// topic -> summarizer
	next, err = route.Select(context.Background(), chat.AgentByName("topic"), chat)
	require.NoError(t, err)
	assert.Equal(t, "summarizer", next.Name())

	// summarizer -> end
	next, err = route.Select(context.Background(), chat.AgentByName("summarizer"), chat)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestSelectorFunc_ConditionalRouting_Positive(t *testing.T) {
	chat, route, _ := newSupportPipeline("The sentiment is positive.")

	chat.Append(core.NewMessageEvent("sentiment", "The sentiment is positive."))
	next, err := route.Select(context.Background(), chat.AgentByName("sentiment"), chat)
	require.NoError(t, err)
	assert.Equal(t, "summarizer", next.Name()) // topic stage skipped
}

func TestAutoSelector_ParsesChoice(t *testing.T) {
	a := newScriptedAgent("researcher", "r")
	b := newScriptedAgent("writer", "w")
	chat, err := New([]core.Agent{a, b})
	require.NoError(t, err)

	llm := model.NewMockModel("sel", "mock")
	llm.AddSequence("writer")

	sel := NewAutoSelector(llm)
	next, err := sel.Select(context.Background(), a, chat)
	require.NoError(t, err)
	assert.Equal(t, "writer", next.Name())
}

func TestAutoSelector_FallbackOnUnparseable(t *testing.T) {
	a := newScriptedAgent("researcher", "r")
	b := newScriptedAgent("writer", "w")
	chat, err := New([]core.Agent{a, b})
	require.NoError(t, err)

	llm := model.NewMockModel("sel", "mock")
	llm.AddSequence("no idea who")

	sel := NewAutoSelector(llm)
	next, err := sel.Select(context.Background(), a, chat)
	require.NoError(t, err)
	assert.Equal(t, "writer", next.Name()) // round robin after researcher
}

// stallModel never produces a reply; Generate only reports the context error
// once the caller's context ends.
type stallModel struct{}

func (stallModel) Generate(ctx context.Context, _ model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response)
	errCh := make(chan error, 1)
	go func() {
		defer close(respCh)
		defer close(errCh)
		<-ctx.Done()
		errCh <- ctx.Err()
	}()
	return respCh, errCh
}

func (stallModel) Info() model.Info { return model.Info{Name: "stall", Provider: "mock"} }

func TestAutoSelector_RunCancellation(t *testing.T) {
	a := newScriptedAgent("researcher", "r")
	b := newScriptedAgent("writer", "w")
	chat, err := New([]core.Agent{a, b})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sel := NewAutoSelector(stallModel{})
	_, err = sel.Select(ctx, a, chat)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAutoSelector_RejectsRepeatSpeaker(t *testing.T) {
	a := newScriptedAgent("researcher", "r")
	b := newScriptedAgent("writer", "w")
	chat, err := New([]core.Agent{a, b})
	require.NoError(t, err)

	llm := model.NewMockModel("sel", "mock")
	llm.AddSequence("researcher") // repeats the previous speaker

	sel := NewAutoSelector(llm)
	next, err := sel.Select(context.Background(), a, chat)
	require.NoError(t, err)
	// repeat not allowed -> falls back to rotation
	assert.Equal(t, "writer", next.Name())
}
