package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_StateAndEvents(t *testing.T) {
	s := NewSession("s-1")

	_, ok := s.GetState("missing")
	assert.False(t, ok)

	s.SetState("lang", "nl")
	v, ok := s.GetState("lang")
	require.True(t, ok)
	assert.Equal(t, "nl", v)

	s.ApplyStateDelta(map[string]any{"lang": "de", "tz": "CET"})
	v, _ = s.GetState("lang")
	assert.Equal(t, "de", v)

	s.AddEvent(NewUserMessageEvent("run-1", "hello"))
	events := s.GetEvents()
	require.Len(t, events, 1)

	// the returned slice is a copy
	events[0].Author = "mallory"
	assert.Equal(t, "user", s.GetEvents()[0].Author)
}

func TestSession_GetConversationHistory(t *testing.T) {
	s := NewSession("s-1")

	s.AddEvent(NewUserMessageEvent("run-1", "question"))
	s.AddEvent(NewMessageEvent("assistant", "answer"))
	s.AddEvent(NewEvent("run-1", "runner")) // no content, filtered

	partial := NewMessageEvent("assistant", "chu")
	yes := true
	partial.Partial = &yes
	s.AddEvent(partial)

	system := NewEvent("run-1", "system")
	system.Content = &Content{Role: "system", Parts: []Part{TextPart{Text: "prompt"}}}
	s.AddEvent(system)

	history := s.GetConversationHistory()
	require.Len(t, history, 2)
	assert.Equal(t, "question", history[0].Text())
	assert.Equal(t, "answer", history[1].Text())
}

func TestSession_Clone(t *testing.T) {
	s := NewSession("s-1")
	s.SetState("k", "v")
	s.AddEvent(NewUserMessageEvent("run-1", "hello"))

	clone := s.Clone()
	clone.SetState("k", "changed")
	clone.AddEvent(NewMessageEvent("assistant", "extra"))

	v, _ := s.GetState("k")
	assert.Equal(t, "v", v)
	assert.Len(t, s.GetEvents(), 1)
	assert.Len(t, clone.GetEvents(), 2)
}

func TestModelLimiter(t *testing.T) {
	ml := NewModelLimiter(2)

	require.NoError(t, ml.Increment())
	require.NoError(t, ml.Increment())
	assert.Equal(t, 0, ml.Remaining())
	assert.ErrorContains(t, ml.Increment(), "exceeded max model calls")
	assert.Equal(t, 3, ml.Count())
}

func TestModelLimiter_Unlimited(t *testing.T) {
	ml := NewModelLimiter(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, ml.Increment())
	}
	assert.Equal(t, -1, ml.Remaining())
}
