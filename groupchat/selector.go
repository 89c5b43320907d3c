package groupchat

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentlab-dev/agentlab/core"
	"github.com/agentlab-dev/agentlab/model"
)

// Auto is a sentinel selection result that delegates the speaker decision to
// the manager's LLM-driven selection.
var Auto core.Agent = &autoSentinel{}

// SpeakerSelector picks the next speaker given the previous one and the chat
// state. Returning nil ends the conversation; returning Auto delegates to
// LLM-driven selection. The context is the run's context, so selectors that
// do I/O stop when the run is cancelled.
type SpeakerSelector interface {
	Select(ctx context.Context, last core.Agent, chat *GroupChat) (core.Agent, error)
}

// SelectorFunc adapts an ordinary function to the SpeakerSelector interface.
// Custom routing rules (keyword branching, fixed pipelines) are usually
// expressed this way: a pure, synchronous function over the ordered log.
type SelectorFunc func(ctx context.Context, last core.Agent, chat *GroupChat) (core.Agent, error)

// Select implements SpeakerSelector.
func (f SelectorFunc) Select(ctx context.Context, last core.Agent, chat *GroupChat) (core.Agent, error) {
	return f(ctx, last, chat)
}

// RoundRobinSelector rotates through the roster in order. The agent after the
// previous speaker is chosen; an unknown or nil previous speaker starts at
// the beginning of the roster.
type RoundRobinSelector struct{}

// NewRoundRobinSelector creates a fixed-rotation selector.
func NewRoundRobinSelector() *RoundRobinSelector { return &RoundRobinSelector{} }

// Select implements SpeakerSelector.
func (s *RoundRobinSelector) Select(_ context.Context, last core.Agent, chat *GroupChat) (core.Agent, error) {
	agents := chat.Agents()
	if len(agents) == 0 {
		return nil, fmt.Errorf("empty roster")
	}
	if last == nil {
		return agents[0], nil
	}
	for i, a := range agents {
		if a.Name() == last.Name() {
			return agents[(i+1)%len(agents)], nil
		}
	}
	return agents[0], nil
}

// AutoSelector asks a language model to choose the next speaker from the
// roster based on agent descriptions and the transcript tail. An unparseable
// reply falls back to round-robin rotation.
type AutoSelector struct {
	llm            model.Model
	transcriptTail int
	fallback       *RoundRobinSelector
}

// NewAutoSelector creates an LLM-driven speaker selector.
func NewAutoSelector(llm model.Model) *AutoSelector {
	return &AutoSelector{llm: llm, transcriptTail: 10, fallback: NewRoundRobinSelector()}
}

// Select implements SpeakerSelector.
func (s *AutoSelector) Select(ctx context.Context, last core.Agent, chat *GroupChat) (core.Agent, error) {
	reply, err := s.ask(ctx, chat)
	if err != nil {
		return nil, err
	}

	if chosen := s.parseChoice(reply, last, chat); chosen != nil {
		return chosen, nil
	}

	return s.fallback.Select(ctx, last, chat)
}

func (s *AutoSelector) ask(ctx context.Context, chat *GroupChat) (string, error) {
	var roster strings.Builder
	for _, a := range chat.Agents() {
		fmt.Fprintf(&roster, "- %s: %s\n", a.Name(), a.Description())
	}

	messages := chat.Messages()
	if len(messages) > s.transcriptTail {
		messages = messages[len(messages)-s.transcriptTail:]
	}
	var transcript strings.Builder
	for _, ev := range messages {
		if text := ev.Text(); text != "" {
			fmt.Fprintf(&transcript, "%s: %s\n", ev.Author, text)
		}
	}

	req := model.Request{
		Instructions: "You select the next speaker in a multi-agent conversation. " +
			"Reply with exactly one agent name from the list, nothing else.",
		Contents: []core.Content{{
			Role: "user",
			Parts: []core.Part{core.TextPart{Text: fmt.Sprintf(
				"Available agents:\n%s\nConversation so far:\n%s\nWho should speak next?",
				roster.String(), transcript.String(),
			)}},
		}},
	}

	respCh, errCh := s.llm.Generate(ctx, req)

	var reply string
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case resp, ok := <-respCh:
			if !ok {
				return reply, nil
			}
			if !resp.Partial {
				reply = resp.Content.Text()
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return "", fmt.Errorf("speaker selection failed: %w", err)
			}
		}
	}
}

// parseChoice matches the model reply against roster names, preferring exact
// matches over substring hits. Repeat speakers are rejected unless allowed.
func (s *AutoSelector) parseChoice(reply string, last core.Agent, chat *GroupChat) core.Agent {
	reply = strings.TrimSpace(reply)

	var chosen core.Agent
	if a := chat.AgentByName(reply); a != nil {
		chosen = a
	} else {
		lower := strings.ToLower(reply)
		for _, a := range chat.Agents() {
			if strings.Contains(lower, strings.ToLower(a.Name())) {
				chosen = a
				break
			}
		}
	}

	if chosen == nil {
		return nil
	}
	if last != nil && chosen.Name() == last.Name() && !chat.AllowRepeatSpeaker() {
		return nil
	}
	return chosen
}

// autoSentinel is never executed; it only marks the Auto selection decision.
type autoSentinel struct{}

func (a *autoSentinel) Name() string                   { return "__auto__" }
func (a *autoSentinel) Description() string            { return "automatic speaker selection" }
func (a *autoSentinel) Start(_ *core.RunContext) error { return nil }
func (a *autoSentinel) Stop(_ *core.RunContext) error  { return nil }
func (a *autoSentinel) Run(_ *core.RunContext) error   { return fmt.Errorf("auto sentinel cannot run") }
func (a *autoSentinel) SetSubAgents(_ ...core.Agent) error {
	return fmt.Errorf("auto sentinel has no children")
}
func (a *autoSentinel) SubAgents() []core.Agent       { return nil }
func (a *autoSentinel) Parent() core.Agent            { return nil }
func (a *autoSentinel) FindAgent(_ string) core.Agent { return nil }
