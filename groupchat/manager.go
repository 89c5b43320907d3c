package groupchat

import (
	"errors"
	"fmt"
	"time"

	"github.com/agentlab-dev/agentlab/agent"
	"github.com/agentlab-dev/agentlab/core"
	"github.com/agentlab-dev/agentlab/model"
)

// ManagerOptions configures a group chat Manager.
type ManagerOptions struct {
	// Selector decides the next speaker each round. Defaults to round robin.
	Selector SpeakerSelector
	// SelectionModel backs Auto decisions. Required only when the selector
	// can return Auto.
	SelectionModel model.Model
	// Initiator names the agent treated as the previous speaker of the
	// initial user message. It must be part of the roster.
	Initiator core.Agent
}

// Manager drives a group chat as a core.Agent: each round it selects the
// next speaker, runs it against the shared session, appends its reply to the
// chat log and stops on termination, escalation, nil selection or round
// exhaustion.
type Manager struct {
	agent.BaseAgent
	chat         *GroupChat
	selector     SpeakerSelector
	autoSelector *AutoSelector
	initiator    core.Agent
}

// NewManager creates a manager for the given chat.
func NewManager(name string, chat *GroupChat, optFns ...func(o *ManagerOptions)) (*Manager, error) {
	if chat == nil {
		return nil, errors.New("group chat is required")
	}

	opts := ManagerOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Selector == nil {
		opts.Selector = NewRoundRobinSelector()
	}
	if opts.Initiator != nil && !chat.Contains(opts.Initiator) {
		return nil, fmt.Errorf("initiator %s is not part of the roster", opts.Initiator.Name())
	}

	m := &Manager{
		BaseAgent: agent.NewBaseAgent(name),
		chat:      chat,
		selector:  opts.Selector,
		initiator: opts.Initiator,
	}
	if opts.SelectionModel != nil {
		m.autoSelector = NewAutoSelector(opts.SelectionModel)
	}
	m.SetDescription("Coordinates a multi-agent group chat.")

	return m, nil
}

// Chat returns the managed group chat.
func (m *Manager) Chat() *GroupChat { return m.chat }

// Run implements core.Agent by driving the conversation round loop.
func (m *Manager) Run(runCtx *core.RunContext) error {
	m.seedChat(runCtx)

	last := m.initiator

	for round := 1; round <= m.chat.MaxRounds(); round++ {
		speaker, err := m.selector.Select(runCtx.Context, last, m.chat)
		if err != nil {
			return fmt.Errorf("speaker selection failed in round %d: %w", round, err)
		}
		if speaker == nil {
			runCtx.LogInfo("groupchat.end", "chat", m.Name(), "reason", "no further speaker", "rounds", round-1)
			return nil
		}

		if speaker == Auto {
			if m.autoSelector == nil {
				return errors.New("auto speaker selection requires a selection model")
			}
			speaker, err = m.autoSelector.Select(runCtx.Context, last, m.chat)
			if err != nil {
				return fmt.Errorf("auto speaker selection failed in round %d: %w", round, err)
			}
			if speaker == nil {
				runCtx.LogInfo("groupchat.end", "chat", m.Name(), "reason", "auto selection ended", "rounds", round-1)
				return nil
			}
		}

		if !m.chat.Contains(speaker) {
			return fmt.Errorf("selected agent %s is not part of the roster", speaker.Name())
		}

		start := time.Now()
		events, escalated, err := m.runParticipant(runCtx, speaker)
		if err != nil {
			return fmt.Errorf("round %d speaker %s failed: %w", round, speaker.Name(), err)
		}

		var lastText string
		for _, ev := range events {
			if ev.Content == nil || ev.Content.Text() == "" {
				continue
			}
			logged := ev
			logged.Author = speaker.Name()
			m.chat.Append(logged)
			lastText = ev.Content.Text()
		}

		runCtx.LogInfo(
			"groupchat.round",
			"chat", m.Name(),
			"round", round,
			"speaker", speaker.Name(),
			"duration_ms", time.Since(start).Milliseconds(),
		)

		if escalated {
			runCtx.LogInfo("groupchat.end", "chat", m.Name(), "reason", "escalation", "rounds", round)
			return nil
		}
		if lastText != "" && m.chat.IsTerminated(lastText) {
			runCtx.LogInfo("groupchat.end", "chat", m.Name(), "reason", "termination message", "rounds", round)
			return nil
		}

		last = speaker
	}

	runCtx.LogInfo("groupchat.end", "chat", m.Name(), "reason", "max rounds", "rounds", m.chat.MaxRounds())
	return nil
}

// seedChat places the initiating user message at the head of the log so the
// first selection sees it.
func (m *Manager) seedChat(runCtx *core.RunContext) {
	if _, ok := m.chat.LastMessage(); ok {
		return
	}
	if runCtx.UserContent.Text() == "" {
		return
	}

	author := "user"
	if m.initiator != nil {
		author = m.initiator.Name()
	}
	ev := core.NewEvent(runCtx.RunID, author)
	content := runCtx.UserContent
	ev.Content = &content
	m.chat.Append(ev)
}

// runParticipant executes one speaker with a private emit/resume pair,
// forwarding its events to the outer context and persisting non-partial ones
// so the next speaker sees the full conversation. Returns the speaker's
// non-partial events and whether it escalated.
func (m *Manager) runParticipant(runCtx *core.RunContext, speaker core.Agent) ([]core.Event, bool, error) {
	childEmit := make(chan core.Event, 64)
	resume := make(chan struct{}, 1)

	child := runCtx.Clone()
	child.Agent = core.AgentInfo{Name: speaker.Name(), Type: "participant"}
	child.Emit = childEmit
	child.Resume = resume

	runErr := make(chan error, 1)
	go func() {
		defer close(childEmit)
		runErr <- speaker.Run(child)
	}()

	var (
		collected []core.Event
		escalated bool
	)

	for ev := range childEmit {
		select {
		case runCtx.Emit <- ev:
		case <-runCtx.Context.Done():
			return collected, escalated, runCtx.Context.Err()
		}

		if ev.IsPartial() {
			continue
		}

		// The runner persists forwarded events; wait for it before letting
		// the participant continue so session history stays ordered.
		if err := runCtx.WaitForResume(); err != nil {
			return collected, escalated, err
		}

		if ev.Actions.Escalate != nil && *ev.Actions.Escalate {
			escalated = true
		}
		collected = append(collected, ev)

		select {
		case resume <- struct{}{}:
		default:
		}
	}

	err := <-runErr
	return collected, escalated, err
}
