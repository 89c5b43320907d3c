// Package groupchat implements multi-agent conversations with pluggable
// speaker selection. A GroupChat holds a fixed roster of agents plus the
// shared ordered message log; a Manager drives rounds by selecting the next
// speaker, running it against the shared session and appending its reply to
// the log until a termination condition is met.
package groupchat

import (
	"errors"
	"strings"
	"sync"

	"github.com/agentlab-dev/agentlab/core"
)

// DefaultMaxRounds bounds a conversation when no explicit limit is given.
const DefaultMaxRounds = 20

// Options configures a GroupChat.
type Options struct {
	// MaxRounds caps the number of speaker turns. Defaults to DefaultMaxRounds.
	MaxRounds int
	// AllowRepeatSpeaker permits the same agent to speak twice in a row.
	AllowRepeatSpeaker bool
	// IsTermination decides whether a message ends the conversation.
	// Defaults to a "TERMINATE" substring check.
	IsTermination func(message string) bool
}

// GroupChat is the shared state of a multi-agent conversation: the fixed
// agent roster and the ordered message log. It is safe for concurrent use.
type GroupChat struct {
	mu                 sync.RWMutex
	agents             []core.Agent
	messages           []core.Event
	maxRounds          int
	allowRepeatSpeaker bool
	isTermination      func(message string) bool
}

// New creates a group chat over the given roster. An empty roster is a
// construction error.
func New(agents []core.Agent, optFns ...func(o *Options)) (*GroupChat, error) {
	if len(agents) == 0 {
		return nil, errors.New("group chat requires at least one agent")
	}

	opts := Options{
		MaxRounds: DefaultMaxRounds,
		IsTermination: func(message string) bool {
			return strings.Contains(message, "TERMINATE")
		},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}

	return &GroupChat{
		agents:             agents,
		maxRounds:          opts.MaxRounds,
		allowRepeatSpeaker: opts.AllowRepeatSpeaker,
		isTermination:      opts.IsTermination,
	}, nil
}

// Agents returns a copy of the roster for safe iteration.
func (g *GroupChat) Agents() []core.Agent {
	g.mu.RLock()
	defer g.mu.RUnlock()
	agents := make([]core.Agent, len(g.agents))
	copy(agents, g.agents)
	return agents
}

// AgentByName returns the roster agent with the given name, or nil.
func (g *GroupChat) AgentByName(name string) core.Agent {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, a := range g.agents {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

// Contains reports whether the agent belongs to the roster.
func (g *GroupChat) Contains(agent core.Agent) bool {
	if agent == nil {
		return false
	}
	return g.AgentByName(agent.Name()) != nil
}

// MaxRounds returns the configured round limit.
func (g *GroupChat) MaxRounds() int { return g.maxRounds }

// AllowRepeatSpeaker reports whether back-to-back turns by the same agent are allowed.
func (g *GroupChat) AllowRepeatSpeaker() bool { return g.allowRepeatSpeaker }

// Append adds a message event to the shared log.
func (g *GroupChat) Append(ev core.Event) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.messages = append(g.messages, ev)
}

// Messages returns a copy of the ordered message log.
func (g *GroupChat) Messages() []core.Event {
	g.mu.RLock()
	defer g.mu.RUnlock()
	messages := make([]core.Event, len(g.messages))
	copy(messages, g.messages)
	return messages
}

// LastMessage returns the most recent message and true, or a zero event and
// false when the log is empty.
func (g *GroupChat) LastMessage() (core.Event, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.messages) == 0 {
		return core.Event{}, false
	}
	return g.messages[len(g.messages)-1], true
}

// IsTerminated reports whether the message satisfies the termination predicate.
func (g *GroupChat) IsTerminated(message string) bool {
	if g.isTermination == nil {
		return false
	}
	return g.isTermination(message)
}

// Transcript renders the message log as "speaker: text" lines, useful for
// selection prompts and summaries.
func (g *GroupChat) Transcript() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var b strings.Builder
	for _, ev := range g.messages {
		text := ev.Text()
		if text == "" {
			continue
		}
		b.WriteString(ev.Author)
		b.WriteString(": ")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}
