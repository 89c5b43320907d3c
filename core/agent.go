package core

// Agent defines the interface that all agents in AgentLab must implement.
//
// Agents are the primary processing units of the framework. They receive
// input through a RunContext, process it asynchronously, and emit events to
// communicate results and state changes back to the Runner.
//
// The interface supports both simple single-agent scenarios and hierarchical
// multi-agent workflows through the sub-agent management methods.
//
// Implementations must:
//   - Respect context cancellation for graceful shutdown
//   - Emit events through the provided RunContext
//   - Handle the async resume mechanism properly
type Agent interface {
	Name() string
	Start(runCtx *RunContext) error
	Stop(runCtx *RunContext) error
	Run(runCtx *RunContext) error
	SetSubAgents(children ...Agent) error
	SubAgents() []Agent
	Parent() Agent
	FindAgent(name string) Agent
	Description() string
}

// AgentInfo carries identifying details about an agent used in contexts & events.
// Name is the external identifier; Type categorizes implementation (e.g. "assistant", "groupchat").
type AgentInfo struct{ Name, Type string }
