package agent

import (
	"fmt"

	"github.com/agentlab-dev/agentlab/core"
)

// SequentialAgent coordinates the execution of multiple child agents in
// sequence. Each agent's output becomes available to subsequent agents
// through the shared session state, which makes it a natural fit for
// multi-step pipelines where outputs build upon each other.
type SequentialAgent struct {
	BaseAgent
	children []core.Agent // Child agents to execute in sequence
}

// NewSequentialAgent creates a new sequential execution coordinator. The
// child agents run in the order they are specified, sharing session state
// between each step.
func NewSequentialAgent(name string, children ...core.Agent) *SequentialAgent {
	return &SequentialAgent{
		BaseAgent: NewBaseAgent(name),
		children:  children,
	}
}

// Run implements core.Agent. It executes each child agent in the supplied
// context order; errors stop further processing immediately.
func (s *SequentialAgent) Run(runCtx *core.RunContext) error {
	for _, child := range s.children {
		// Pass the same run context to maintain shared state
		if err := child.Run(runCtx); err != nil {
			return fmt.Errorf("sequential execution failed at agent %s: %w", child.Name(), err)
		}
	}

	return nil
}
