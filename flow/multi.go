package flow

// MultiAgentFlow orchestrates an agent that may perform tool calls and
// transfer control to sub-agents, enabling hierarchical / branching flows.
// MultiAgentFlow extends BaseFlow by selecting processors suitable for
// multi-agent graph execution.
type MultiAgentFlow struct{ *BaseFlow }

// NewMultiAgentFlow creates a new auto flow with default processors.
func NewMultiAgentFlow(agent FlowAgent) *MultiAgentFlow {
	baseFlow := NewBaseFlow(agent)

	baseFlow.AddRequestProcessor(NewInstructionsProcessor())
	// Inject transfer_to_agent tool definition dynamically when applicable.
	// Runs before content assembly so the sub-agent roster lands in the
	// system message.
	baseFlow.AddRequestProcessor(NewTransferToolInjector())
	baseFlow.AddRequestProcessor(NewContentsProcessor())

	return &MultiAgentFlow{BaseFlow: baseFlow}
}
