package flow

// SingleAgentFlow drives a standalone agent with no transfer or sub-agent
// delegation. Instruction resolution and conversation assembly run as
// request processors; model streaming events are relayed as-is.
type SingleAgentFlow struct{ *BaseFlow }

// NewSingleAgentFlow creates a flow with the standard processor chain.
func NewSingleAgentFlow(agent FlowAgent) *SingleAgentFlow {
	base := NewBaseFlow(agent)
	base.AddRequestProcessor(NewInstructionsProcessor())
	base.AddRequestProcessor(NewContentsProcessor())
	return &SingleAgentFlow{BaseFlow: base}
}
