// Package agent contains first-class agent implementations and supporting
// utilities for building composable conversational / orchestration graphs in
// AgentLab. The package focuses on three concerns:
//
//  1. Base lifecycle + hierarchy plumbing (BaseAgent)
//  2. Concrete coordination patterns (SequentialAgent, ParallelAgent)
//  3. Model-centric conversational / tool-calling agents (AssistantAgent,
//     UserProxyAgent)
//
// Design principles:
//   - Minimal hidden global state, explicit wiring via Runner/RunContext
//   - Composability: agents can nest arbitrarily using SetSubAgents / FindAgent
//   - Observability: clear logging hooks at start/stop and flow selection
//   - Extensibility: embed BaseAgent; only implement Run plus any custom API
//
// Execution Model:
//   - An agent's Run receives a *core.RunContext (shared or cloned)
//   - Composite agents (parallel / sequential) coordinate child Runs
//   - AssistantAgent integrates with model, tool and flow packages to stream events
//
// The package intentionally keeps persistence, model specifics and tool
// registry abstractions in their respective packages to avoid cyclic deps.
package agent
