// Package runner implements the orchestration layer for AgentLab.
//
// The Runner serves as the central coordination hub that manages the complete
// lifecycle of agent conversations and workflows. It bridges the gap between
// high-level AgentLab operations and low-level agent implementations.
//
// # Responsibilities (abridged)
//   - Agent run orchestration (async streaming + sync helper via façade)
//   - Event processing & side-effect application (session state, artifacts)
//   - Session history persistence
//   - Run lifecycle management & cancellation
//
// See runner.go for the operational implementation details.
package runner
