// Package guardrails provides safety controls for agent input and output:
// adversarial prompt screening, LLM-scored toxicity filtering, keyword
// triggered human review holds and per-key rate limiting.
package guardrails
