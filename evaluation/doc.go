// Package evaluation provides conversation quality tooling: termination
// phrase detection, an LLM judge for toxicity and factual correctness
// scoring, and token usage accounting.
package evaluation
