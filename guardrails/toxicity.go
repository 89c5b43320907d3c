package guardrails

import (
	"context"
	"fmt"

	"github.com/agentlab-dev/agentlab/evaluation"
	"github.com/agentlab-dev/agentlab/logging"
	"github.com/agentlab-dev/agentlab/model"
)

// BlockedResponseMessage replaces a response whose toxicity exceeds the
// filter threshold.
const BlockedResponseMessage = "Blocked: AI response contains inappropriate content."

// ToxicityFilterOptions configures the filter.
type ToxicityFilterOptions struct {
	// Threshold above which responses are blocked (default 0.7).
	Threshold float64
	// Logger receives block events.
	Logger logging.Logger
}

// FilterResult is the outcome of a toxicity check.
type FilterResult struct {
	// Text is the original response, or BlockedResponseMessage if blocked.
	Text    string  `json:"text"`
	Blocked bool    `json:"blocked"`
	Score   float64 `json:"score"`
}

// ToxicityFilter scores model output with an LLM judge and blocks responses
// above the toxicity threshold.
type ToxicityFilter struct {
	judge     *evaluation.Judge
	threshold float64
	logger    logging.Logger
}

// NewToxicityFilter creates a filter backed by the given judge model.
func NewToxicityFilter(llm model.Model, optFns ...func(o *ToxicityFilterOptions)) (*ToxicityFilter, error) {
	opts := ToxicityFilterOptions{Threshold: 0.7, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	judge, err := evaluation.NewJudge(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create judge: %w", err)
	}

	return &ToxicityFilter{judge: judge, threshold: opts.Threshold, logger: opts.Logger}, nil
}

// Filter scores the response and blocks it when the score exceeds the
// threshold.
func (f *ToxicityFilter) Filter(ctx context.Context, response string) (FilterResult, error) {
	score, err := f.judge.Toxicity(ctx, response)
	if err != nil {
		return FilterResult{}, err
	}

	if score > f.threshold {
		f.logger.Warn("guardrails.toxicity.blocked", "score", score, "threshold", f.threshold)
		return FilterResult{Text: BlockedResponseMessage, Blocked: true, Score: score}, nil
	}
	return FilterResult{Text: response, Score: score}, nil
}
