// Package audit records AI interactions for usage monitoring and compliance
// reporting.
package audit

import (
	"sync"
	"time"

	"github.com/agentlab-dev/agentlab/evaluation"
	"github.com/agentlab-dev/agentlab/logging"
)

// Interaction is one recorded query/response exchange.
type Interaction struct {
	Timestamp        time.Time `json:"timestamp"`
	Model            string    `json:"model,omitempty"`
	UserQuery        string    `json:"user_query"`
	AIResponse       string    `json:"ai_response"`
	PromptTokens     int       `json:"prompt_tokens,omitempty"`
	CompletionTokens int       `json:"completion_tokens,omitempty"`
}

// Report summarizes a trail.
type Report struct {
	Interactions          int `json:"interactions"`
	TotalPromptTokens     int `json:"total_prompt_tokens"`
	TotalCompletionTokens int `json:"total_completion_tokens"`
}

// TrailOptions configures the trail.
type TrailOptions struct {
	// Capacity bounds the in-memory ring of interactions (default 1000).
	Capacity int
	// Meter counts tokens per interaction when set.
	Meter *evaluation.TokenUsageMeter
	// Logger receives one entry per interaction.
	Logger logging.Logger
}

// Trail keeps a bounded in-memory log of AI interactions and mirrors each
// one to the structured logger. Safe for concurrent use.
type Trail struct {
	mu       sync.Mutex
	entries  []Interaction
	capacity int
	meter    *evaluation.TokenUsageMeter
	logger   logging.Logger
}

// NewTrail creates an audit trail.
func NewTrail(optFns ...func(o *TrailOptions)) *Trail {
	opts := TrailOptions{Capacity: 1000, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Capacity <= 0 {
		opts.Capacity = 1000
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Trail{capacity: opts.Capacity, meter: opts.Meter, logger: opts.Logger}
}

// Record logs a query/response pair. When a meter is configured the token
// counts are filled in; counting failures leave them at zero rather than
// dropping the entry.
func (t *Trail) Record(modelName, userQuery, aiResponse string) Interaction {
	entry := Interaction{
		Timestamp:  time.Now(),
		Model:      modelName,
		UserQuery:  userQuery,
		AIResponse: aiResponse,
	}

	if t.meter != nil && modelName != "" {
		promptTokens, promptErr := t.meter.CountTokens(modelName, userQuery)
		completionTokens, completionErr := t.meter.CountTokens(modelName, aiResponse)
		if promptErr == nil && completionErr == nil {
			entry.PromptTokens = promptTokens
			entry.CompletionTokens = completionTokens
			t.meter.Record(modelName, userQuery, aiResponse)
		}
	}

	t.mu.Lock()
	t.entries = append(t.entries, entry)
	if len(t.entries) > t.capacity {
		t.entries = t.entries[len(t.entries)-t.capacity:]
	}
	t.mu.Unlock()

	t.logger.Info("audit.interaction",
		"model", modelName,
		"user_query", userQuery,
		"ai_response", aiResponse,
		"prompt_tokens", entry.PromptTokens,
		"completion_tokens", entry.CompletionTokens,
	)
	return entry
}

// Entries returns a copy of the recorded interactions, oldest first.
func (t *Trail) Entries() []Interaction {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Interaction(nil), t.entries...)
}

// Summarize aggregates the recorded interactions.
func (t *Trail) Summarize() Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	report := Report{Interactions: len(t.entries)}
	for _, entry := range t.entries {
		report.TotalPromptTokens += entry.PromptTokens
		report.TotalCompletionTokens += entry.CompletionTokens
	}
	return report
}
