package evaluation

import (
	"fmt"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding is used when a model has no registered tokenizer.
const fallbackEncoding = "cl100k_base"

// ModelUsage accumulates token counts for one model.
type ModelUsage struct {
	Model            string `json:"model"`
	Requests         int    `json:"requests"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// TokenUsageMeter counts tokens with model-specific tokenizers and keeps
// running totals per model. Safe for concurrent use.
type TokenUsageMeter struct {
	mu        sync.Mutex
	encodings map[string]*tiktoken.Tiktoken
	totals    map[string]*ModelUsage
}

// NewTokenUsageMeter creates an empty meter.
func NewTokenUsageMeter() *TokenUsageMeter {
	return &TokenUsageMeter{
		encodings: make(map[string]*tiktoken.Tiktoken),
		totals:    make(map[string]*ModelUsage),
	}
}

// CountTokens returns the token count of text under the model's tokenizer,
// falling back to cl100k_base for unknown models.
func (m *TokenUsageMeter) CountTokens(modelName, text string) (int, error) {
	enc, err := m.encoding(modelName)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// Record counts the prompt and completion and adds them to the model's
// running totals.
func (m *TokenUsageMeter) Record(modelName, prompt, completion string) (ModelUsage, error) {
	promptTokens, err := m.CountTokens(modelName, prompt)
	if err != nil {
		return ModelUsage{}, err
	}
	completionTokens, err := m.CountTokens(modelName, completion)
	if err != nil {
		return ModelUsage{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	usage, ok := m.totals[modelName]
	if !ok {
		usage = &ModelUsage{Model: modelName}
		m.totals[modelName] = usage
	}
	usage.Requests++
	usage.PromptTokens += promptTokens
	usage.CompletionTokens += completionTokens
	usage.TotalTokens += promptTokens + completionTokens

	return *usage, nil
}

// Usage returns the accumulated totals for a model.
func (m *TokenUsageMeter) Usage(modelName string) (ModelUsage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	usage, ok := m.totals[modelName]
	if !ok {
		return ModelUsage{}, false
	}
	return *usage, true
}

// Report returns the totals for every model seen so far.
func (m *TokenUsageMeter) Report() []ModelUsage {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := make([]ModelUsage, 0, len(m.totals))
	for _, usage := range m.totals {
		report = append(report, *usage)
	}
	return report
}

func (m *TokenUsageMeter) encoding(modelName string) (*tiktoken.Tiktoken, error) {
	m.mu.Lock()
	if enc, ok := m.encodings[modelName]; ok {
		m.mu.Unlock()
		return enc, nil
	}
	m.mu.Unlock()

	enc, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer for %s: %w", modelName, err)
		}
	}

	m.mu.Lock()
	m.encodings[modelName] = enc
	m.mu.Unlock()
	return enc, nil
}
