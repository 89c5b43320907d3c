package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentlab-dev/agentlab/core"
	"github.com/agentlab-dev/agentlab/internal/util"
	"github.com/agentlab-dev/agentlab/logging"
	"github.com/agentlab-dev/agentlab/model"
)

// NoRelevantDocuments is returned by Answer when the index is empty or no
// document matched the query.
const NoRelevantDocuments = "No relevant documents were found in the knowledge base for this question."

// DefaultPromptTemplate grounds the generation model in the retrieved
// documents. It receives {{.context}} and {{.query}}.
const DefaultPromptTemplate = `Use the following retrieved documents to answer the user's question.
If the information is not in the documents, say so. Do not make up information.

Retrieved Documents:
{{.context}}

User Question: {{.query}}

Using ONLY the information from the retrieved documents, provide a clear and concise answer.
Do not return the context as-is; formulate a smooth response for a chat interface.`

// PipelineOptions configures retrieval and generation behavior.
type PipelineOptions struct {
	// TopK is the number of documents retrieved per query (default 2).
	TopK int
	// PromptTemplate overrides DefaultPromptTemplate.
	PromptTemplate string
	// Temperature for the generation request (default 0.3).
	Temperature float64
	// MaxTokens for the generation request (default 512).
	MaxTokens int64
	// Logger receives pipeline diagnostics.
	Logger logging.Logger
}

// Pipeline retrieves documents for a query and asks a generation model to
// answer using only the retrieved context.
type Pipeline struct {
	store       *Store
	llm         model.Model
	topK        int
	prompt      string
	temperature float64
	maxTokens   int64
	logger      logging.Logger
}

// NewPipeline creates a retrieval augmented generation pipeline.
func NewPipeline(store *Store, llm model.Model, optFns ...func(o *PipelineOptions)) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("pipeline requires a store")
	}
	if llm == nil {
		return nil, fmt.Errorf("pipeline requires a generation model")
	}

	opts := PipelineOptions{
		TopK:           2,
		PromptTemplate: DefaultPromptTemplate,
		Temperature:    0.3,
		MaxTokens:      512,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.TopK <= 0 {
		opts.TopK = 2
	}
	if opts.PromptTemplate == "" {
		opts.PromptTemplate = DefaultPromptTemplate
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Pipeline{
		store:       store,
		llm:         llm,
		topK:        opts.TopK,
		prompt:      opts.PromptTemplate,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		logger:      opts.Logger,
	}, nil
}

// Retrieve returns the topK documents most similar to the query.
func (p *Pipeline) Retrieve(ctx context.Context, query string) ([]Result, error) {
	return p.store.Search(ctx, query, p.topK)
}

// Answer retrieves context for the query and generates a grounded answer.
func (p *Pipeline) Answer(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("query must not be empty")
	}

	results, err := p.Retrieve(ctx, query)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		p.logger.Info("rag.retrieve.empty", "query", query)
		return NoRelevantDocuments, nil
	}

	var contextBlock strings.Builder
	for i, res := range results {
		fmt.Fprintf(&contextBlock, "Document %d (Similarity: %.2f):\n%s\n\n", i+1, res.Similarity, res.Content)
	}
	p.logger.Debug("rag.retrieve.complete", "query", query, "documents", len(results), "top_similarity", results[0].Similarity)

	prompt, err := util.RenderTemplate(p.prompt, map[string]any{
		"context": strings.TrimSpace(contextBlock.String()),
		"query":   query,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt template: %w", err)
	}

	return p.generate(ctx, prompt)
}

func (p *Pipeline) generate(ctx context.Context, prompt string) (string, error) {
	temp := p.temperature
	maxTokens := p.maxTokens
	req := model.Request{
		Instructions: "You are a helpful AI assistant answering from a knowledge base.",
		Contents:     []core.Content{core.NewUserContent(prompt)},
		Temperature:  &temp,
		MaxTokens:    &maxTokens,
	}

	respCh, errCh := p.llm.Generate(ctx, req)

	var answer string
	for resp := range respCh {
		if !resp.Partial {
			answer = resp.Content.Text()
		}
	}
	if err, ok := <-errCh; ok && err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
