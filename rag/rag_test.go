package rag

import (
	"context"
	"testing"

	"github.com/agentlab-dev/agentlab/core"
	"github.com/agentlab-dev/agentlab/logging"
	"github.com/agentlab-dev/agentlab/model"
	"github.com/agentlab-dev/agentlab/session"
	"github.com/agentlab-dev/agentlab/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var knowledgeBase = []string{
	"The company's return policy allows returns within 30 days of purchase with original receipt.",
	"Our health insurance policy covers dental and vision after 90 days of employment.",
	"The office is open Monday through Friday, 9 AM to 5 PM Eastern Time.",
	"Customer support can be reached 24/7 via email at support@company.com.",
	"All employees are eligible for 401k matching up to 5% after 6 months of employment.",
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(NewHashEmbedder(256))
	require.NoError(t, err)
	return store
}

func TestHashEmbedder_DeterministicAndNormalized(t *testing.T) {
	e := NewHashEmbedder(64)

	a, err := e.Embed(context.Background(), "the office is open")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "the office is open")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestStore_AddAndSearch(t *testing.T) {
	store := newTestStore(t)

	ids, err := store.AddDocuments(context.Background(), knowledgeBase)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, ids)
	assert.Equal(t, 5, store.Count())

	results, err := store.Search(context.Background(), "When is the office open?", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Contains(t, results[0].Content, "office is open")
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestStore_SearchEmptyIndex(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Search(context.Background(), "anything", 2)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_TopKClampedToCount(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddDocument(context.Background(), "only one document")
	require.NoError(t, err)

	results, err := store.Search(context.Background(), "document", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestPipeline_Answer(t *testing.T) {
	store := newTestStore(t)
	_, err := store.AddDocuments(context.Background(), knowledgeBase)
	require.NoError(t, err)

	llm := model.NewMockModel("gen", "mock")
	llm.AddSequence("The office is open Monday through Friday, 9 AM to 5 PM Eastern Time.")

	pipeline, err := NewPipeline(store, llm)
	require.NoError(t, err)

	answer, err := pipeline.Answer(context.Background(), "When is the office open?")
	require.NoError(t, err)
	assert.Contains(t, answer, "Monday through Friday")
}

func TestPipeline_EmptyIndex(t *testing.T) {
	store := newTestStore(t)
	llm := model.NewMockModel("gen", "mock")

	pipeline, err := NewPipeline(store, llm)
	require.NoError(t, err)

	answer, err := pipeline.Answer(context.Background(), "What's the vacation policy?")
	require.NoError(t, err)
	assert.Equal(t, NoRelevantDocuments, answer)
}

func TestPipeline_EmptyQuery(t *testing.T) {
	store := newTestStore(t)
	llm := model.NewMockModel("gen", "mock")

	pipeline, err := NewPipeline(store, llm)
	require.NoError(t, err)

	_, err = pipeline.Answer(context.Background(), "  ")
	assert.Error(t, err)
}

func newToolContext(t *testing.T) *core.ToolContext {
	t.Helper()
	sessStore := session.NewInMemoryStore()
	sess, err := sessStore.Create("rag-session")
	require.NoError(t, err)

	runCtx := core.NewRunContext(
		context.Background(), "rag-session", "rag-run",
		core.AgentInfo{Name: "rag_assistant", Type: "assistant"},
		core.NewUserContent("question"), 100,
		make(chan core.Event, 8), nil, sess, sessStore, nil, nil, logging.NoOpLogger{},
	)
	return core.NewToolContext(runCtx, "call-1")
}

func TestRetrievalTool_Call(t *testing.T) {
	store := newTestStore(t)
	_, err := store.AddDocuments(context.Background(), knowledgeBase)
	require.NoError(t, err)

	llm := model.NewMockModel("gen", "mock")
	llm.AddSequence("Returns are accepted within 30 days with the original receipt.")

	pipeline, err := NewPipeline(store, llm)
	require.NoError(t, err)

	rt := NewRetrievalTool(pipeline)
	assert.Equal(t, "search_and_generate", rt.Name())

	result, err := rt.Call(newToolContext(t), map[string]any{"query": "What is the return policy?"})
	require.NoError(t, err)
	assert.Contains(t, result.(string), "30 days")
}

func TestRetrievalTool_ValidatesQuery(t *testing.T) {
	store := newTestStore(t)
	llm := model.NewMockModel("gen", "mock")
	pipeline, err := NewPipeline(store, llm)
	require.NoError(t, err)

	rt := NewRetrievalTool(pipeline)

	_, err = rt.Call(newToolContext(t), map[string]any{"query": ""})
	require.Error(t, err)
	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}
