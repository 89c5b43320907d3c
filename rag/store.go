package rag

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// Result is a retrieved document with its cosine similarity to the query.
type Result struct {
	ID         int     `json:"id"`
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
}

// StoreOptions configures the document store.
type StoreOptions struct {
	// Collection names the chromem collection (default "documents").
	Collection string
	// PersistPath enables gob persistence when non-empty. Empty keeps the
	// index in memory only.
	PersistPath string
	// Compress gzips the persisted index.
	Compress bool
}

// Store indexes documents in an embedded chromem-go vector database and
// retrieves them by cosine similarity. Document IDs are assigned
// monotonically starting at 0. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	col      *chromem.Collection
	embedder Embedder
	nextID   int
}

// NewStore creates a document store using the given embedder.
func NewStore(embedder Embedder, optFns ...func(o *StoreOptions)) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("store requires an embedder")
	}

	opts := StoreOptions{Collection: "documents"}
	for _, fn := range optFns {
		fn(&opts)
	}

	var db *chromem.DB
	var err error
	if opts.PersistPath != "" {
		db, err = chromem.NewPersistentDB(opts.PersistPath, opts.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open persistent vector db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	embedFn := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}
	col, err := db.GetOrCreateCollection(opts.Collection, nil, embedFn)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection %q: %w", opts.Collection, err)
	}

	return &Store{col: col, embedder: embedder, nextID: col.Count()}, nil
}

// AddDocument indexes a single document and returns its ID.
func (s *Store) AddDocument(ctx context.Context, text string) (int, error) {
	ids, err := s.AddDocuments(ctx, []string{text})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// AddDocuments indexes multiple documents and returns their IDs in order.
func (s *Store) AddDocuments(ctx context.Context, texts []string) ([]int, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make([]chromem.Document, 0, len(texts))
	ids := make([]int, 0, len(texts))
	for _, text := range texts {
		id := s.nextID
		s.nextID++
		ids = append(ids, id)
		docs = append(docs, chromem.Document{
			ID:      strconv.Itoa(id),
			Content: text,
		})
	}

	if err := s.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("failed to index documents: %w", err)
	}
	return ids, nil
}

// Count returns the number of indexed documents.
func (s *Store) Count() int { return s.col.Count() }

// Search returns up to topK documents most similar to the query, best first.
// An empty index yields an empty result set, not an error.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	count := s.col.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	hits, err := s.col.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		id, err := strconv.Atoi(hit.ID)
		if err != nil {
			return nil, fmt.Errorf("unexpected document id %q: %w", hit.ID, err)
		}
		results = append(results, Result{ID: id, Content: hit.Content, Similarity: hit.Similarity})
	}
	return results, nil
}
