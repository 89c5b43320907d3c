package core

// SearchResult is one hit from a memory search: the stored content, a
// relevance score and whatever metadata was attached at store time.
type SearchResult struct {
	ID       string
	Content  string
	Score    float64
	Metadata map[string]any
}
