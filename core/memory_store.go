package core

// MemoryStore holds conversational memory: session-scoped key/value pairs
// plus free-form snippets retrievable through Search. The memory package
// ships a substring-matching implementation; the rag package covers the
// embedding-backed case.
type MemoryStore interface {
	Get(sessionID string) (map[string]any, error)
	Put(sessionID string, delta map[string]any) error
	Search(sessionID string, query string, limit int) ([]SearchResult, error)
	Store(sessionID string, content string, metadata map[string]any) error
	Delete(sessionID string, memoryID string) error
}
