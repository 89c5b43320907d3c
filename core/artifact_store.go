package core

// ArtifactStore persists binary artifacts scoped by session. Implementations
// must be safe for concurrent use; the artifact package provides an in-memory
// one and the PIPEDA data exports write through this interface.
type ArtifactStore interface {
	Save(sessionID, artifactID string, data []byte) error
	Get(sessionID, artifactID string) ([]byte, error)
	List(sessionID string) ([]string, error)
	Delete(sessionID, artifactID string) error
}
