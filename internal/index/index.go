package index

import "context"

// Metadata travels with every stored vector so retrieval can cite its source.
type Metadata struct {
	Subject    string
	MaterialID string
	Source     string
	Page       int
	Ordinal    int
	Content    string
	Model      string
}

// Entry is one chunk vector to store. ChunkID is unique by construction
// (material id + chunk ordinal), which makes upserts idempotent.
type Entry struct {
	ChunkID  string
	Vector   []float32
	Metadata Metadata
}

// Result is one retrieved neighbor, ranked by similarity descending.
type Result struct {
	ChunkID  string
	Score    float32
	Metadata Metadata
}

// Index is a namespace-scoped vector store. A namespace holds one subject's
// chunks; namespaces are created implicitly on first upsert. Querying a
// namespace that does not exist returns an empty result set, not an error.
type Index interface {
	Upsert(ctx context.Context, subject string, entry Entry) error
	DeleteMaterial(ctx context.Context, subject, materialID string) error
	Query(ctx context.Context, subject string, vector []float32, topK int) ([]Result, error)
	ListNamespaces(ctx context.Context) ([]string, error)
}
