package chromemdb

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/philippgille/chromem-go"

	"course-rag/internal/index"
)

// Store is a chromem-go backed vector index. Each subject maps to one
// chromem collection, which gives namespace isolation for free.
type Store struct {
	db *chromem.DB
}

var _ index.Index = (*Store)(nil)

// New opens a persistent store under dbPath.
func New(dbPath string, compress bool) (*Store, error) {
	db, err := chromem.NewPersistentDB(dbPath, compress)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewInMemory returns a non-persisted store, used by tests and dry runs.
func NewInMemory() *Store {
	return &Store{db: chromem.NewDB()}
}

func (s *Store) Upsert(ctx context.Context, subject string, entry index.Entry) error {
	col, err := s.db.GetOrCreateCollection(subject, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %w", err)
	}
	doc := chromem.Document{
		ID:        entry.ChunkID,
		Content:   entry.Metadata.Content,
		Metadata:  encodeMetadata(entry.Metadata),
		Embedding: entry.Vector,
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	return nil
}

func (s *Store) DeleteMaterial(ctx context.Context, subject, materialID string) error {
	col := s.db.GetCollection(subject, nil)
	if col == nil {
		return nil
	}
	if err := col.Delete(ctx, map[string]string{"material_id": materialID}, nil); err != nil {
		return fmt.Errorf("failed to delete material chunks: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, subject string, vector []float32, topK int) ([]index.Result, error) {
	col := s.db.GetCollection(subject, nil)
	if col == nil {
		return nil, nil
	}
	// chromem rejects queries asking for more results than stored docs.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if topK <= 0 || topK > count {
		topK = count
	}
	res, err := col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	results := make([]index.Result, 0, len(res))
	for _, r := range res {
		md := decodeMetadata(r.Metadata)
		md.Subject = subject
		md.Content = r.Content
		results = append(results, index.Result{
			ChunkID:  r.ID,
			Score:    r.Similarity,
			Metadata: md,
		})
	}
	return results, nil
}

func (s *Store) ListNamespaces(ctx context.Context) ([]string, error) {
	cols := s.db.ListCollections()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func encodeMetadata(md index.Metadata) map[string]string {
	return map[string]string{
		"material_id": md.MaterialID,
		"source":      md.Source,
		"page":        strconv.Itoa(md.Page),
		"ordinal":     strconv.Itoa(md.Ordinal),
		"model":       md.Model,
	}
}

func decodeMetadata(m map[string]string) index.Metadata {
	page, _ := strconv.Atoi(m["page"])
	ordinal, _ := strconv.Atoi(m["ordinal"])
	return index.Metadata{
		MaterialID: m["material_id"],
		Source:     m["source"],
		Page:       page,
		Ordinal:    ordinal,
		Model:      m["model"],
	}
}
