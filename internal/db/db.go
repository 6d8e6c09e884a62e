package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"course-rag/internal/config"
	"course-rag/internal/index"
)

// MaterialChunk is one indexed chunk row. Embedding holds the pgvector
// literal form ("[x,y,...]"); the column is created as vector(N) in Init.
type MaterialChunk struct {
	bun.BaseModel `bun:"table:material_chunks,alias:mc"`

	ID         int64   `bun:"id,pk,autoincrement"`
	ChunkKey   string  `bun:"chunk_key,notnull,unique"`
	Subject    string  `bun:"subject,notnull"`
	MaterialID string  `bun:"material_id,notnull"`
	Source     string  `bun:"source,notnull"`
	Page       int     `bun:"page,notnull"`
	Ordinal    int     `bun:"ordinal,notnull"`
	Content    string  `bun:"content,notnull"`
	Model      string  `bun:"model,notnull"`
	Embedding  string  `bun:"embedding,notnull"`
	Distance   float64 `bun:"distance,scanonly"`
}

func ConnectDB(cfg *config.IndexConfig) *sql.DB {
	return sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithPassword(cfg.Password),
	))
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(debug)))
	return db
}

// InitDB creates the pgvector extension and the chunk table. The embedding
// dimension is fixed at table creation and must match the embedder config.
func InitDB(ctx context.Context, db *bun.DB, vectorSize int) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS material_chunks (
		id BIGSERIAL PRIMARY KEY,
		chunk_key TEXT NOT NULL UNIQUE,
		subject TEXT NOT NULL,
		material_id TEXT NOT NULL,
		source TEXT NOT NULL,
		page INT NOT NULL,
		ordinal INT NOT NULL,
		content TEXT NOT NULL,
		model TEXT NOT NULL,
		embedding vector(%d) NOT NULL
	)`, vectorSize)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create material_chunks table: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS material_chunks_subject_idx ON material_chunks (subject)"); err != nil {
		return fmt.Errorf("failed to create subject index: %w", err)
	}
	return nil
}

// Store implements index.Index on Postgres with the pgvector extension.
type Store struct {
	db *bun.DB
}

var _ index.Index = (*Store)(nil)

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Upsert(ctx context.Context, subject string, entry index.Entry) error {
	row := &MaterialChunk{
		ChunkKey:   entry.ChunkID,
		Subject:    subject,
		MaterialID: entry.Metadata.MaterialID,
		Source:     entry.Metadata.Source,
		Page:       entry.Metadata.Page,
		Ordinal:    entry.Metadata.Ordinal,
		Content:    entry.Metadata.Content,
		Model:      entry.Metadata.Model,
		Embedding:  vectorLiteral(entry.Vector),
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (chunk_key) DO UPDATE").
		Set("content = EXCLUDED.content").
		Set("embedding = EXCLUDED.embedding").
		Set("model = EXCLUDED.model").
		Set("page = EXCLUDED.page").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert chunk: %w", err)
	}
	return nil
}

func (s *Store) DeleteMaterial(ctx context.Context, subject, materialID string) error {
	_, err := s.db.NewDelete().
		Model((*MaterialChunk)(nil)).
		Where("subject = ?", subject).
		Where("material_id = ?", materialID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete material chunks: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, subject string, vector []float32, topK int) ([]index.Result, error) {
	if topK <= 0 {
		topK = 5
	}
	lit := vectorLiteral(vector)
	var rows []MaterialChunk
	err := s.db.NewSelect().
		Model(&rows).
		ColumnExpr("mc.*").
		ColumnExpr("mc.embedding <=> ? AS distance", lit).
		Where("mc.subject = ?", subject).
		OrderExpr("mc.embedding <=> ?", lit).
		Limit(topK).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	results := make([]index.Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, index.Result{
			ChunkID: row.ChunkKey,
			// <=> is cosine distance; similarity is its complement.
			Score: float32(1 - row.Distance),
			Metadata: index.Metadata{
				Subject:    row.Subject,
				MaterialID: row.MaterialID,
				Source:     row.Source,
				Page:       row.Page,
				Ordinal:    row.Ordinal,
				Content:    row.Content,
				Model:      row.Model,
			},
		})
	}
	return results, nil
}

func (s *Store) ListNamespaces(ctx context.Context) ([]string, error) {
	var subjects []string
	err := s.db.NewSelect().
		Model((*MaterialChunk)(nil)).
		ColumnExpr("DISTINCT subject").
		OrderExpr("subject").
		Scan(ctx, &subjects)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	return subjects, nil
}

func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
