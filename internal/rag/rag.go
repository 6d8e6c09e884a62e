package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"golang.org/x/sync/errgroup"

	"course-rag/internal/chunker"
	"course-rag/internal/config"
	"course-rag/internal/helper"
	"course-rag/internal/index"
	"course-rag/internal/models"
	"course-rag/internal/parser"
)

// Synthesizer turns retrieved passages plus a question into an answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, passages []string) (string, error)
}

// Service wires the ingestion and retrieval pipelines: parse -> chunk ->
// embed -> index on upload, embed -> query -> synthesize on question.
type Service struct {
	cfg      *config.Config
	splitter *chunker.Splitter
	embedder embeddings.Embedder
	synth    Synthesizer
	idx      index.Index
}

func NewService(cfg *config.Config, embedder embeddings.Embedder, synth Synthesizer, idx index.Index) *Service {
	return &Service{
		cfg:      cfg,
		splitter: chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		embedder: embedder,
		synth:    synth,
		idx:      idx,
	}
}

// ProcessMaterial runs the ingestion pipeline for one uploaded material under
// the given subject namespace. Chunks of a previously uploaded material with
// the same filename are replaced, not duplicated.
func (s *Service) ProcessMaterial(ctx context.Context, subject, filename string, data []byte) (models.IngestReport, error) {
	runID, _ := helper.GenerateUUID()
	report := models.IngestReport{
		RunID:      runID,
		Subject:    subject,
		Source:     filename,
		MaterialID: helper.MaterialID(subject, filename),
		State:      models.StateReceived,
	}
	logger := log.With().
		Str("run_id", runID).
		Str("subject", subject).
		Str("source", filename).
		Logger()

	if strings.TrimSpace(subject) == "" {
		return s.fail(report, "receive", fmt.Errorf("%w: subject is required", models.ErrInvalidInput))
	}
	if strings.TrimSpace(filename) == "" {
		return s.fail(report, "receive", fmt.Errorf("%w: filename is required", models.ErrInvalidInput))
	}
	if len(data) == 0 {
		return s.fail(report, "receive", fmt.Errorf("%w: file is empty", models.ErrInvalidInput))
	}

	doc, err := parser.Extract(filename, data)
	if err != nil {
		return s.fail(report, "load", err)
	}
	report.State = models.StateLoaded

	chunks := s.split(doc)
	report.State = models.StateChunked
	if len(chunks) == 0 {
		// Empty material is a no-op, not an error.
		logger.Warn().Msg("Material produced no chunks, nothing to index")
		report.State = models.StateComplete
		report.Note = "no text content found, zero chunks indexed"
		return report, nil
	}
	logger.Debug().Int("chunks", len(chunks)).Msg("Material chunked")

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return s.fail(report, "embed", err)
	}
	report.State = models.StateEmbedded

	failed, err := s.indexChunks(ctx, subject, report.MaterialID, filename, chunks, vectors)
	if err != nil {
		report.FailedOrdinals = failed
		report.ChunksIndexed = len(chunks) - len(failed)
		return s.fail(report, "index", err)
	}
	report.State = models.StateIndexed

	report.State = models.StateComplete
	report.ChunksIndexed = len(chunks)
	logger.Info().Int("chunks_indexed", report.ChunksIndexed).Msg("Material ingested")
	return report, nil
}

// AskQuestion runs the retrieval pipeline: embed the question, fetch the
// top-k neighbors from the subject's namespace, synthesize an answer. A
// subject with no indexed chunks short-circuits to a deterministic answer.
func (s *Service) AskQuestion(ctx context.Context, subject, question string) (models.Answer, error) {
	if strings.TrimSpace(subject) == "" {
		return models.Answer{}, fmt.Errorf("%w: subject is required", models.ErrInvalidInput)
	}
	if strings.TrimSpace(question) == "" {
		return models.Answer{}, fmt.Errorf("%w: question is required", models.ErrInvalidInput)
	}

	var queryVec []float32
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		queryVec, err = s.embedder.EmbedQuery(ctx, question)
		return err
	})
	if err != nil {
		if isPermanent(err) {
			return models.Answer{}, models.FailStep("embed", err)
		}
		return models.Answer{}, models.FailStep("embed",
			fmt.Errorf("%w: %v", models.ErrEmbeddingUnavailable, err))
	}

	var results []index.Result
	err = s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		results, err = s.idx.Query(ctx, subject, queryVec, s.cfg.RAG.TopK)
		return err
	})
	if err != nil {
		return models.Answer{}, models.FailStep("query", err)
	}
	if len(results) == 0 {
		log.Debug().Str("subject", subject).Msg("No chunks indexed for subject")
		return models.Answer{Text: models.NoMaterialAnswer}, nil
	}
	if m := results[0].Metadata.Model; m != "" && m != s.cfg.Embedder.Model {
		log.Warn().
			Str("subject", subject).
			Str("indexed_model", m).
			Str("configured_model", s.cfg.Embedder.Model).
			Msg("Embedding model mismatch between index and query")
	}

	passages := make([]string, 0, len(results))
	citations := make([]models.Citation, 0, len(results))
	for _, r := range results {
		passages = append(passages, r.Metadata.Content)
		citations = append(citations, models.Citation{
			MaterialID: r.Metadata.MaterialID,
			Source:     r.Metadata.Source,
			Page:       r.Metadata.Page,
			Ordinal:    r.Metadata.Ordinal,
			Content:    r.Metadata.Content,
			Score:      r.Score,
		})
	}

	var text string
	err = s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		text, err = s.synth.Synthesize(ctx, question, passages)
		return err
	})
	if err != nil {
		if isPermanent(err) {
			return models.Answer{}, models.FailStep("synthesize", err)
		}
		return models.Answer{}, models.FailStep("synthesize",
			fmt.Errorf("%w: %v", models.ErrSynthesisUnavailable, err))
	}

	return models.Answer{Text: text, Citations: citations}, nil
}

// Subjects lists the namespaces that have received at least one chunk.
func (s *Service) Subjects(ctx context.Context) ([]string, error) {
	return s.idx.ListNamespaces(ctx)
}

func (s *Service) split(doc *parser.Document) []models.Chunk {
	var chunks []models.Chunk
	ordinal := 0
	for _, page := range doc.Pages {
		for _, content := range s.splitter.Split(page.Text) {
			chunks = append(chunks, models.Chunk{
				Content: content,
				Page:    page.Number,
				Ordinal: ordinal,
			})
			ordinal++
		}
	}
	return chunks
}

// embedChunks embeds all chunks in provider-sized batches, each batch under
// the retry policy. Vector dimensionality is checked against the configured
// embedding dimension so a model swap cannot silently corrupt a namespace.
func (s *Service) embedChunks(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	batchSize := s.cfg.Embedder.BatchSize
	vectors := make([][]float32, 0, len(chunks))
	for lo := 0; lo < len(chunks); lo += batchSize {
		hi := lo + batchSize
		if hi > len(chunks) {
			hi = len(chunks)
		}
		texts := make([]string, 0, hi-lo)
		for _, c := range chunks[lo:hi] {
			texts = append(texts, c.Content)
		}

		var batch [][]float32
		err := s.withRetry(ctx, func(ctx context.Context) error {
			var err error
			batch, err = s.embedder.EmbedDocuments(ctx, texts)
			return err
		})
		if err != nil {
			if isPermanent(err) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingUnavailable, err)
		}
		for _, vec := range batch {
			if dim := s.cfg.Embedder.Dimension; dim > 0 && len(vec) != dim {
				return nil, fmt.Errorf("embedding dimension %d does not match configured %d", len(vec), dim)
			}
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	return vectors, nil
}

// indexChunks replaces the material's prior chunk set, then upserts all
// chunks concurrently with bounded fan-out. The pipeline waits for every
// upsert before reporting; failed ordinals are returned for targeted
// re-ingestion.
func (s *Service) indexChunks(ctx context.Context, subject, materialID, source string, chunks []models.Chunk, vectors [][]float32) ([]int, error) {
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.idx.DeleteMaterial(ctx, subject, materialID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clear prior chunks: %w", err)
	}

	var (
		mu     sync.Mutex
		failed []int
	)
	g := &errgroup.Group{}
	g.SetLimit(s.cfg.RAG.IndexConcurrency)
	for i := range chunks {
		if ctx.Err() != nil {
			break
		}
		chunk, vec := chunks[i], vectors[i]
		g.Go(func() error {
			entry := index.Entry{
				ChunkID: fmt.Sprintf("%s-%d", materialID, chunk.Ordinal),
				Vector:  vec,
				Metadata: index.Metadata{
					Subject:    subject,
					MaterialID: materialID,
					Source:     source,
					Page:       chunk.Page,
					Ordinal:    chunk.Ordinal,
					Content:    chunk.Content,
					Model:      s.cfg.Embedder.Model,
				},
			}
			if err := s.withRetry(ctx, func(ctx context.Context) error {
				return s.idx.Upsert(ctx, subject, entry)
			}); err != nil {
				mu.Lock()
				failed = append(failed, chunk.Ordinal)
				mu.Unlock()
				log.Error().Err(err).
					Str("subject", subject).
					Int("ordinal", chunk.Ordinal).
					Msg("Chunk upsert failed")
			}
			return nil
		})
	}
	_ = g.Wait()
	if cErr := ctx.Err(); cErr != nil {
		return failed, cErr
	}
	if len(failed) > 0 {
		sort.Ints(failed)
		return failed, fmt.Errorf("%d of %d chunk upserts failed (ordinals %v)", len(failed), len(chunks), failed)
	}
	return nil, nil
}

func (s *Service) fail(report models.IngestReport, step string, err error) (models.IngestReport, error) {
	report.State = models.StateFailed
	log.Error().Err(err).
		Str("run_id", report.RunID).
		Str("subject", report.Subject).
		Str("step", step).
		Msg("Ingestion failed")
	return report, models.FailStep(step, err)
}
