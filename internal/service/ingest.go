package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/telemetry"
)

// DocumentSource supplies parsed course documents by name. Implementations
// parse the structured course-script format; binary extraction is out of
// scope for the core.
type DocumentSource interface {
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, name string) (*domain.CourseDocument, error)
}

// IngestResult summarizes one corpus ingest pass.
type IngestResult struct {
	CoursesAdded int
	ChunksAdded  int
	Skipped      int
	Failed       int
}

// IngestService loads course documents into the two collections. Ingest is
// idempotent: a title already present in the catalog is skipped, and a
// course's catalog entry and chunks are written in a single transaction so
// the collections never drift apart.
type IngestService struct {
	catalog   CatalogRepositoryInterface
	embedding EmbeddingClient
	txRunner  TxRunner
	chunkCfg  ChunkConfig
}

// NewIngestService creates a new IngestService instance.
func NewIngestService(
	catalog CatalogRepositoryInterface,
	embedding EmbeddingClient,
	txRunner TxRunner,
	chunkCfg ChunkConfig,
) *IngestService {
	if chunkCfg.ChunkSize <= 0 {
		chunkCfg = DefaultChunkConfig()
	}
	return &IngestService{
		catalog:   catalog,
		embedding: embedding,
		txRunner:  txRunner,
		chunkCfg:  chunkCfg,
	}
}

// AddCourse ingests one parsed course document. Returns the number of chunks
// written and whether the course was added; a title already registered is
// reported as not added with no error.
func (s *IngestService) AddCourse(ctx context.Context, doc *domain.CourseDocument) (int, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.AddCourse", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	if doc == nil || doc.Course == nil {
		return 0, false, domain.ErrMalformedDocument
	}
	if err := domain.ValidateCourse(doc.Course); err != nil {
		return 0, false, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid course document", err)
	}

	// Pre-check before spending embedding calls; duplicate ingest is a
	// silent skip, not an error.
	existing, err := s.catalog.GetByTitle(ctx, doc.Course.Title)
	if err != nil && !errors.Is(err, domain.ErrCourseNotFound) {
		return 0, false, err
	}
	if existing != nil {
		return 0, false, nil
	}

	catalogEmbedding, err := s.embedding.GenerateEmbedding(ctx, buildCatalogEmbeddingText(doc.Course))
	if err != nil {
		span.SetError(err)
		return 0, false, fmt.Errorf("failed to embed catalog entry: %w", err)
	}

	now := time.Now().UTC()
	doc.Course.CreatedAt = now

	chunks := BuildCourseChunks(doc, s.chunkCfg)
	for i := range chunks {
		embedding, err := s.embedding.GenerateEmbedding(ctx, chunks[i].Content)
		if err != nil {
			span.SetError(err)
			return 0, false, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		chunks[i].Embedding = embedding
		chunks[i].CreatedAt = now
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Catalog().Create(ctx, doc.Course, catalogEmbedding); err != nil {
			return err
		}
		return repos.Content().ReplaceChunks(ctx, chunks)
	})
	if err != nil {
		// A concurrent pass may have inserted the title between the
		// pre-check and the transaction; that is still a skip.
		if errors.Is(err, domain.ErrCourseAlreadyExists) {
			return 0, false, nil
		}
		span.SetError(err)
		return 0, false, err
	}

	return len(chunks), true, nil
}

// IngestAll loads every document the source lists. A document that fails to
// parse is logged and skipped; the rest of the corpus still becomes
// available.
func (s *IngestService) IngestAll(ctx context.Context, source DocumentSource) (*IngestResult, error) {
	names, err := source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	result := &IngestResult{}
	for _, name := range names {
		doc, err := source.Load(ctx, name)
		if err != nil {
			log.Printf("ingest: skipping %s: %v", name, err)
			result.Failed++
			continue
		}

		chunks, added, err := s.AddCourse(ctx, doc)
		if err != nil {
			log.Printf("ingest: failed to add %s: %v", name, err)
			result.Failed++
			continue
		}
		if !added {
			result.Skipped++
			continue
		}
		result.CoursesAdded++
		result.ChunksAdded += chunks
	}

	return result, nil
}

func buildCatalogEmbeddingText(c *domain.Course) string {
	if c.Instructor != "" {
		return c.Title + "\n" + c.Instructor
	}
	return c.Title
}
