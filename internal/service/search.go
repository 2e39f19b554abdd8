package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/telemetry"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// CatalogRepositoryInterface defines the repository interface for the course
// catalog collection (one entry per course, used for name resolution).
type CatalogRepositoryInterface interface {
	Create(ctx context.Context, course *domain.Course, embedding []float32) error
	GetByTitle(ctx context.Context, title string) (*domain.Course, error)
	ListTitles(ctx context.Context) ([]string, error)
	ResolveByEmbedding(ctx context.Context, embedding []float32) (string, error)
}

// ContentRepositoryInterface defines the repository interface for the course
// content collection (one entry per chunk).
type ContentRepositoryInterface interface {
	ReplaceChunks(ctx context.Context, chunks []domain.Chunk) error
	SearchByEmbedding(ctx context.Context, embedding []float32, filter domain.SearchFilter, limit int) ([]*ChunkMatch, error)
}

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Catalog() CatalogRepositoryInterface
	Content() ContentRepositoryInterface
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

// ChunkMatch is one retrieved passage: the chunk text plus its provenance.
// Similarity scores stay inside the repository layer.
type ChunkMatch struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
}

// SearchOutcome is the result of a content search. The two empty states are
// distinct: NoCourseMatch means the requested course name resolved to
// nothing; an empty Matches slice with NoCourseMatch unset means the filter
// was valid but nothing relevant was stored.
type SearchOutcome struct {
	Matches         []*ChunkMatch
	ResolvedCourse  string
	RequestedCourse string
	NoCourseMatch   bool
}

// SearchInput carries the public search parameters.
type SearchInput struct {
	Query        string
	CourseName   string
	LessonNumber *int
}

// SearchService owns the two semantic collections and implements fuzzy
// course resolution plus filtered passage retrieval over them.
type SearchService struct {
	catalog    CatalogRepositoryInterface
	content    ContentRepositoryInterface
	embedding  EmbeddingClient
	maxResults int
}

// NewSearchService creates a new SearchService instance.
func NewSearchService(
	catalog CatalogRepositoryInterface,
	content ContentRepositoryInterface,
	embedding EmbeddingClient,
	maxResults int,
) *SearchService {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &SearchService{
		catalog:    catalog,
		content:    content,
		embedding:  embedding,
		maxResults: maxResults,
	}
}

// ResolveCourse maps an informal course name to the single closest exact
// registered title. Returns domain.ErrCourseNotFound when the catalog is
// empty or holds no entry.
func (s *SearchService) ResolveCourse(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.ErrCourseNotFound
	}

	embedding, err := s.embedding.GenerateEmbedding(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to embed course name: %w", err)
	}

	return s.catalog.ResolveByEmbedding(ctx, embedding)
}

// Search runs the public search contract: resolve the course name if one was
// given, compose the filter, and retrieve the top matches. Resolution failure
// and empty results are both non-error outcomes, surfaced distinctly.
func (s *SearchService) Search(ctx context.Context, input SearchInput) (*SearchOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		CourseTitle: input.CourseName,
		Operation:   "search",
	})
	defer span.End()

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	outcome := &SearchOutcome{RequestedCourse: input.CourseName}

	filter := domain.SearchFilter{LessonNumber: input.LessonNumber}
	if strings.TrimSpace(input.CourseName) != "" {
		title, err := s.ResolveCourse(ctx, input.CourseName)
		if err != nil {
			if errors.Is(err, domain.ErrCourseNotFound) {
				outcome.NoCourseMatch = true
				return outcome, nil
			}
			return nil, err
		}
		outcome.ResolvedCourse = title
		filter.CourseTitle = &title
	}

	embedding, err := s.embedding.GenerateEmbedding(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := s.content.SearchByEmbedding(ctx, embedding, filter, s.maxResults)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	outcome.Matches = matches
	return outcome, nil
}

// GetCourse returns the full catalog entry for an exact title.
func (s *SearchService) GetCourse(ctx context.Context, title string) (*domain.Course, error) {
	return s.catalog.GetByTitle(ctx, title)
}

// ListCourseTitles returns every registered exact title.
func (s *SearchService) ListCourseTitles(ctx context.Context) ([]string, error) {
	return s.catalog.ListTitles(ctx)
}
