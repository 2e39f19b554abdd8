//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/service"
	"github.com/lectern-ai/lectern/internal/testutil"
)

func setupPool(t *testing.T) (*pgxpool.Pool, func()) {
	ctx := context.Background()
	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")
	cleanup := func() {
		pool.Close()
		_ = pgC.Terminate(ctx)
	}
	return pool, cleanup
}

// unitVector returns a 1536-dim unit vector pointing along the given axis.
func unitVector(axis int) []float32 {
	v := make([]float32, 1536)
	v[axis] = 1
	return v
}

func TestCatalogRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupPool(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewCatalogRepository(pool)

	course := &domain.Course{
		Title:      "Building RAG Agents",
		Link:       "https://example.com/rag",
		Instructor: "Ada Example",
		Lessons: []domain.Lesson{
			{Number: 0, Title: "Introduction", Link: "https://example.com/rag/0"},
			{Number: 1, Title: "Chunking"},
		},
	}

	require.NoError(t, repo.Create(ctx, course, unitVector(0)))

	got, err := repo.GetByTitle(ctx, "Building RAG Agents")
	require.NoError(t, err)
	assert.Equal(t, course.Title, got.Title)
	assert.Equal(t, course.Link, got.Link)
	assert.Equal(t, course.Instructor, got.Instructor)
	assert.Equal(t, course.Lessons, got.Lessons)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCatalogRepository_DuplicateTitle(t *testing.T) {
	pool, cleanup := setupPool(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewCatalogRepository(pool)
	course := &domain.Course{Title: "Once Only"}

	require.NoError(t, repo.Create(ctx, course, unitVector(0)))
	err := repo.Create(ctx, course, unitVector(1))

	assert.ErrorIs(t, err, domain.ErrCourseAlreadyExists)
}

func TestCatalogRepository_GetByTitle_NotFound(t *testing.T) {
	pool, cleanup := setupPool(t)
	defer cleanup()

	repo := NewCatalogRepository(pool)
	_, err := repo.GetByTitle(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrCourseNotFound)
}

func TestCatalogRepository_ResolveByEmbedding(t *testing.T) {
	pool, cleanup := setupPool(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewCatalogRepository(pool)

	require.NoError(t, repo.Create(ctx, &domain.Course{Title: "Course Zero"}, unitVector(0)))
	require.NoError(t, repo.Create(ctx, &domain.Course{Title: "Course One"}, unitVector(1)))

	// A vector near axis 1 resolves to the second course.
	probe := make([]float32, 1536)
	probe[0] = 0.1
	probe[1] = 0.9
	title, err := repo.ResolveByEmbedding(ctx, probe)
	require.NoError(t, err)
	assert.Equal(t, "Course One", title)
}

func TestCatalogRepository_ResolveByEmbedding_EmptyCatalog(t *testing.T) {
	pool, cleanup := setupPool(t)
	defer cleanup()

	repo := NewCatalogRepository(pool)
	_, err := repo.ResolveByEmbedding(context.Background(), unitVector(0))

	assert.ErrorIs(t, err, domain.ErrCourseNotFound)
}

func TestCatalogRepository_ListTitles(t *testing.T) {
	pool, cleanup := setupPool(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewCatalogRepository(pool)

	require.NoError(t, repo.Create(ctx, &domain.Course{Title: "Zeta"}, unitVector(0)))
	require.NoError(t, repo.Create(ctx, &domain.Course{Title: "Alpha"}, unitVector(1)))

	titles, err := repo.ListTitles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Zeta"}, titles)
}

func intPtr(n int) *int { return &n }

func seedCourseWithChunks(t *testing.T, ctx context.Context, pool *pgxpool.Pool, title string) {
	t.Helper()
	catalog := NewCatalogRepository(pool)
	content := NewContentRepository(pool)

	require.NoError(t, catalog.Create(ctx, &domain.Course{Title: title}, unitVector(100)))
	require.NoError(t, content.ReplaceChunks(ctx, []domain.Chunk{
		{CourseTitle: title, ChunkIndex: 0, Content: title + " chunk zero", Embedding: unitVector(0)},
		{CourseTitle: title, ChunkIndex: 1, LessonNumber: intPtr(1), Content: title + " chunk one", Embedding: unitVector(1)},
		{CourseTitle: title, ChunkIndex: 2, LessonNumber: intPtr(2), Content: title + " chunk two", Embedding: unitVector(2)},
	}))
}

func TestContentRepository_SearchByEmbedding(t *testing.T) {
	pool, cleanup := setupPool(t)
	defer cleanup()

	ctx := context.Background()
	content := NewContentRepository(pool)
	seedCourseWithChunks(t, ctx, pool, "Course A")
	seedCourseWithChunks(t, ctx, pool, "Course B")

	// Nearest neighbors across all courses.
	matches, err := content.SearchByEmbedding(ctx, unitVector(1), domain.SearchFilter{}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		require.NotNil(t, m.LessonNumber)
		assert.Equal(t, 1, *m.LessonNumber)
	}

	// Course filter restricts matches.
	courseA := "Course A"
	matches, err = content.SearchByEmbedding(ctx, unitVector(1), domain.SearchFilter{CourseTitle: &courseA}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	for _, m := range matches {
		assert.Equal(t, "Course A", m.CourseTitle)
	}

	// Lesson filter composes with AND.
	matches, err = content.SearchByEmbedding(ctx, unitVector(1), domain.SearchFilter{
		CourseTitle:  &courseA,
		LessonNumber: intPtr(2),
	}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Course A chunk two", matches[0].Content)

	// An unmatched lesson yields no rows, not an error.
	matches, err = content.SearchByEmbedding(ctx, unitVector(1), domain.SearchFilter{
		CourseTitle:  &courseA,
		LessonNumber: intPtr(99),
	}, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestContentRepository_ReplaceChunks(t *testing.T) {
	pool, cleanup := setupPool(t)
	defer cleanup()

	ctx := context.Background()
	content := NewContentRepository(pool)
	seedCourseWithChunks(t, ctx, pool, "Course A")

	// Replacing writes the new set wholesale.
	require.NoError(t, content.ReplaceChunks(ctx, []domain.Chunk{
		{CourseTitle: "Course A", ChunkIndex: 0, Content: "fresh chunk", Embedding: unitVector(5)},
	}))

	matches, err := content.SearchByEmbedding(ctx, unitVector(5), domain.SearchFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "fresh chunk", matches[0].Content)
}

func TestTxRunner_RollsBackOnError(t *testing.T) {
	pool, cleanup := setupPool(t)
	defer cleanup()

	ctx := context.Background()
	runner := NewTxRunner(pool)
	boom := errors.New("boom")

	err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
		if err := repos.Catalog().Create(ctx, &domain.Course{Title: "Doomed"}, unitVector(0)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = NewCatalogRepository(pool).GetByTitle(ctx, "Doomed")
	assert.ErrorIs(t, err, domain.ErrCourseNotFound)
}

func TestTxRunner_CommitsCatalogAndChunksTogether(t *testing.T) {
	pool, cleanup := setupPool(t)
	defer cleanup()

	ctx := context.Background()
	runner := NewTxRunner(pool)

	err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
		if err := repos.Catalog().Create(ctx, &domain.Course{Title: "Atomic"}, unitVector(0)); err != nil {
			return err
		}
		return repos.Content().ReplaceChunks(ctx, []domain.Chunk{
			{CourseTitle: "Atomic", ChunkIndex: 0, Content: "c", Embedding: unitVector(3)},
		})
	})
	require.NoError(t, err)

	course, err := NewCatalogRepository(pool).GetByTitle(ctx, "Atomic")
	require.NoError(t, err)
	assert.Equal(t, "Atomic", course.Title)

	matches, err := NewContentRepository(pool).SearchByEmbedding(ctx, unitVector(3), domain.SearchFilter{}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
}
