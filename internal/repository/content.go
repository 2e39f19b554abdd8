package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/service"
)

// ContentRepository persists the course content collection: one row per
// chunk, ordered by chunk index within each course.
type ContentRepository struct {
	db dbtx
}

func NewContentRepository(pool *pgxpool.Pool) *ContentRepository {
	return &ContentRepository{db: pool}
}

func NewContentRepositoryWithTx(tx dbtx) *ContentRepository {
	return &ContentRepository{db: tx}
}

// ReplaceChunks deletes any stored chunks for the courses present in the
// batch and inserts the new set. Re-processing a course replaces its chunks
// wholesale.
func (r *ContentRepository) ReplaceChunks(ctx context.Context, chunks []domain.Chunk) error {
	titles := make(map[string]struct{})
	for _, c := range chunks {
		titles[c.CourseTitle] = struct{}{}
	}
	for title := range titles {
		if _, err := r.db.Exec(ctx, `DELETE FROM course_chunks WHERE course_title = $1`, title); err != nil {
			return err
		}
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO course_chunks
				(course_title, chunk_index, lesson_number, content, embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6)`,
			c.CourseTitle,
			c.ChunkIndex,
			c.LessonNumber,
			c.Content,
			pgvector.NewVector(c.Embedding),
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// SearchByEmbedding returns the limit chunks nearest to the query vector,
// restricted by the filter. Filter fields compose with AND.
func (r *ContentRepository) SearchByEmbedding(ctx context.Context, embedding []float32, filter domain.SearchFilter, limit int) ([]*service.ChunkMatch, error) {
	query := `SELECT content, course_title, lesson_number
		 FROM course_chunks
		 WHERE embedding IS NOT NULL`
	args := []any{pgvector.NewVector(embedding)}

	if filter.CourseTitle != nil {
		args = append(args, *filter.CourseTitle)
		query += fmt.Sprintf(" AND course_title = $%d", len(args))
	}
	if filter.LessonNumber != nil {
		args = append(args, *filter.LessonNumber)
		query += fmt.Sprintf(" AND lesson_number = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*service.ChunkMatch
	for rows.Next() {
		var m service.ChunkMatch
		if err := rows.Scan(&m.Content, &m.CourseTitle, &m.LessonNumber); err != nil {
			return nil, err
		}
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}
