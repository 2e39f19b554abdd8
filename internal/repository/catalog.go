package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/lectern-ai/lectern/internal/domain"
)

// CatalogRepository persists the course catalog collection: one row per
// course, keyed by exact title, with a title embedding used for fuzzy name
// resolution.
type CatalogRepository struct {
	db dbtx
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{db: pool}
}

func NewCatalogRepositoryWithTx(tx dbtx) *CatalogRepository {
	return &CatalogRepository{db: tx}
}

// Create inserts a catalog entry. The title is the primary key; inserting an
// existing title returns domain.ErrCourseAlreadyExists.
func (r *CatalogRepository) Create(ctx context.Context, course *domain.Course, embedding []float32) error {
	lessons, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("failed to marshal lessons: %w", err)
	}

	createdAt := course.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO course_catalog (title, course_link, instructor, lessons, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		course.Title,
		nullableString(course.Link),
		nullableString(course.Instructor),
		lessons,
		pgvector.NewVector(embedding),
		createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCourseAlreadyExists
		}
		return err
	}
	return nil
}

// GetByTitle fetches the catalog entry for an exact title.
func (r *CatalogRepository) GetByTitle(ctx context.Context, title string) (*domain.Course, error) {
	row := r.db.QueryRow(ctx,
		`SELECT title, course_link, instructor, lessons, created_at
		 FROM course_catalog
		 WHERE title = $1`,
		title,
	)
	course, err := scanCourse(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

// ListTitles returns every registered title in lexical order.
func (r *CatalogRepository) ListTitles(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT title FROM course_catalog ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// ResolveByEmbedding returns the title whose embedding is nearest to the
// given vector, or domain.ErrCourseNotFound when the catalog is empty.
func (r *CatalogRepository) ResolveByEmbedding(ctx context.Context, embedding []float32) (string, error) {
	var title string
	err := r.db.QueryRow(ctx,
		`SELECT title
		 FROM course_catalog
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1
		 LIMIT 1`,
		pgvector.NewVector(embedding),
	).Scan(&title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrCourseNotFound
		}
		return "", err
	}
	return title, nil
}

func scanCourse(row pgx.Row) (*domain.Course, error) {
	var (
		course     domain.Course
		link       *string
		instructor *string
		lessons    []byte
	)
	if err := row.Scan(&course.Title, &link, &instructor, &lessons, &course.CreatedAt); err != nil {
		return nil, err
	}
	if link != nil {
		course.Link = *link
	}
	if instructor != nil {
		course.Instructor = *instructor
	}
	if len(lessons) > 0 {
		if err := json.Unmarshal(lessons, &course.Lessons); err != nil {
			return nil, fmt.Errorf("failed to unmarshal lessons: %w", err)
		}
	}
	return &course, nil
}
