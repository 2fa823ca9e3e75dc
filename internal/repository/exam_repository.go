package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gargallo/neolingus-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamRepository handles exam data access. The question hierarchy is
// stored as a JSONB model document alongside the exam row.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, language, level, author_id, duration_minutes, status, created_at, updated_at
		 FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.Language, &e.Level, &e.AuthorID,
		&e.DurationMinutes, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetModel retrieves the full question hierarchy of an exam, answers included.
func (r *ExamRepository) GetModel(ctx context.Context, id uuid.UUID) (*model.ExamModel, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT model FROM exams WHERE id = $1`, id,
	).Scan(&raw)
	if err != nil {
		return nil, err
	}

	m := &model.ExamModel{}
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("unmarshal exam model: %w", err)
	}
	return m, nil
}

// Create inserts a new exam together with its model document.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam, m *model.ExamModel) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal exam model: %w", err)
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (id, title, language, level, author_id, duration_minutes, status, model)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		e.ID, e.Title, e.Language, e.Level, e.AuthorID, e.DurationMinutes, e.Status, raw,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
}

// UpdateStatus updates an exam's status.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ExamStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// ListByAuthorPaginated retrieves exams filtered by author with pagination.
func (r *ExamRepository) ListByAuthorPaginated(ctx context.Context, authorID, limit, offset int) ([]model.Exam, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exams WHERE author_id = $1`, authorID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, title, language, level, author_id, duration_minutes, status, created_at, updated_at
		 FROM exams WHERE author_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, authorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.Language, &e.Level, &e.AuthorID,
			&e.DurationMinutes, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		exams = append(exams, e)
	}
	return exams, total, rows.Err()
}

// ListPublished returns all exams with PUBLISHED status.
// Used for the learner lobby and for cache prewarming on startup.
func (r *ExamRepository) ListPublished(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, language, level, author_id, duration_minutes, status, created_at, updated_at
		 FROM exams WHERE status = $1
		 ORDER BY created_at DESC`, model.ExamStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.Language, &e.Level, &e.AuthorID,
			&e.DurationMinutes, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}
