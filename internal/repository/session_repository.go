package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gargallo/neolingus-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LearnerResult combines learner data with their session outcome.
type LearnerResult struct {
	LearnerID  int                 `json:"learner_id"`
	Name       string              `json:"name"`
	Email      string              `json:"email"`
	FinalScore *int                `json:"score"`
	Status     model.SessionStatus `json:"status"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt *time.Time          `json:"finished_at"`
}

// SessionRepository handles exam session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// GetByExamAndLearner retrieves a session for a specific exam-learner combination.
func (r *SessionRepository) GetByExamAndLearner(ctx context.Context, examID uuid.UUID, learnerID int) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, learner_id, status, started_at, finished_at, final_score
		 FROM exam_sessions
		 WHERE exam_id = $1 AND learner_id = $2`, examID, learnerID,
	).Scan(&s.ID, &s.ExamID, &s.LearnerID, &s.Status, &s.StartedAt, &s.FinishedAt, &s.FinalScore)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a session by its UUID.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, learner_id, status, started_at, finished_at, final_score
		 FROM exam_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.ExamID, &s.LearnerID, &s.Status, &s.StartedAt, &s.FinishedAt, &s.FinalScore)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new exam session (learner joins the exam).
// The (exam_id, learner_id) pair is unique, so a second join is a no-op.
func (r *SessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (id, exam_id, learner_id, status)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (exam_id, learner_id) DO NOTHING
		 RETURNING id, started_at`,
		s.ID, s.ExamID, s.LearnerID, model.SessionStatusInProgress,
	).Scan(&s.ID, &s.StartedAt)
	if err != nil {
		return err
	}
	s.Status = model.SessionStatusInProgress
	return nil
}

// Complete marks a session as completed with its final score and the
// full result document.
func (r *SessionRepository) Complete(ctx context.Context, sessionID uuid.UUID, score int, result *model.Result, finishedAt time.Time) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, final_score = $2, result = $3, finished_at = $4
		 WHERE id = $5`,
		model.SessionStatusCompleted, score, raw, finishedAt, sessionID)
	return err
}

// GetResult retrieves the stored result document of a completed session.
func (r *SessionRepository) GetResult(ctx context.Context, sessionID uuid.UUID) (*model.Result, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT result FROM exam_sessions
		 WHERE id = $1 AND status = $2`, sessionID, model.SessionStatusCompleted,
	).Scan(&raw)
	if err != nil {
		return nil, err
	}

	res := &model.Result{}
	if err := json.Unmarshal(raw, res); err != nil {
		return nil, err
	}
	return res, nil
}

// ListByExam retrieves learner results for a specific exam, paginated.
func (r *SessionRepository) ListByExam(ctx context.Context, examID uuid.UUID, page, perPage int) ([]LearnerResult, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM exam_sessions es
		 JOIN learners l ON es.learner_id = l.id
		 WHERE es.exam_id = $1`, examID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT l.id, l.name, l.email, es.final_score, es.status, es.started_at, es.finished_at
		 FROM exam_sessions es
		 JOIN learners l ON es.learner_id = l.id
		 WHERE es.exam_id = $1
		 ORDER BY l.name ASC
		 LIMIT $2 OFFSET $3`, examID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []LearnerResult
	for rows.Next() {
		var lr LearnerResult
		if err := rows.Scan(&lr.LearnerID, &lr.Name, &lr.Email,
			&lr.FinalScore, &lr.Status, &lr.StartedAt, &lr.FinishedAt); err != nil {
			return nil, 0, err
		}
		results = append(results, lr)
	}
	return results, total, rows.Err()
}
