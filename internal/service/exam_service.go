package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gargallo/neolingus-backend/internal/config"
	"github.com/gargallo/neolingus-backend/internal/model"
	"github.com/gargallo/neolingus-backend/internal/repository"
	"github.com/gargallo/neolingus-backend/internal/response"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain Errors
var (
	ErrNotExamAuthor    = errors.New("not the author of this exam")
	ErrNoQuestions      = errors.New("exam has no questions, cannot publish")
	ErrExamNotDraft     = errors.New("exam status is not DRAFT")
	ErrExamNotPublished = errors.New("exam status is not PUBLISHED")
)

// ExamService handles exam business logic and Redis caching.
type ExamService struct {
	examRepo    *repository.ExamRepository
	sessionRepo *repository.SessionRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	sessionRepo *repository.SessionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:    examRepo,
		sessionRepo: sessionRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam by its UUID.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.examRepo.GetByID(ctx, id)
}

// ListByAuthor retrieves a teacher's exams, paginated.
func (s *ExamService) ListByAuthor(ctx context.Context, authorID, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	exams, total, err := s.examRepo.ListByAuthorPaginated(ctx, authorID, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if exams == nil {
		exams = []model.Exam{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}

	return exams, pagination, nil
}

// ListPublished retrieves published exams for the learner lobby.
func (s *ExamService) ListPublished(ctx context.Context) ([]model.Exam, error) {
	exams, err := s.examRepo.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	return exams, nil
}

// Create builds a DRAFT exam and its question model from the request,
// assigning IDs and global question numbers in document order.
func (s *ExamService) Create(ctx context.Context, authorID int, req *model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		ID:              uuid.New(),
		Title:           req.Title,
		Language:        req.Language,
		Level:           req.Level,
		AuthorID:        authorID,
		DurationMinutes: req.DurationMinutes,
		Status:          model.ExamStatusDraft,
	}

	m := &model.ExamModel{
		ExamID:          exam.ID,
		Title:           exam.Title,
		DurationMinutes: exam.DurationMinutes,
		Sections:        make([]model.Section, 0, len(req.Sections)),
	}

	number := 0
	for _, sr := range req.Sections {
		section := model.Section{
			ID:              uuid.New(),
			Name:            sr.Name,
			DurationMinutes: sr.DurationMinutes,
			Parts:           make([]model.Part, 0, len(sr.Parts)),
		}
		for _, pr := range sr.Parts {
			part := model.Part{
				ID:              uuid.New(),
				Name:            pr.Name,
				DurationMinutes: pr.DurationMinutes,
				Questions:       make([]model.Question, 0, len(pr.Questions)),
			}
			for _, qr := range pr.Questions {
				number++
				part.Questions = append(part.Questions, model.Question{
					ID:            uuid.New(),
					Number:        number,
					Type:          model.QuestionType(qr.Type),
					Text:          qr.Text,
					Options:       qr.Options,
					CorrectAnswer: qr.CorrectAnswer,
					Points:        qr.Points,
					WordLimit:     qr.WordLimit,
				})
			}
			section.Parts = append(section.Parts, part)
		}
		m.Sections = append(m.Sections, section)
	}

	if err := s.examRepo.Create(ctx, exam, m); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	s.log.Info().
		Str("exam_id", exam.ID.String()).
		Int("questions", number).
		Msg("Exam created")
	return exam, nil
}

// Publish changes exam status to PUBLISHED and caches the payload, the
// full model and the duration in Redis. This is the critical path that
// lets the live session layer avoid PostgreSQL entirely.
func (s *ExamService) Publish(ctx context.Context, examID uuid.UUID, authorID int) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}

	if exam.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}

	if err := s.WarmExamCache(ctx, exam); err != nil {
		return err
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("exam_id", examID.String()).Msg("Exam published")
	return nil
}

// WarmExamCache loads an exam's learner payload and full model from
// PostgreSQL into Redis. Used by Publish and PrewarmAllCaches.
func (s *ExamService) WarmExamCache(ctx context.Context, exam *model.Exam) error {
	m, err := s.examRepo.GetModel(ctx, exam.ID)
	if err != nil {
		return fmt.Errorf("get exam model: %w", err)
	}
	if m.TotalQuestions() == 0 {
		return ErrNoQuestions
	}

	payload := buildPayload(exam, m)

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	modelJSON, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}

	examID := exam.ID.String()

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ExamPayloadKey(examID), payloadJSON, 0)
	pipe.Set(ctx, config.CacheKey.ExamModelKey(examID), modelJSON, 0)
	pipe.Set(ctx, config.CacheKey.ExamDurationKey(examID), exam.DurationMinutes, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("exam_id", examID).
		Int("questions", m.TotalQuestions()).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all published exams into Redis on application
// startup. This prevents lazy-loading races under thundering herd traffic.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	exams, err := s.examRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published exams: %w", err)
	}

	if len(exams) == 0 {
		s.log.Info().Msg("No published exams to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(exams)).Msg("Prewarming published exams...")

	warmed := 0
	for i := range exams {
		if err := s.WarmExamCache(ctx, &exams[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("exam_id", exams[i].ID.String()).
				Msg("Failed to warm exam, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(exams)).
		Msg("Prewarming complete")
	return nil
}

// GetExamPayload retrieves the cached learner payload from Redis.
func (s *ExamService) GetExamPayload(ctx context.Context, examID uuid.UUID) (*model.ExamPayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(examID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrExamNotPublished
		}
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.ExamPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

// GetExamModel retrieves the full exam model, Redis first with a
// PostgreSQL fallback. The model includes correct answers and must
// never reach a learner-facing response.
func (s *ExamService) GetExamModel(ctx context.Context, examID uuid.UUID) (*model.ExamModel, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ExamModelKey(examID.String())).Bytes()
	if err == nil {
		m := &model.ExamModel{}
		if uerr := json.Unmarshal(data, m); uerr == nil {
			return m, nil
		}
		s.log.Warn().Str("exam_id", examID.String()).Msg("Corrupt cached model, falling back to DB")
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get model: %w", err)
	}

	return s.examRepo.GetModel(ctx, examID)
}

// ListResults retrieves the learner results of an exam for its author.
func (s *ExamService) ListResults(ctx context.Context, examID uuid.UUID, authorID, page, perPage int) ([]repository.LearnerResult, *response.Pagination, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, nil, err
	}
	if exam.AuthorID != authorID {
		return nil, nil, ErrNotExamAuthor
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	results, total, err := s.sessionRepo.ListByExam(ctx, examID, page, perPage)
	if err != nil {
		return nil, nil, err
	}
	if results == nil {
		results = []repository.LearnerResult{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: (int(total) + perPage - 1) / perPage,
	}

	return results, pagination, nil
}

// buildPayload derives the learner-safe payload from the full model,
// stripping correct answers.
func buildPayload(exam *model.Exam, m *model.ExamModel) *model.ExamPayload {
	payload := &model.ExamPayload{
		ExamID:          exam.ID,
		Title:           exam.Title,
		Language:        exam.Language,
		Level:           exam.Level,
		DurationMinutes: exam.DurationMinutes,
		Sections:        make([]model.PayloadSection, 0, len(m.Sections)),
	}

	for _, sec := range m.Sections {
		ps := model.PayloadSection{
			ID:              sec.ID,
			Name:            sec.Name,
			DurationMinutes: sec.DurationMinutes,
			Parts:           make([]model.PayloadPart, 0, len(sec.Parts)),
		}
		for _, part := range sec.Parts {
			pp := model.PayloadPart{
				ID:        part.ID,
				Name:      part.Name,
				Questions: make([]model.PayloadQuestion, 0, len(part.Questions)),
			}
			for _, q := range part.Questions {
				pp.Questions = append(pp.Questions, model.PayloadQuestion{
					ID:        q.ID,
					Number:    q.Number,
					Type:      q.Type,
					Text:      q.Text,
					Options:   q.Options,
					Points:    q.Points,
					WordLimit: q.WordLimit,
				})
			}
			ps.Parts = append(ps.Parts, pp)
		}
		payload.Sections = append(payload.Sections, ps)
	}

	return payload
}
