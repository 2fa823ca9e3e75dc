package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gargallo/neolingus-backend/internal/config"
	"github.com/gargallo/neolingus-backend/internal/engine"
	"github.com/gargallo/neolingus-backend/internal/model"
	"github.com/gargallo/neolingus-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Session domain errors.
var (
	ErrSessionNotFound  = errors.New("no active session")
	ErrSessionNotOwned  = errors.New("session belongs to another learner")
	ErrSessionCompleted = errors.New("session already completed")
	ErrResultNotReady   = errors.New("result not available yet")
)

// SessionService owns the live session registry. Each active session is
// one engine.Controller held in memory; the Redis answer buffer and the
// persisted session row let a session survive a process restart.
type SessionService struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*engine.Controller

	examSvc     *ExamService
	sessionRepo *repository.SessionRepository
	rdb         *redis.Client
	saver       engine.Saver
	sink        engine.ResultSink
	log         zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	examSvc *ExamService,
	sessionRepo *repository.SessionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions:    make(map[uuid.UUID]*engine.Controller),
		examSvc:     examSvc,
		sessionRepo: sessionRepo,
		rdb:         rdb,
		saver:       NewRedisSaver(rdb),
		sink:        NewRedisResultSink(rdb),
		log:         log.With().Str("component", "session_service").Logger(),
	}
}

// Join creates or resumes a learner's session for a published exam and
// returns the live controller. Joining is idempotent: a second join of
// an in-progress session resumes it, a join of a completed session
// returns ErrSessionCompleted.
func (s *SessionService) Join(ctx context.Context, examID uuid.UUID, learnerID int) (*engine.Controller, error) {
	exam, err := s.examSvc.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotPublished
	}

	session := &model.ExamSession{
		ID:        uuid.New(),
		ExamID:    examID,
		LearnerID: learnerID,
	}
	resumed := false
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("create session: %w", err)
		}
		// Conflict: the learner already has a session for this exam.
		session, err = s.sessionRepo.GetByExamAndLearner(ctx, examID, learnerID)
		if err != nil {
			return nil, fmt.Errorf("get session: %w", err)
		}
		resumed = true
	}

	if session.Status == model.SessionStatusCompleted {
		return nil, ErrSessionCompleted
	}

	s.mu.Lock()
	if ctrl, ok := s.sessions[session.ID]; ok {
		s.mu.Unlock()
		if ctrl.Status() == model.SessionStatusCompleted {
			return nil, ErrSessionCompleted
		}
		return ctrl, nil
	}
	s.mu.Unlock()

	ctrl, err := s.spawn(ctx, exam, session, resumed)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// Another goroutine may have spawned the same session concurrently.
	if existing, ok := s.sessions[session.ID]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.sessions[session.ID] = ctrl
	s.mu.Unlock()

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("exam_id", examID.String()).
		Int("learner_id", learnerID).
		Bool("resumed", resumed).
		Msg("Session joined")
	return ctrl, nil
}

// spawn builds and starts a controller for a session row. On resume the
// Redis answer buffer is hydrated and the countdown continues from the
// wall-clock elapsed time.
func (s *SessionService) spawn(ctx context.Context, exam *model.Exam, session *model.ExamSession, resumed bool) (*engine.Controller, error) {
	m, err := s.examSvc.GetExamModel(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("get exam model: %w", err)
	}

	ctrl := engine.NewController(session.ID, m,
		engine.WithSaver(s.saver),
		engine.WithResultSink(s.sink),
		engine.WithLogger(s.log),
	)

	if resumed {
		answers, err := s.bufferedAnswers(ctx, session.ID)
		if err != nil {
			s.log.Warn().Err(err).
				Str("session_id", session.ID.String()).
				Msg("Answer buffer unavailable, resuming without hydration")
		} else if len(answers) > 0 {
			if err := ctrl.Hydrate(answers); err != nil {
				return nil, fmt.Errorf("hydrate answers: %w", err)
			}
		}
	}

	remaining := exam.DurationMinutes * 60
	if resumed {
		remaining -= int(time.Since(session.StartedAt).Seconds())
	}

	if remaining <= 0 {
		// The clock ran out while the learner was away. Grade whatever
		// was buffered and surface the completed state.
		if err := ctrl.Start(1); err != nil {
			return nil, err
		}
		if _, err := ctrl.Finish(); err != nil {
			return nil, err
		}
		return ctrl, ErrSessionCompleted
	}

	if err := ctrl.Start(remaining); err != nil {
		return nil, err
	}
	return ctrl, nil
}

// bufferedAnswers reads the autosaved answers hash for a session.
func (s *SessionService) bufferedAnswers(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]string, error) {
	raw, err := s.rdb.HGetAll(ctx, config.CacheKey.SessionAnswersKey(sessionID.String())).Result()
	if err != nil {
		return nil, err
	}

	answers := make(map[uuid.UUID]string, len(raw))
	for field, value := range raw {
		qid, err := uuid.Parse(field)
		if err != nil {
			s.log.Warn().Str("field", field).Msg("Skipping malformed answer key")
			continue
		}
		answers[qid] = value
	}
	return answers, nil
}

// Get returns the live controller for a session, if loaded.
func (s *SessionService) Get(sessionID uuid.UUID) (*engine.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctrl, ok := s.sessions[sessionID]
	return ctrl, ok
}

// GetForLearner returns the live controller for a session after
// verifying the session belongs to the learner.
func (s *SessionService) GetForLearner(ctx context.Context, sessionID uuid.UUID, learnerID int) (*engine.Controller, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.LearnerID != learnerID {
		return nil, ErrSessionNotOwned
	}

	ctrl, ok := s.Get(sessionID)
	if !ok {
		if session.Status == model.SessionStatusCompleted {
			return nil, ErrSessionCompleted
		}
		return nil, ErrSessionNotFound
	}
	return ctrl, nil
}

// Result returns the final result of a session: from the live
// controller if still loaded, otherwise from the persisted row.
func (s *SessionService) Result(ctx context.Context, sessionID uuid.UUID, learnerID int) (*model.Result, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.LearnerID != learnerID {
		return nil, ErrSessionNotOwned
	}

	if ctrl, ok := s.Get(sessionID); ok {
		if res := ctrl.Result(); res != nil {
			return res, nil
		}
	}

	res, err := s.sessionRepo.GetResult(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotReady
		}
		return nil, err
	}
	return res, nil
}

// Release drops a completed session's controller from the registry.
// The persisted row and the queued result remain authoritative.
func (s *SessionService) Release(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// ActiveCount reports how many sessions are currently loaded.
func (s *SessionService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
