package handler

import (
	"errors"
	"net/http"

	"github.com/gargallo/neolingus-backend/internal/middleware"
	"github.com/gargallo/neolingus-backend/internal/response"
	"github.com/gargallo/neolingus-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LearnerPortalHandler handles learner-facing endpoints (lobby, exam taking).
type LearnerPortalHandler struct {
	sessionService *service.SessionService
	examService    *service.ExamService
}

// NewLearnerPortalHandler creates a new LearnerPortalHandler.
func NewLearnerPortalHandler(
	sessionService *service.SessionService,
	examService *service.ExamService,
) *LearnerPortalHandler {
	return &LearnerPortalHandler{
		sessionService: sessionService,
		examService:    examService,
	}
}

// GetLobby godoc
// GET /api/v1/learner/lobby
// Returns the published exams a learner can join.
func (h *LearnerPortalHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	exams, err := h.examService.ListPublished(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// JoinExam godoc
// POST /api/v1/learner/exams/:exam_id/join
// Creates or resumes a session for the exam (idempotent).
func (h *LearnerPortalHandler) JoinExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	ctrl, err := h.sessionService.Join(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExamNotPublished):
			response.Fail(c, http.StatusBadRequest, response.ErrExamNotAvailable)
		case errors.Is(err, service.ErrSessionCompleted):
			response.Fail(c, http.StatusConflict, response.ErrSessionCompleted)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": ctrl.Snapshot()})
}

// GetExamPaper godoc
// GET /api/v1/learner/sessions/:session_id/paper
// Returns the exam payload from Redis (answers stripped).
// Requires an active session — prevents downloading papers without joining.
func (h *LearnerPortalHandler) GetExamPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	ctrl, err := h.sessionService.GetForLearner(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	payload, err := h.examService.GetExamPayload(c.Request.Context(), ctrl.Exam().ExamID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotPublished)
		return
	}

	response.Success(c, http.StatusOK, payload)
}

// GetSessionState godoc
// GET /api/v1/learner/sessions/:session_id/state
// Returns the live state: remaining time, position, answers and save
// statuses. Covers the page reload path.
func (h *LearnerPortalHandler) GetSessionState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	ctrl, err := h.sessionService.GetForLearner(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, ctrl.Snapshot())
}

// GetResult godoc
// GET /api/v1/learner/sessions/:session_id/result
// Returns the final graded result of a completed session.
func (h *LearnerPortalHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.sessionService.Result(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		case errors.Is(err, service.ErrSessionNotOwned):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		case errors.Is(err, service.ErrResultNotReady):
			response.Fail(c, http.StatusConflict, response.ErrResultNotReady)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, result)
}

func (h *LearnerPortalHandler) failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, service.ErrSessionNotOwned):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrSessionCompleted):
		response.Fail(c, http.StatusConflict, response.ErrSessionCompleted)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
