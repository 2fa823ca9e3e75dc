package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gargallo/neolingus-backend/internal/engine"
	"github.com/gargallo/neolingus-backend/internal/middleware"
	"github.com/gargallo/neolingus-backend/internal/model"
	"github.com/gargallo/neolingus-backend/internal/service"
	ws "github.com/gargallo/neolingus-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the live session WebSocket stream.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/learner/sessions/:session_id/stream
// Upgrades to WebSocket for real-time autosave, navigation and submit.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	ctrl, err := h.sessionService.GetForLearner(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("learner_id", claims.UserID).
		Str("session_id", sessionID.String()).
		Logger()

	wsLog.Info().Msg("Learner connected")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, ctrl, &msg)
		case ws.ActionNavigate:
			h.handleNavigate(conn, ctrl, &msg)
		case ws.ActionPause:
			h.handlePause(conn, ctrl)
		case ws.ActionResume:
			h.handleResume(conn, ctrl)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, ctrl)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// handleAutosave records the answer in the session and reports the
// currently visible save status.
func (h *WSHandler) handleAutosave(conn *websocket.Conn, ctrl *engine.Controller, msg *ws.RequestPayload) {
	if msg.QID == "" {
		ws.WriteError(conn, "q_id is required")
		return
	}

	questionID, err := uuid.Parse(msg.QID)
	if err != nil {
		ws.WriteError(conn, "invalid q_id format")
		return
	}

	if err := ctrl.SetAnswer(questionID, msg.Answer); err != nil {
		h.writeEngineError(conn, err)
		return
	}

	status := string(model.SaveStatusSaving)
	if rec, ok := ctrl.SaveState(questionID); ok {
		status = string(rec.Status)
	}

	ws.WriteTyped(conn, ws.AutosaveResponse{
		Event:  ws.EventAutosave,
		QID:    msg.QID,
		Status: status,
	})
}

// handleNavigate moves the current question pointer.
func (h *WSHandler) handleNavigate(conn *websocket.Conn, ctrl *engine.Controller, msg *ws.RequestPayload) {
	moved := true

	switch msg.Direction {
	case ws.NavGoTo:
		if err := ctrl.GoTo(msg.Index); err != nil {
			h.writeEngineError(conn, err)
			return
		}
	case ws.NavNext:
		ok, err := ctrl.Next()
		if err != nil {
			h.writeEngineError(conn, err)
			return
		}
		moved = ok
	case ws.NavPrevious:
		ok, err := ctrl.Previous()
		if err != nil {
			h.writeEngineError(conn, err)
			return
		}
		moved = ok
	default:
		ws.WriteError(conn, "unknown direction: "+msg.Direction)
		return
	}

	h.writeState(conn, ctrl, moved)
}

func (h *WSHandler) handlePause(conn *websocket.Conn, ctrl *engine.Controller) {
	if err := ctrl.Pause(); err != nil {
		h.writeEngineError(conn, err)
		return
	}
	h.writeState(conn, ctrl, false)
}

func (h *WSHandler) handleResume(conn *websocket.Conn, ctrl *engine.Controller) {
	if err := ctrl.Resume(); err != nil {
		h.writeEngineError(conn, err)
		return
	}
	h.writeState(conn, ctrl, false)
}

// handleSubmit finishes the session and returns the graded result.
// Finish is idempotent, so a submit racing the timeout is safe.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, ctrl *engine.Controller) {
	result, err := ctrl.Finish()
	if err != nil {
		h.writeEngineError(conn, err)
		return
	}

	h.sessionService.Release(ctrl.ID())

	wsLog.Info().
		Int("score", result.TotalScore).
		Int("max_score", result.MaxScore).
		Str("grade", result.Grade).
		Msg("Session submitted and graded")

	ws.WriteTyped(conn, ws.GradedResponse{
		Event:      ws.EventGraded,
		Status:     string(model.SessionStatusCompleted),
		Score:      result.TotalScore,
		MaxScore:   result.MaxScore,
		Percentage: result.Percentage,
		Grade:      result.Grade,
	})
}

func (h *WSHandler) writeState(conn *websocket.Conn, ctrl *engine.Controller, moved bool) {
	snap := ctrl.Snapshot()
	ws.WriteTyped(conn, ws.StateResponse{
		Event:            ws.EventState,
		Status:           string(snap.Status),
		RemainingSeconds: snap.RemainingSeconds,
		CurrentQuestion:  snap.CurrentQuestion,
		CurrentSectionID: snap.CurrentSectionID.String(),
		Moved:            moved,
	})
}

// writeEngineError maps engine errors to client-facing messages.
func (h *WSHandler) writeEngineError(conn *websocket.Conn, err error) {
	var stateErr *engine.InvalidStateError
	var rangeErr *engine.OutOfRangeError

	switch {
	case errors.As(err, &stateErr), errors.As(err, &rangeErr):
		ws.WriteError(conn, err.Error())
	default:
		ws.WriteError(conn, "operation failed")
	}
}
