package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionNavigate Action = "navigate"
	ActionPause    Action = "pause"
	ActionResume   Action = "resume"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// Navigation directions for ActionNavigate.
const (
	NavGoTo     = "goto"
	NavNext     = "next"
	NavPrevious = "previous"
)

// RequestPayload is the single client message shape. Fields beyond
// Action are populated per action: QID and Answer for autosave,
// Direction and Index for navigate.
type RequestPayload struct {
	Action    Action `json:"action"`
	QID       string `json:"q_id,omitempty"`
	Answer    string `json:"ans,omitempty"`
	Direction string `json:"direction,omitempty"`
	Index     int    `json:"index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventSuccess  Event = "success"
	EventAutosave Event = "autosave"
	EventState    Event = "state"
	EventGraded   Event = "graded"
	EventPong     Event = "pong"
)

// AutosaveResponse reports the visible save status of a question.
type AutosaveResponse struct {
	Event  Event  `json:"event"`
	QID    string `json:"q_id"`
	Status string `json:"status"`
}

// StateResponse reflects the session state after a navigate, pause or
// resume action.
type StateResponse struct {
	Event            Event  `json:"event"`
	Status           string `json:"status"`
	RemainingSeconds int    `json:"remaining_seconds"`
	CurrentQuestion  int    `json:"current_question"`
	CurrentSectionID string `json:"current_section_id"`
	Moved            bool   `json:"moved"`
}

// GradedResponse carries the final outcome after a submit or timeout.
type GradedResponse struct {
	Event      Event  `json:"event"`
	Status     string `json:"status"`
	Score      int    `json:"score"`
	MaxScore   int    `json:"max_score"`
	Percentage int    `json:"percentage"`
	Grade      string `json:"grade"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
