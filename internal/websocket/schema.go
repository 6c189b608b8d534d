package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionNavigate Action = "navigate"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestEnvelope carries every client action; unused fields stay zero.
type RequestEnvelope struct {
	Action Action `json:"action"`

	// answer
	QuestionID string `json:"question_id,omitempty"`
	Choice     int    `json:"choice,omitempty"`

	// navigate
	Index int `json:"index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick      Event = "tick"
	EventAnswered  Event = "answered"
	EventMoved     Event = "moved"
	EventFinalized Event = "finalized"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// TickEvent is pushed once per second while the attempt is live.
type TickEvent struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
	AnsweredCount    int   `json:"answered_count"`
}

// AnsweredEvent acknowledges a recorded answer.
type AnsweredEvent struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
	Choice     int    `json:"choice"`
}

// MovedEvent acknowledges a navigation.
type MovedEvent struct {
	Event Event `json:"event"`
	Index int   `json:"index"`
}

// FinalizedEvent carries the frozen top-line result.
type FinalizedEvent struct {
	Event          Event  `json:"event"`
	Reason         string `json:"reason"` // "submit" or "timeout"
	Score          int    `json:"score"`
	Total          int    `json:"total"`
	Percentage     int    `json:"percentage"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
