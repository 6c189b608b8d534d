package handler

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/attempt"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/middleware"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/model"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/service"
	ws "github.com/TONMAIII56/smart-exam-mastery-sub000/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty slice permits all origins (development mode).
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

// WSHandler streams the attempt countdown and accepts answer actions over
// a single WebSocket, for registered users and anonymous visitors alike.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:attempt_id/stream?token=...|guest_token=...
// Pushes one tick event per second and handles answer, navigate, submit
// and ping actions until the attempt finalizes or the client leaves.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	var owner attempt.Owner
	if claims := middleware.GetClaims(c); claims != nil {
		owner = attempt.Owner{UserID: claims.UserID}
	} else if token := c.Query("guest_token"); token != "" {
		if _, err := uuid.Parse(token); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guest token"})
			return
		}
		owner = attempt.Owner{GuestToken: token}
	} else {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	a, err := h.attemptService.Get(attemptID, owner)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no live attempt"})
		return
	}

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(rawConn)
	defer conn.Close()

	wsLog := h.log.With().
		Str("attempt_id", attemptID.String()).
		Int("user_id", owner.UserID).
		Logger()

	wsLog.Info().Msg("Taker connected")

	// Set when the submit action finalizes, so the tick pusher does not
	// report the same finalize again as a timeout.
	var submitted atomic.Bool

	stop := make(chan struct{})
	defer close(stop)
	go h.pushTicks(conn, a, &submitted, stop)

	for {
		var msg ws.RequestEnvelope
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(c, conn, attemptID, owner, &msg)
		case ws.ActionNavigate:
			h.handleNavigate(conn, attemptID, owner, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(c, conn, wsLog, attemptID, owner, &submitted)
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(msg.Action))
		}
	}
}

// pushTicks sends the countdown once per second until the attempt
// finalizes or the reader loop stops.
func (h *WSHandler) pushTicks(conn *ws.Conn, a *attempt.Attempt, submitted *atomic.Bool, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-a.Done():
			if submitted.Load() {
				return
			}
			if res, ok := a.Result(); ok {
				conn.WriteTyped(finalizedEvent("timeout", res))
			}
			return
		case <-ticker.C:
			view := a.Snapshot()
			conn.WriteTyped(ws.TickEvent{
				Event:            ws.EventTick,
				RemainingSeconds: view.RemainingSeconds,
				AnsweredCount:    len(view.Answers),
			})
		}
	}
}

func (h *WSHandler) handleAnswer(c *gin.Context, conn *ws.Conn, attemptID uuid.UUID, owner attempt.Owner, msg *ws.RequestEnvelope) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.WriteError("invalid question_id format")
		return
	}

	if err := h.attemptService.SelectAnswer(c.Request.Context(), attemptID, owner, questionID, msg.Choice); err != nil {
		conn.WriteError(err.Error())
		return
	}

	conn.WriteTyped(ws.AnsweredEvent{
		Event:      ws.EventAnswered,
		QuestionID: msg.QuestionID,
		Choice:     msg.Choice,
	})
}

func (h *WSHandler) handleNavigate(conn *ws.Conn, attemptID uuid.UUID, owner attempt.Owner, msg *ws.RequestEnvelope) {
	if err := h.attemptService.Navigate(attemptID, owner, msg.Index); err != nil {
		conn.WriteError(err.Error())
		return
	}

	conn.WriteTyped(ws.MovedEvent{Event: ws.EventMoved, Index: msg.Index})
}

func (h *WSHandler) handleSubmit(c *gin.Context, conn *ws.Conn, wsLog zerolog.Logger, attemptID uuid.UUID, owner attempt.Owner, submitted *atomic.Bool) {
	submitted.Store(true)

	res, err := h.attemptService.Submit(c.Request.Context(), attemptID, owner)
	if err != nil {
		conn.WriteError(err.Error())
		return
	}

	wsLog.Info().
		Int("score", res.Score).
		Int("total", res.Total).
		Msg("Attempt submitted over WebSocket")

	conn.WriteTyped(finalizedEvent("submit", res))
}

func finalizedEvent(reason string, res *model.AttemptResult) ws.FinalizedEvent {
	return ws.FinalizedEvent{
		Event:          ws.EventFinalized,
		Reason:         reason,
		Score:          res.Score,
		Total:          res.Total,
		Percentage:     res.Percentage,
		ElapsedSeconds: res.ElapsedSeconds,
	}
}
