package handler

import (
	"errors"
	"net/http"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/attempt"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/holding"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/middleware"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/model"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/response"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/service"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderGuestToken carries the anonymous session token on attempt routes.
const HeaderGuestToken = "X-Guest-Token"

// AttemptHandler handles live attempt endpoints for both registered users
// and anonymous visitors.
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// resolveOwner builds the attempt owner from the request: JWT claims win,
// otherwise the guest token header identifies the anonymous session.
func resolveOwner(c *gin.Context) (attempt.Owner, bool) {
	if claims := middleware.GetClaims(c); claims != nil {
		return attempt.Owner{UserID: claims.UserID}, true
	}

	token := c.GetHeader(HeaderGuestToken)
	if token == "" {
		return attempt.Owner{}, false
	}
	if _, err := uuid.Parse(token); err != nil {
		return attempt.Owner{}, false
	}
	return attempt.Owner{GuestToken: token}, true
}

// Start godoc
// POST /api/v1/attempts
// Starts an attempt. Registered users pass the quota gate here; anonymous
// visitors get a guest token minted on their first start.
func (h *AttemptHandler) Start(c *gin.Context) {
	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	owner, ok := resolveOwner(c)
	if !ok {
		owner = attempt.Owner{GuestToken: uuid.New().String()}
	}

	a, payload, err := h.attemptService.StartAttempt(c.Request.Context(), owner, req.ExamID)
	if err != nil {
		h.failStart(c, err)
		return
	}

	data := gin.H{
		"attempt": a.Snapshot(),
		"exam":    payload,
	}
	if owner.Anonymous() {
		data["guest_token"] = owner.GuestToken
	}

	response.Success(c, http.StatusCreated, data)
}

func (h *AttemptHandler) failStart(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrQuotaExceeded):
		response.Fail(c, http.StatusPaymentRequired, response.ErrQuotaExceeded)
	case errors.Is(err, service.ErrExamNotPublished):
		response.Fail(c, http.StatusConflict, response.ErrExamNotPublished)
	case errors.Is(err, service.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// GetState godoc
// GET /api/v1/attempts/:attempt_id
// Returns the live snapshot: pointer, countdown, answer map, phase.
func (h *AttemptHandler) GetState(c *gin.Context) {
	a, ok := h.lookup(c)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": a.Snapshot()})
}

// SelectAnswer godoc
// PUT /api/v1/attempts/:attempt_id/answer
// Records (or overwrites) the choice for one question.
func (h *AttemptHandler) SelectAnswer(c *gin.Context) {
	attemptID, owner, ok := h.params(c)
	if !ok {
		return
	}

	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.attemptService.SelectAnswer(c.Request.Context(), attemptID, owner, req.QuestionID, req.Choice)
	if err != nil {
		h.failAttemptOp(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"question_id": req.QuestionID,
		"choice":      req.Choice,
	})
}

// Navigate godoc
// PUT /api/v1/attempts/:attempt_id/navigate
// Moves the current-question pointer. Any in-range index is reachable.
func (h *AttemptHandler) Navigate(c *gin.Context) {
	attemptID, owner, ok := h.params(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.Navigate(attemptID, owner, req.Index); err != nil {
		h.failAttemptOp(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"index": req.Index})
}

// Submit godoc
// POST /api/v1/attempts/:attempt_id/submit
// Finalizes the attempt and returns the top-line result. Safe to call
// again after finalization: the frozen result is returned as-is.
func (h *AttemptHandler) Submit(c *gin.Context) {
	attemptID, owner, ok := h.params(c)
	if !ok {
		return
	}

	res, err := h.attemptService.Submit(c.Request.Context(), attemptID, owner)
	if err != nil {
		h.failAttemptOp(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": res})
}

// GetResult godoc
// GET /api/v1/attempts/:attempt_id/result
// Returns the frozen top-line result of a finalized attempt.
func (h *AttemptHandler) GetResult(c *gin.Context) {
	attemptID, owner, ok := h.params(c)
	if !ok {
		return
	}

	res, err := h.attemptService.Result(attemptID, owner)
	if err != nil {
		h.failAttemptOp(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": res})
}

// GetReview godoc
// GET /api/v1/attempts/:attempt_id/review
// Returns the per-question breakdown. Anonymous owners are told to
// register first; the score itself stays visible through GetResult.
func (h *AttemptHandler) GetReview(c *gin.Context) {
	attemptID, owner, ok := h.params(c)
	if !ok {
		return
	}

	reviews, err := h.attemptService.Review(c.Request.Context(), attemptID, owner)
	if err != nil {
		h.failAttemptOp(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"review": reviews})
}

// PeekHeldResult godoc
// GET /api/v1/guest/held-result
// Returns the pending anonymous result's top line without consuming it.
func (h *AttemptHandler) PeekHeldResult(c *gin.Context) {
	token := c.GetHeader(HeaderGuestToken)
	if token == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	entry, err := h.attemptService.PeekHeld(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, holding.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNoHeldResult)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"result":  entry.Result,
		"held_at": entry.HeldAt,
	})
}

// DiscardHeldResult godoc
// DELETE /api/v1/guest/held-result
// Drops the pending anonymous result.
func (h *AttemptHandler) DiscardHeldResult(c *gin.Context) {
	token := c.GetHeader(HeaderGuestToken)
	if token == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	if err := h.attemptService.DiscardHeld(c.Request.Context(), token); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// params extracts the attempt ID and owner, writing the failure response
// itself when either is unusable.
func (h *AttemptHandler) params(c *gin.Context) (uuid.UUID, attempt.Owner, bool) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, attempt.Owner{}, false
	}

	owner, ok := resolveOwner(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return uuid.Nil, attempt.Owner{}, false
	}

	return attemptID, owner, true
}

// lookup resolves params and fetches the live attempt.
func (h *AttemptHandler) lookup(c *gin.Context) (*attempt.Attempt, bool) {
	attemptID, owner, ok := h.params(c)
	if !ok {
		return nil, false
	}

	a, err := h.attemptService.Get(attemptID, owner)
	if err != nil {
		h.failAttemptOp(c, err)
		return nil, false
	}
	return a, true
}

func (h *AttemptHandler) failAttemptOp(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
	case errors.Is(err, service.ErrNotAttemptOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotAttemptOwner)
	case errors.Is(err, service.ErrAttemptInProgress):
		response.Fail(c, http.StatusConflict, response.ErrAttemptInProgress)
	case errors.Is(err, service.ErrIdentityRequired):
		response.Fail(c, http.StatusForbidden, response.ErrIdentityRequired)
	case errors.Is(err, attempt.ErrFinalized):
		response.Fail(c, http.StatusConflict, response.ErrAttemptFinalized)
	case errors.Is(err, attempt.ErrUnknownQuestion):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrQuestionNotInExam)
	case errors.Is(err, attempt.ErrChoiceOutOfRange):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrChoiceOutOfRange)
	case errors.Is(err, attempt.ErrIndexOutOfRange):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrIndexOutOfRange)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
