package handler

import (
	"net/http"
	"strconv"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/middleware"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/model"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/response"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/service"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/validator"
	"github.com/gin-gonic/gin"
)

// SubscriptionHandler handles premium entitlement endpoints.
type SubscriptionHandler struct {
	subService *service.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subService: subService}
}

// GetMine godoc
// GET /api/v1/subscription
// Returns the caller's entitlement: plan plus expiry, FREE when no active
// subscription exists.
func (h *SubscriptionHandler) GetMine(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sub, err := h.subService.GetActive(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if sub == nil {
		response.Success(c, http.StatusOK, gin.H{"plan": model.PlanFree})
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"plan":         sub.Plan,
		"subscription": sub,
	})
}

// Grant godoc
// POST /api/v1/admin/users/:user_id/subscription
// Activates premium for a user. Payments clear in an external processor;
// this endpoint only records the entitlement.
func (h *SubscriptionHandler) Grant(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.GrantSubscriptionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub, err := h.subService.Grant(c.Request.Context(), userID, req.DurationDays)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"subscription": sub})
}
