package handler

import (
	"errors"
	"net/http"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/middleware"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/repository"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ResultHandler handles persisted result history for registered users.
type ResultHandler struct {
	resultRepo *repository.ResultRepository
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(resultRepo *repository.ResultRepository) *ResultHandler {
	return &ResultHandler{resultRepo: resultRepo}
}

// List godoc
// GET /api/v1/results?page=&per_page=
// The user's persisted results, newest first.
func (h *ResultHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	_, page, perPage := listParams(c)

	results, total, err := h.resultRepo.ListByUser(c.Request.Context(), claims.UserID, perPage, (page-1)*perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, paginate(page, perPage, total))
}

// Get godoc
// GET /api/v1/results/:result_id
// One persisted result with its answer map. Owner-scoped.
func (h *ResultHandler) Get(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	resultID, err := uuid.Parse(c.Param("result_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	record, err := h.resultRepo.GetByID(c.Request.Context(), resultID, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": record})
}

// Dashboard godoc
// GET /api/v1/dashboard
// Per-subject attempt counts and average percentages.
func (h *ResultHandler) Dashboard(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	aggregates, err := h.resultRepo.AggregateBySubject(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"subjects": aggregates})
}
