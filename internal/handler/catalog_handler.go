package handler

import (
	"net/http"
	"strconv"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/middleware"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/response"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// CatalogHandler handles the public exam catalog.
type CatalogHandler struct {
	examService    *service.ExamService
	attemptService *service.AttemptService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(examService *service.ExamService, attemptService *service.AttemptService) *CatalogHandler {
	return &CatalogHandler{
		examService:    examService,
		attemptService: attemptService,
	}
}

// ListSubjects godoc
// GET /api/v1/subjects
func (h *CatalogHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.examService.ListSubjects(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"subjects": subjects})
}

// ListExams godoc
// GET /api/v1/exams?subject_id=&page=&per_page=
// Published exams only.
func (h *CatalogHandler) ListExams(c *gin.Context) {
	subjectID, page, perPage := listParams(c)

	exams, total, err := h.examService.ListPublished(c.Request.Context(), subjectID, perPage, (page-1)*perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams}, paginate(page, perPage, total))
}

// GetQuotaStatus godoc
// GET /api/v1/subjects/:subject_id/quota
// Returns the authenticated user's remaining attempt allowance for the
// subject this month.
func (h *CatalogHandler) GetQuotaStatus(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	subjectID, err := strconv.Atoi(c.Param("subject_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	status, err := h.attemptService.QuotaStatus(c.Request.Context(), claims.UserID, subjectID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quota": status})
}
