package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/model"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/repository"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/response"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/service"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ExamHandler handles admin exam management endpoints.
type ExamHandler struct {
	examService *service.ExamService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

// List godoc
// GET /api/v1/admin/exams?subject_id=&page=&per_page=
func (h *ExamHandler) List(c *gin.Context) {
	subjectID, page, perPage := listParams(c)

	exams, total, err := h.examService.ListAll(c.Request.Context(), subjectID, perPage, (page-1)*perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams}, paginate(page, perPage, total))
}

// Get godoc
// GET /api/v1/admin/exams/:exam_id
func (h *ExamHandler) Get(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// Create godoc
// POST /api/v1/admin/exams
func (h *ExamHandler) Create(c *gin.Context) {
	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam := &model.ExamDefinition{
		ID:                uuid.New(),
		SubjectID:         req.SubjectID,
		Title:             req.Title,
		Description:       req.Description,
		TimeBudgetSeconds: req.TimeBudgetSeconds,
	}
	if err := h.examService.Create(c.Request.Context(), exam); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// Update godoc
// PUT /api/v1/admin/exams/:exam_id
// Only draft exams can be edited.
func (h *ExamHandler) Update(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	if req.SubjectID != nil {
		exam.SubjectID = *req.SubjectID
	}
	if req.Title != "" {
		exam.Title = req.Title
	}
	if req.Description != "" {
		exam.Description = req.Description
	}
	if req.TimeBudgetSeconds != nil {
		exam.TimeBudgetSeconds = *req.TimeBudgetSeconds
	}

	if err := h.examService.Update(c.Request.Context(), exam); err != nil {
		h.failExamOp(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// Delete godoc
// DELETE /api/v1/admin/exams/:exam_id
func (h *ExamHandler) Delete(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	if err := h.examService.Delete(c.Request.Context(), examID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ListQuestions godoc
// GET /api/v1/admin/exams/:exam_id/questions
// Admin view: includes correct choices and explanations.
func (h *ExamHandler) ListQuestions(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	questions, err := h.examService.ListQuestions(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// ReplaceQuestions godoc
// PUT /api/v1/admin/exams/:exam_id/questions
// Replaces the full question set of a draft exam.
func (h *ExamHandler) ReplaceQuestions(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions := make([]model.Question, 0, len(req.Questions))
	for i, q := range req.Questions {
		question := model.Question{
			ID:            uuid.New(),
			ExamID:        examID,
			Prompt:        q.Prompt,
			Type:          model.QuestionType(q.Type),
			Choices:       q.Choices,
			CorrectChoice: q.CorrectChoice,
			Explanation:   q.Explanation,
			OrderNum:      q.OrderNum,
		}
		if question.OrderNum == 0 {
			question.OrderNum = i
		}
		if q.CorrectChoice >= question.ChoiceCount() {
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrChoiceOutOfRange)
			return
		}
		questions = append(questions, question)
	}

	if err := h.examService.ReplaceQuestions(c.Request.Context(), examID, questions); err != nil {
		h.failExamOp(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"count": len(questions)})
}

// Publish godoc
// POST /api/v1/admin/exams/:exam_id/publish
// Flips DRAFT to PUBLISHED and warms the Redis caches.
func (h *ExamHandler) Publish(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	if err := h.examService.Publish(c.Request.Context(), examID); err != nil {
		h.failExamOp(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": model.ExamStatusPublished})
}

// Archive godoc
// POST /api/v1/admin/exams/:exam_id/archive
// Retires a published exam and drops its caches. Running attempts keep
// their in-memory copy and finish normally.
func (h *ExamHandler) Archive(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	if err := h.examService.Archive(c.Request.Context(), examID); err != nil {
		h.failExamOp(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": model.ExamStatusArchived})
}

// RefreshCache godoc
// POST /api/v1/admin/exams/:exam_id/refresh-cache
// Rebuilds the Redis payload and answer-key caches for one exam.
func (h *ExamHandler) RefreshCache(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	if err := h.examService.BuildCaches(c.Request.Context(), examID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// CreateSubject godoc
// POST /api/v1/admin/subjects
func (h *ExamHandler) CreateSubject(c *gin.Context) {
	var req model.CreateSubjectRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	subject := &model.Subject{Slug: req.Slug, Name: req.Name}
	if err := h.examService.CreateSubject(c.Request.Context(), subject); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"subject": subject})
}

func (h *ExamHandler) failExamOp(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, service.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrExamNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrExamNotDraft)
	case errors.Is(err, service.ErrExamNotPublished):
		response.Fail(c, http.StatusConflict, response.ErrExamNotPublished)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoQuestions)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func parseExamID(c *gin.Context) (uuid.UUID, bool) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return examID, true
}

// listParams reads the common catalog query params with sane defaults.
func listParams(c *gin.Context) (*int, int, int) {
	var subjectID *int
	if raw := c.Query("subject_id"); raw != "" {
		if id, err := strconv.Atoi(raw); err == nil {
			subjectID = &id
		}
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return subjectID, page, perPage
}

func paginate(page, perPage, total int) *response.Pagination {
	totalPages := total / perPage
	if total%perPage > 0 {
		totalPages++
	}
	return &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}
}
