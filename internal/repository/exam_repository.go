package repository

import (
	"context"
	"strconv"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamRepository handles exam definition data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an exam by its UUID with its current question count.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamDefinition, error) {
	e := &model.ExamDefinition{}
	err := r.pool.QueryRow(ctx,
		`SELECT e.id, e.subject_id, e.title, e.description, e.time_budget_seconds, e.status,
		        (SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id),
		        e.created_at, e.updated_at
		 FROM exams e WHERE e.id = $1`, id,
	).Scan(&e.ID, &e.SubjectID, &e.Title, &e.Description, &e.TimeBudgetSeconds, &e.Status,
		&e.QuestionCount, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListPaginated retrieves exams with pagination and an optional subject filter.
func (r *ExamRepository) ListPaginated(ctx context.Context, subjectID *int, onlyPublished bool, limit, offset int) ([]model.ExamDefinition, int, error) {
	where := ``
	var args []interface{}

	if onlyPublished {
		args = append(args, model.ExamStatusPublished)
		where = ` WHERE e.status = $1`
	}
	if subjectID != nil {
		args = append(args, *subjectID)
		if where == "" {
			where = ` WHERE e.subject_id = $` + strconv.Itoa(len(args))
		} else {
			where += ` AND e.subject_id = $` + strconv.Itoa(len(args))
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exams e`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT e.id, e.subject_id, e.title, e.description, e.time_budget_seconds, e.status,
	                 (SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id),
	                 e.created_at, e.updated_at
	          FROM exams e` + where +
		` ORDER BY e.created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.ExamDefinition
	for rows.Next() {
		var e model.ExamDefinition
		if err := rows.Scan(&e.ID, &e.SubjectID, &e.Title, &e.Description, &e.TimeBudgetSeconds, &e.Status,
			&e.QuestionCount, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		exams = append(exams, e)
	}
	return exams, total, rows.Err()
}

// ListPublished returns all published exams.
// Used for cache prewarming on application startup.
func (r *ExamRepository) ListPublished(ctx context.Context) ([]model.ExamDefinition, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.id, e.subject_id, e.title, e.description, e.time_budget_seconds, e.status,
		        (SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id),
		        e.created_at, e.updated_at
		 FROM exams e WHERE e.status = $1
		 ORDER BY e.created_at DESC`, model.ExamStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.ExamDefinition
	for rows.Next() {
		var e model.ExamDefinition
		if err := rows.Scan(&e.ID, &e.SubjectID, &e.Title, &e.Description, &e.TimeBudgetSeconds, &e.Status,
			&e.QuestionCount, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// Create inserts a new exam in DRAFT status.
func (r *ExamRepository) Create(ctx context.Context, e *model.ExamDefinition) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (subject_id, title, description, time_budget_seconds, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		e.SubjectID, e.Title, e.Description, e.TimeBudgetSeconds, e.Status,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// Update modifies an exam's editable fields.
func (r *ExamRepository) Update(ctx context.Context, e *model.ExamDefinition) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams
		 SET subject_id = $1, title = $2, description = $3, time_budget_seconds = $4, updated_at = NOW()
		 WHERE id = $5`,
		e.SubjectID, e.Title, e.Description, e.TimeBudgetSeconds, e.ID)
	return err
}

// UpdateStatus updates an exam's status.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ExamStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// Delete removes an exam and, via FK cascade, its questions.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	return err
}
