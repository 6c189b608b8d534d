package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResultRepository handles persisted attempt results.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Insert writes one finalized result with its answer set. The attempt ID is
// the primary key, so a requeued persistence payload cannot double-write.
func (r *ResultRepository) Insert(ctx context.Context, userID int, res *model.AttemptResult, answers map[string]int) error {
	rawAnswers, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO results (id, user_id, exam_id, subject_id, score, total, percentage, elapsed_seconds, answers, finalized_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		res.AttemptID, userID, res.ExamID, res.SubjectID, res.Score, res.Total,
		res.Percentage, res.ElapsedSeconds, rawAnswers, res.FinalizedAt)
	return err
}

// GetByID retrieves one result owned by the given user.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID, userID int) (*model.ResultRecord, error) {
	rec := &model.ResultRecord{}
	var rawAnswers []byte
	err := r.pool.QueryRow(ctx,
		`SELECT r.id, r.user_id, r.exam_id, r.subject_id, e.title, r.score, r.total,
		        r.percentage, r.elapsed_seconds, r.answers, r.finalized_at, r.created_at
		 FROM results r
		 JOIN exams e ON r.exam_id = e.id
		 WHERE r.id = $1 AND r.user_id = $2`, id, userID,
	).Scan(&rec.ID, &rec.UserID, &rec.ExamID, &rec.SubjectID, &rec.ExamTitle, &rec.Score,
		&rec.Total, &rec.Percentage, &rec.ElapsedSeconds, &rawAnswers, &rec.FinalizedAt, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(rawAnswers, &rec.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return rec, nil
}

// ListByUser retrieves a user's results, newest first.
func (r *ResultRepository) ListByUser(ctx context.Context, userID, limit, offset int) ([]model.ResultRecord, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM results WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.user_id, r.exam_id, r.subject_id, e.title, r.score, r.total,
		        r.percentage, r.elapsed_seconds, r.finalized_at, r.created_at
		 FROM results r
		 JOIN exams e ON r.exam_id = e.id
		 WHERE r.user_id = $1
		 ORDER BY r.finalized_at DESC
		 LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []model.ResultRecord
	for rows.Next() {
		var rec model.ResultRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ExamID, &rec.SubjectID, &rec.ExamTitle,
			&rec.Score, &rec.Total, &rec.Percentage, &rec.ElapsedSeconds,
			&rec.FinalizedAt, &rec.CreatedAt); err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

// SubjectAverage is an aggregate row for the results dashboard.
type SubjectAverage struct {
	SubjectID    int     `json:"subject_id"`
	SubjectName  string  `json:"subject_name"`
	AttemptCount int     `json:"attempt_count"`
	AvgPercent   float64 `json:"avg_percent"`
}

// AggregateBySubject computes per-subject attempt counts and average scores
// for one user's dashboard.
func (r *ResultRepository) AggregateBySubject(ctx context.Context, userID int) ([]SubjectAverage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.subject_id, s.name, COUNT(*), AVG(r.percentage)
		 FROM results r
		 JOIN subjects s ON r.subject_id = s.id
		 WHERE r.user_id = $1
		 GROUP BY r.subject_id, s.name
		 ORDER BY s.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aggs []SubjectAverage
	for rows.Next() {
		var a SubjectAverage
		if err := rows.Scan(&a.SubjectID, &a.SubjectName, &a.AttemptCount, &a.AvgPercent); err != nil {
			return nil, err
		}
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

// CountSince reports how many results landed after the cutoff. Used by the
// admin dashboard.
func (r *ResultRepository) CountSince(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM results WHERE finalized_at >= $1`, cutoff).Scan(&count)
	return count, err
}
