package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/config"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker consumes persist_results_queue and writes finalized attempt
// results to PostgreSQL. The attempt ID is the primary key, so a requeued
// payload inserts at most once.
type ResultWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewResultWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "result_worker").Logger(),
	}
}

type resultPayload struct {
	UserID         int            `json:"user_id"`
	AttemptID      string         `json:"attempt_id"`
	ExamID         string         `json:"exam_id"`
	SubjectID      int            `json:"subject_id"`
	Score          int            `json:"score"`
	Total          int            `json:"total"`
	Percentage     int            `json:"percentage"`
	ElapsedSeconds int            `json:"elapsed_seconds"`
	FinalizedAt    time.Time      `json:"finalized_at"`
	Answers        map[string]int `json:"answers"`
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*resultPayload, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p resultPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

// ----------------------------------------------------------------
// Batch Insert Wrapper
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*resultPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkInsertResults(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk result insert failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed, requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			}
		}
		return
	}

	// Results landed, the live snapshot hashes are no longer needed.
	w.bulkClearAnswerSnapshots(ctx, batch)
}

// ----------------------------------------------------------------
// BULK PostgreSQL INSERT using UNNEST + alias
// ----------------------------------------------------------------

func (w *ResultWorker) bulkInsertResults(ctx context.Context, batch []*resultPayload) error {
	n := len(batch)

	ids := make([]uuid.UUID, 0, n)
	userIDs := make([]int, 0, n)
	examIDs := make([]uuid.UUID, 0, n)
	subjectIDs := make([]int, 0, n)
	scores := make([]int, 0, n)
	totals := make([]int, 0, n)
	percentages := make([]int, 0, n)
	elapsed := make([]int, 0, n)
	answerDocs := make([]string, 0, n)
	finalizedAts := make([]time.Time, 0, n)

	for _, p := range batch {
		aID, err := uuid.Parse(p.AttemptID)
		if err != nil {
			return err
		}
		eID, err := uuid.Parse(p.ExamID)
		if err != nil {
			return err
		}
		rawAnswers, err := json.Marshal(p.Answers)
		if err != nil {
			return err
		}

		ids = append(ids, aID)
		userIDs = append(userIDs, p.UserID)
		examIDs = append(examIDs, eID)
		subjectIDs = append(subjectIDs, p.SubjectID)
		scores = append(scores, p.Score)
		totals = append(totals, p.Total)
		percentages = append(percentages, p.Percentage)
		elapsed = append(elapsed, p.ElapsedSeconds)
		answerDocs = append(answerDocs, string(rawAnswers))
		finalizedAts = append(finalizedAts, p.FinalizedAt)
	}

	query := `
		INSERT INTO results (id, user_id, exam_id, subject_id, score, total, percentage, elapsed_seconds, answers, finalized_at)
		SELECT
			u.id,
			u.user_id,
			u.exam_id,
			u.subject_id,
			u.score,
			u.total,
			u.percentage,
			u.elapsed_seconds,
			u.answers,
			u.finalized_at
		FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::uuid[],
			$4::int[],
			$5::int[],
			$6::int[],
			$7::int[],
			$8::int[],
			$9::jsonb[],
			$10::timestamptz[]
		) AS u (id, user_id, exam_id, subject_id, score, total, percentage, elapsed_seconds, answers, finalized_at)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := w.pool.Exec(ctx, query,
		ids, userIDs, examIDs, subjectIDs, scores, totals, percentages, elapsed, answerDocs, finalizedAts)
	return err
}

// ----------------------------------------------------------------
// BULK Redis DEL for clearing answer snapshot hashes
// ----------------------------------------------------------------

func (w *ResultWorker) bulkClearAnswerSnapshots(ctx context.Context, batch []*resultPayload) {
	pipe := w.rdb.Pipeline()

	for _, p := range batch {
		pipe.Del(ctx, config.CacheKey.AttemptAnswersKey(p.AttemptID))
	}

	_, _ = pipe.Exec(ctx)
}

// ----------------------------------------------------------------
// FALLBACK single insert
// ----------------------------------------------------------------

func (w *ResultWorker) persistSingle(ctx context.Context, p *resultPayload) error {
	aID, err := uuid.Parse(p.AttemptID)
	if err != nil {
		return err
	}
	eID, err := uuid.Parse(p.ExamID)
	if err != nil {
		return err
	}
	rawAnswers, err := json.Marshal(p.Answers)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO results (id, user_id, exam_id, subject_id, score, total, percentage, elapsed_seconds, answers, finalized_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		aID, p.UserID, eID, p.SubjectID, p.Score, p.Total,
		p.Percentage, p.ElapsedSeconds, rawAnswers, p.FinalizedAt,
	)
	return err
}
