package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/attempt"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/config"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/holding"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/model"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/quota"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors.
var (
	ErrQuotaExceeded     = errors.New("monthly attempt quota exceeded for this subject")
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrNotAttemptOwner   = errors.New("attempt belongs to another session")
	ErrIdentityRequired  = errors.New("identity required to reveal the detailed breakdown")
	ErrAttemptInProgress = errors.New("attempt is still in progress")
)

// resultQueuePayload is the wire shape pushed to the persist queue and
// consumed by the result worker.
type resultQueuePayload struct {
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

// AttemptService orchestrates live attempt controllers: the quota gate at
// start, best-effort answer snapshots, finalize persistence, and the
// anonymous holding-area handoff.
type AttemptService struct {
	registry     *attempt.Registry
	examService  *ExamService
	subService   *SubscriptionService
	usageRepo    *repository.UsageRepository
	resultRepo   *repository.ResultRepository
	questionRepo *repository.QuestionRepository
	hold         *holding.Store
	rdb          *redis.Client
	cfg          *config.Config
	log          zerolog.Logger

	// baseCtx outlives HTTP requests; ticker goroutines and the janitor
	// are bound to it, not to the request that started the attempt.
	baseCtx context.Context
}

// NewAttemptService creates a new AttemptService. Call Run before serving
// traffic so attempt tickers bind to the process lifecycle.
func NewAttemptService(
	examService *ExamService,
	subService *SubscriptionService,
	usageRepo *repository.UsageRepository,
	resultRepo *repository.ResultRepository,
	questionRepo *repository.QuestionRepository,
	hold *holding.Store,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *AttemptService {
	s := &AttemptService{
		examService:  examService,
		subService:   subService,
		usageRepo:    usageRepo,
		resultRepo:   resultRepo,
		questionRepo: questionRepo,
		hold:         hold,
		rdb:          rdb,
		cfg:          cfg,
		log:          log.With().Str("component", "attempt_service").Logger(),
		baseCtx:      context.Background(),
	}
	s.registry = attempt.NewRegistry(log, s.onAutoFinalize)
	return s
}

// Run binds attempt tickers and the registry janitor to the process
// context.
func (s *AttemptService) Run(ctx context.Context) {
	s.baseCtx = ctx
	s.registry.StartJanitor(ctx, time.Minute, 10*time.Minute)
}

// StartAttempt checks the quota gate and spins up a live controller.
// Anonymous owners always pass the gate at start; their reveal is gated
// instead. Returns the attempt and the taker payload for rendering.
func (s *AttemptService) StartAttempt(ctx context.Context, owner attempt.Owner, examID uuid.UUID) (*attempt.Attempt, *model.ExamPayload, error) {
	payload, err := s.examService.GetExamPayload(ctx, examID)
	if err != nil {
		return nil, nil, err
	}

	if !owner.Anonymous() {
		allowed, err := s.CheckQuota(ctx, owner.UserID, payload.SubjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("check quota: %w", err)
		}
		if !allowed {
			return nil, nil, ErrQuotaExceeded
		}
	}

	key, err := s.examService.GetAnswerKey(ctx, examID)
	if err != nil {
		return nil, nil, err
	}

	specs := make([]attempt.QuestionSpec, 0, len(key))
	for _, entry := range key {
		specs = append(specs, attempt.QuestionSpec{
			ID:            entry.QuestionID,
			ChoiceCount:   entry.ChoiceCount,
			CorrectChoice: entry.CorrectChoice,
		})
	}

	ctrl, err := attempt.New(uuid.New(), examID, payload.SubjectID, payload.TimeBudgetSeconds, specs)
	if err != nil {
		return nil, nil, fmt.Errorf("create controller: %w", err)
	}

	a := &attempt.Attempt{
		Controller: ctrl,
		Owner:      owner,
		CreatedAt:  time.Now().UTC(),
	}
	s.registry.Add(s.baseCtx, a)

	s.log.Info().
		Str("attempt_id", ctrl.ID().String()).
		Str("exam_id", examID.String()).
		Int("user_id", owner.UserID).
		Bool("anonymous", owner.Anonymous()).
		Msg("Attempt started")

	return a, payload, nil
}

// CheckQuota evaluates the quota gate for a user/subject at this moment.
// Premium always passes.
func (s *AttemptService) CheckQuota(ctx context.Context, userID, subjectID int) (bool, error) {
	premium, err := s.subService.IsPremium(ctx, userID)
	if err != nil {
		return false, err
	}
	if premium {
		return true, nil
	}

	used, err := s.usageRepo.GetCount(ctx, userID, subjectID, quota.MonthKey(time.Now()))
	if err != nil {
		return false, err
	}
	return quota.Allow(false, used, s.cfg.QuotaMonthlyLimit), nil
}

// QuotaStatus returns the user-facing quota view for one subject.
func (s *AttemptService) QuotaStatus(ctx context.Context, userID, subjectID int) (*model.QuotaStatus, error) {
	premium, err := s.subService.IsPremium(ctx, userID)
	if err != nil {
		return nil, err
	}

	month := quota.MonthKey(time.Now())
	used, err := s.usageRepo.GetCount(ctx, userID, subjectID, month)
	if err != nil {
		return nil, err
	}

	return &model.QuotaStatus{
		SubjectID: subjectID,
		Month:     month,
		Used:      used,
		Limit:     s.cfg.QuotaMonthlyLimit,
		Premium:   premium,
		Allowed:   quota.Allow(premium, used, s.cfg.QuotaMonthlyLimit),
	}, nil
}

// Get returns the live attempt after an ownership check.
func (s *AttemptService) Get(attemptID uuid.UUID, owner attempt.Owner) (*attempt.Attempt, error) {
	a, ok := s.registry.Get(attemptID)
	if !ok {
		return nil, ErrAttemptNotFound
	}
	if a.Owner.UserID != owner.UserID || a.Owner.GuestToken != owner.GuestToken {
		return nil, ErrNotAttemptOwner
	}
	return a, nil
}

// SelectAnswer records a choice and pushes a best-effort snapshot so a
// page reload (or crash) can recover the answer set.
func (s *AttemptService) SelectAnswer(ctx context.Context, attemptID uuid.UUID, owner attempt.Owner, questionID uuid.UUID, choice int) error {
	a, err := s.Get(attemptID, owner)
	if err != nil {
		return err
	}
	if err := a.SelectAnswer(questionID, choice); err != nil {
		return err
	}

	s.snapshotAnswer(ctx, a, questionID, choice)
	return nil
}

// Navigate moves the attempt's current-question pointer.
func (s *AttemptService) Navigate(attemptID uuid.UUID, owner attempt.Owner, index int) error {
	a, err := s.Get(attemptID, owner)
	if err != nil {
		return err
	}
	return a.Navigate(index)
}

// Submit finalizes the attempt explicitly. Idempotent: a submit landing
// after the timeout already finalized simply returns the frozen result
// without re-running persistence.
func (s *AttemptService) Submit(ctx context.Context, attemptID uuid.UUID, owner attempt.Owner) (*model.AttemptResult, error) {
	a, err := s.Get(attemptID, owner)
	if err != nil {
		return nil, err
	}

	res, claimed := a.Finalize()
	if claimed {
		s.persistFinalized(ctx, a, res)
	}
	return res, nil
}

// Result returns the frozen result of a finalized attempt.
func (s *AttemptService) Result(attemptID uuid.UUID, owner attempt.Owner) (*model.AttemptResult, error) {
	a, err := s.Get(attemptID, owner)
	if err != nil {
		return nil, err
	}
	res, ok := a.Result()
	if !ok {
		return nil, ErrAttemptInProgress
	}
	return res, nil
}

// Review builds the per-question breakdown for a finalized attempt. The
// breakdown (correct choices, explanations) is withheld from anonymous
// owners until they establish an identity.
func (s *AttemptService) Review(ctx context.Context, attemptID uuid.UUID, owner attempt.Owner) ([]model.QuestionReview, error) {
	a, err := s.Get(attemptID, owner)
	if err != nil {
		return nil, err
	}
	if _, ok := a.Result(); !ok {
		return nil, ErrAttemptInProgress
	}
	if a.Owner.Anonymous() {
		return nil, ErrIdentityRequired
	}

	questions, err := s.questionRepo.ListByExam(ctx, a.ExamID())
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	return buildReviews(questions, a.Answers()), nil
}

// PeekHeld returns the held anonymous result without consuming it: the
// top-line score shown while registration is pending.
func (s *AttemptService) PeekHeld(ctx context.Context, guestToken string) (*holding.Entry, error) {
	return s.hold.Peek(ctx, guestToken)
}

// DiscardHeld drops a pending anonymous result (the visitor declined to
// register).
func (s *AttemptService) DiscardHeld(ctx context.Context, guestToken string) error {
	return s.hold.Discard(ctx, guestToken)
}

// ClaimHeldResult completes the identity handoff: the held result is taken
// out of the holding area and persisted exactly as the identity branch of
// finalize would have. The held score is authoritative, nothing is
// recomputed.
func (s *AttemptService) ClaimHeldResult(ctx context.Context, guestToken string, userID int) (*model.AttemptResult, error) {
	entry, err := s.hold.Claim(ctx, guestToken)
	if err != nil {
		return nil, err
	}

	s.persistForUser(ctx, userID, &entry.Result, entry.Answers)

	s.log.Info().
		Int("user_id", userID).
		Str("attempt_id", entry.Result.AttemptID.String()).
		Msg("Anonymous result claimed")
	return &entry.Result, nil
}

// ----------------------------------------------------------------
// Finalize persistence
// ----------------------------------------------------------------

// onAutoFinalize runs persistence for ticker-driven timeouts. The explicit
// submit path runs persistFinalized inline instead; the controller's
// one-shot guard ensures only one of the two ever executes it.
func (s *AttemptService) onAutoFinalize(a *attempt.Attempt, res *model.AttemptResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.persistFinalized(ctx, a, res)
}

// persistFinalized runs the post-finalize side effects. The phase already
// flipped inside the controller, so a failed write here cannot reopen the
// attempt.
func (s *AttemptService) persistFinalized(ctx context.Context, a *attempt.Attempt, res *model.AttemptResult) {
	answers := a.Answers()

	if a.Owner.Anonymous() {
		entry := &holding.Entry{
			Result:  *res,
			Answers: answers,
			HeldAt:  time.Now().UTC(),
		}
		if err := s.hold.Put(ctx, a.Owner.GuestToken, entry); err != nil {
			s.log.Error().Err(err).
				Str("attempt_id", res.AttemptID.String()).
				Msg("Failed to hold anonymous result")
		}
		return
	}

	s.persistForUser(ctx, a.Owner.UserID, res, answers)
}

// persistForUser writes the result (via the persist queue, falling back to
// a direct insert) and then bumps the usage counter. A failed increment
// never voids the recorded result.
func (s *AttemptService) persistForUser(ctx context.Context, userID int, res *model.AttemptResult, answers map[string]int) {
	payload, _ := json.Marshal(resultQueuePayload{
		UserID:         userID,
		AttemptID:      res.AttemptID.String(),
		ExamID:         res.ExamID.String(),
		SubjectID:      res.SubjectID,
		Score:          res.Score,
		Total:          res.Total,
		Percentage:     res.Percentage,
		ElapsedSeconds: res.ElapsedSeconds,
		FinalizedAt:    res.FinalizedAt,
		Answers:        answers,
	})

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, payload).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Persist queue unavailable, writing result directly")
		if err := s.resultRepo.Insert(ctx, userID, res, answers); err != nil {
			s.log.Error().Err(err).
				Str("attempt_id", res.AttemptID.String()).
				Int("user_id", userID).
				Msg("Result write failed")
			return
		}
	}

	if err := s.usageRepo.Increment(ctx, userID, res.SubjectID, quota.MonthKey(res.FinalizedAt)); err != nil {
		s.log.Error().Err(err).
			Int("user_id", userID).
			Int("subject_id", res.SubjectID).
			Msg("Usage increment failed, result stands")
	}

	// The snapshot hash is only needed while the attempt is live.
	s.rdb.Del(ctx, config.CacheKey.AttemptAnswersKey(res.AttemptID.String()))
}

// snapshotAnswer mirrors one answer into Redis and queues it for durable
// persistence. Failures are logged and swallowed: snapshots are recovery
// aids, not the source of truth.
func (s *AttemptService) snapshotAnswer(ctx context.Context, a *attempt.Attempt, questionID uuid.UUID, choice int) {
	attemptID := a.ID().String()

	if err := s.rdb.HSet(ctx, config.CacheKey.AttemptAnswersKey(attemptID), questionID.String(), choice).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID).Msg("Answer snapshot HSet failed")
		return
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"attempt_id":  attemptID,
		"user_id":     a.Owner.UserID,
		"question_id": questionID.String(),
		"choice":      choice,
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistSnapshotsQueue, payload).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID).Msg("Snapshot enqueue failed")
	}
}

// buildReviews joins the question set against the frozen answer map.
// Unanswered questions appear with Selected nil and Correct false.
func buildReviews(questions []model.Question, answers map[string]int) []model.QuestionReview {
	reviews := make([]model.QuestionReview, 0, len(questions))
	for _, q := range questions {
		review := model.QuestionReview{
			QuestionID:    q.ID,
			Prompt:        q.Prompt,
			CorrectChoice: q.CorrectChoice,
			Explanation:   q.Explanation,
			OrderNum:      q.OrderNum,
		}
		if choice, ok := answers[q.ID.String()]; ok {
			c := choice
			review.Selected = &c
			review.Correct = choice == q.CorrectChoice
		}
		reviews = append(reviews, review)
	}
	return reviews
}
