package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/config"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/model"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors.
var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrNoQuestions      = errors.New("exam has no questions, cannot publish")
	ErrExamNotDraft     = errors.New("exam status is not DRAFT")
	ErrExamNotPublished = errors.New("exam status is not PUBLISHED")
)

// ExamService handles exam content logic and the Redis payload caches. The
// taker payload (no correct answers) and the answer key are cached
// separately so the answer key never travels to clients.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	subjectRepo  *repository.SubjectRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	subjectRepo *repository.SubjectRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		subjectRepo:  subjectRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam definition.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamDefinition, error) {
	return s.examRepo.GetByID(ctx, id)
}

// ListSubjects returns all subjects.
func (s *ExamService) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	return s.subjectRepo.List(ctx)
}

// CreateSubject adds a new quota subject.
func (s *ExamService) CreateSubject(ctx context.Context, sub *model.Subject) error {
	return s.subjectRepo.Create(ctx, sub)
}

// ListPublished returns published exams for the public catalog.
func (s *ExamService) ListPublished(ctx context.Context, subjectID *int, limit, offset int) ([]model.ExamDefinition, int, error) {
	return s.examRepo.ListPaginated(ctx, subjectID, true, limit, offset)
}

// ListAll returns all exams for the admin panel.
func (s *ExamService) ListAll(ctx context.Context, subjectID *int, limit, offset int) ([]model.ExamDefinition, int, error) {
	return s.examRepo.ListPaginated(ctx, subjectID, false, limit, offset)
}

// Create inserts a new draft exam.
func (s *ExamService) Create(ctx context.Context, e *model.ExamDefinition) error {
	e.Status = model.ExamStatusDraft
	return s.examRepo.Create(ctx, e)
}

// Update modifies a draft exam's fields.
func (s *ExamService) Update(ctx context.Context, e *model.ExamDefinition) error {
	existing, err := s.examRepo.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	if existing.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}
	return s.examRepo.Update(ctx, e)
}

// Delete removes an exam and its questions.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.examRepo.Delete(ctx, id)
}

// ListQuestions returns an exam's questions including answers and
// explanations (admin view).
func (s *ExamService) ListQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	return s.questionRepo.ListByExam(ctx, examID)
}

// ReplaceQuestions swaps a draft exam's full question set.
func (s *ExamService) ReplaceQuestions(ctx context.Context, examID uuid.UUID, questions []model.Question) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}
	return s.questionRepo.ReplaceForExam(ctx, examID, questions)
}

// Publish flips a draft exam to PUBLISHED and builds its Redis caches so
// attempts never read question rows from PostgreSQL on the hot path.
func (s *ExamService) Publish(ctx context.Context, examID uuid.UUID) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}

	count, err := s.questionRepo.CountByExam(ctx, examID)
	if err != nil {
		return fmt.Errorf("count questions: %w", err)
	}
	if count == 0 {
		return ErrNoQuestions
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	if err := s.BuildCaches(ctx, examID); err != nil {
		return fmt.Errorf("build caches: %w", err)
	}
	return nil
}

// Archive retires a published exam and drops its caches.
func (s *ExamService) Archive(ctx context.Context, examID uuid.UUID) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	if exam.Status != model.ExamStatusPublished {
		return ErrExamNotPublished
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusArchived); err != nil {
		return err
	}

	id := examID.String()
	s.rdb.Del(ctx,
		config.CacheKey.ExamPayloadKey(id),
		config.CacheKey.ExamAnswerKey(id),
		config.CacheKey.ExamBudgetKey(id),
	)
	return nil
}

// BuildCaches loads the exam's questions and writes the taker payload, the
// answer key, and the time budget to Redis.
func (s *ExamService) BuildCaches(ctx context.Context, examID uuid.UUID) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}

	questions, err := s.questionRepo.ListByExam(ctx, examID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	payload := model.ExamPayload{
		ExamID:            exam.ID,
		SubjectID:         exam.SubjectID,
		Title:             exam.Title,
		TimeBudgetSeconds: exam.TimeBudgetSeconds,
		Questions:         make([]model.QuestionForTaker, 0, len(questions)),
	}
	key := make([]model.AnswerKeyEntry, 0, len(questions))

	for _, q := range questions {
		payload.Questions = append(payload.Questions, model.QuestionForTaker{
			ID:       q.ID,
			Prompt:   q.Prompt,
			Type:     q.Type,
			Choices:  q.Choices,
			OrderNum: q.OrderNum,
		})
		key = append(key, model.AnswerKeyEntry{
			QuestionID:    q.ID,
			CorrectChoice: q.CorrectChoice,
			ChoiceCount:   q.ChoiceCount(),
		})
	}

	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	rawKey, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("marshal answer key: %w", err)
	}

	id := examID.String()
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ExamPayloadKey(id), rawPayload, 0)
	pipe.Set(ctx, config.CacheKey.ExamAnswerKey(id), rawKey, 0)
	pipe.Set(ctx, config.CacheKey.ExamBudgetKey(id), exam.TimeBudgetSeconds, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write caches: %w", err)
	}

	s.log.Info().
		Str("exam_id", id).
		Int("questions", len(questions)).
		Msg("Exam caches built")
	return nil
}

// PrewarmAllCaches loads every published exam into Redis. Called before
// the server accepts traffic to avoid lazy-load stampedes.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	exams, err := s.examRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published: %w", err)
	}

	for _, e := range exams {
		if err := s.BuildCaches(ctx, e.ID); err != nil {
			s.log.Warn().Err(err).Str("exam_id", e.ID.String()).Msg("Prewarm failed for exam")
		}
	}

	s.log.Info().Int("count", len(exams)).Msg("Exam caches prewarmed")
	return nil
}

// GetExamPayload returns the cached taker payload, rebuilding the cache
// from PostgreSQL on a miss (self-heal).
func (s *ExamService) GetExamPayload(ctx context.Context, examID uuid.UUID) (*model.ExamPayload, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(examID.String())).Result()
	if errors.Is(err, redis.Nil) {
		if err := s.rebuildIfPublished(ctx, examID); err != nil {
			return nil, err
		}
		raw, err = s.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(examID.String())).Result()
		if err != nil {
			return nil, fmt.Errorf("payload after rebuild: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.ExamPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &payload, nil
}

// GetAnswerKey returns the cached answer key, rebuilding on a miss.
func (s *ExamService) GetAnswerKey(ctx context.Context, examID uuid.UUID) ([]model.AnswerKeyEntry, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.ExamAnswerKey(examID.String())).Result()
	if errors.Is(err, redis.Nil) {
		if err := s.rebuildIfPublished(ctx, examID); err != nil {
			return nil, err
		}
		raw, err = s.rdb.Get(ctx, config.CacheKey.ExamAnswerKey(examID.String())).Result()
		if err != nil {
			return nil, fmt.Errorf("answer key after rebuild: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}

	var key []model.AnswerKeyEntry
	if err := json.Unmarshal([]byte(raw), &key); err != nil {
		return nil, fmt.Errorf("decode answer key: %w", err)
	}
	return key, nil
}

func (s *ExamService) rebuildIfPublished(ctx context.Context, examID uuid.UUID) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrExamNotFound
	}
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}
	if exam.Status != model.ExamStatusPublished {
		return ErrExamNotPublished
	}
	return s.BuildCaches(ctx, examID)
}
