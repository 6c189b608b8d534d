package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/config"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/database"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/logger"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/model"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/repository"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// seedQuestion is one row of the demo question bank.
type seedQuestion struct {
	prompt  string
	choices []string
	correct int
	explain string
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	subjectRepo := repository.NewSubjectRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	examService := service.NewExamService(examRepo, questionRepo, subjectRepo, rdb, log)

	fmt.Println("=== Seeding Demo Exam ===")

	// Subject
	slug := "general-aptitude"
	var subjectID int
	err = pool.QueryRow(ctx, "SELECT id FROM subjects WHERE slug = $1", slug).Scan(&subjectID)
	if err != nil {
		if err == pgx.ErrNoRows {
			subject := &model.Subject{Slug: slug, Name: "General Aptitude"}
			if err := subjectRepo.Create(ctx, subject); err != nil {
				log.Fatal().Err(err).Msg("Failed to create subject")
			}
			subjectID = subject.ID
			fmt.Printf("Created subject with ID: %d\n", subjectID)
		} else {
			log.Fatal().Err(err).Msg("Failed to check existing subject")
		}
	} else {
		fmt.Printf("Found existing subject with ID: %d\n", subjectID)
	}

	// Exam
	exam := &model.ExamDefinition{
		ID:                uuid.New(),
		SubjectID:         subjectID,
		Title:             "General Aptitude Practice Set 1",
		Description:       "A short mixed practice set for first-time takers.",
		TimeBudgetSeconds: 600,
	}
	if err := examService.Create(ctx, exam); err != nil {
		log.Fatal().Err(err).Msg("Failed to create exam")
	}
	fmt.Printf("Created exam: %s\n", exam.ID)

	bank := []seedQuestion{
		{
			prompt:  "Which number continues the sequence 2, 6, 18, 54, ...?",
			choices: []string{"108", "162", "216", "243"},
			correct: 1,
			explain: "Each term is multiplied by 3; 54 * 3 = 162.",
		},
		{
			prompt:  "If all roses are flowers and some flowers fade quickly, which statement must be true?",
			choices: []string{"All roses fade quickly", "Some roses fade quickly", "All roses are flowers", "No flowers are roses"},
			correct: 2,
			explain: "Only the restated premise is guaranteed.",
		},
		{
			prompt:  "A train covers 120 km in 90 minutes. What is its average speed?",
			choices: []string{"60 km/h", "75 km/h", "80 km/h", "90 km/h"},
			correct: 2,
			explain: "120 km over 1.5 h is 80 km/h.",
		},
		{
			prompt:  "Which word is the closest synonym of 'candid'?",
			choices: []string{"Evasive", "Frank", "Hidden", "Careful"},
			correct: 1,
			explain: "Candid means frank or open.",
		},
		{
			prompt:  "What is 15% of 240?",
			choices: []string{"30", "32", "36", "38"},
			correct: 2,
			explain: "0.15 * 240 = 36.",
		},
	}

	questions := make([]model.Question, 0, len(bank))
	for i, q := range bank {
		choices, _ := json.Marshal(q.choices)
		explanation := q.explain
		questions = append(questions, model.Question{
			ID:            uuid.New(),
			ExamID:        exam.ID,
			Prompt:        q.prompt,
			Type:          model.QuestionTypeMultipleChoice,
			Choices:       choices,
			CorrectChoice: q.correct,
			Explanation:   &explanation,
			OrderNum:      i,
		})
	}

	if err := examService.ReplaceQuestions(ctx, exam.ID, questions); err != nil {
		log.Fatal().Err(err).Msg("Failed to insert questions")
	}
	fmt.Printf("Inserted %d questions\n", len(questions))

	if err := examService.Publish(ctx, exam.ID); err != nil {
		log.Fatal().Err(err).Msg("Failed to publish exam")
	}
	fmt.Println("Exam published and caches warmed")
}
