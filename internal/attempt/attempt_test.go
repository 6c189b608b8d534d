package attempt_test

import (
	"sync"
	"testing"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/attempt"
	"github.com/google/uuid"
)

func newController(t *testing.T, budgetSeconds int, specs []attempt.QuestionSpec) *attempt.Controller {
	t.Helper()
	c, err := attempt.New(uuid.New(), uuid.New(), 1, budgetSeconds, specs)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return c
}

func fourChoiceSpecs(n int) []attempt.QuestionSpec {
	specs := make([]attempt.QuestionSpec, 0, n)
	for i := 0; i < n; i++ {
		specs = append(specs, attempt.QuestionSpec{
			ID:            uuid.New(),
			ChoiceCount:   4,
			CorrectChoice: i % 4,
		})
	}
	return specs
}

func TestNewRejectsInvalidInput(t *testing.T) {
	if _, err := attempt.New(uuid.New(), uuid.New(), 1, 60, nil); err != attempt.ErrNoQuestions {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if _, err := attempt.New(uuid.New(), uuid.New(), 1, 0, fourChoiceSpecs(1)); err != attempt.ErrInvalidBudget {
		t.Fatalf("expected ErrInvalidBudget, got %v", err)
	}
}

func TestScoringCountsCorrectAnswers(t *testing.T) {
	specs := fourChoiceSpecs(4) // correct choices: 0, 1, 2, 3
	c := newController(t, 100, specs)

	// Two correct, one wrong, one unanswered.
	if err := c.SelectAnswer(specs[0].ID, 0); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := c.SelectAnswer(specs[1].ID, 1); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := c.SelectAnswer(specs[2].ID, 3); err != nil {
		t.Fatalf("select: %v", err)
	}

	res, claimed := c.Finalize()
	if !claimed {
		t.Fatalf("expected first finalize to claim")
	}
	if res.Score != 2 || res.Total != 4 {
		t.Fatalf("expected 2/4, got %d/%d", res.Score, res.Total)
	}
	if res.Percentage != 50 {
		t.Fatalf("expected 50%%, got %d", res.Percentage)
	}
}

func TestPercentageRoundsHalfUp(t *testing.T) {
	specs := fourChoiceSpecs(3) // correct: 0, 1, 2
	c := newController(t, 100, specs)

	if err := c.SelectAnswer(specs[0].ID, 0); err != nil {
		t.Fatalf("select: %v", err)
	}

	res, _ := c.Finalize()
	if res.Percentage != 33 {
		t.Fatalf("1/3 should round to 33, got %d", res.Percentage)
	}

	c2 := newController(t, 100, specs)
	c2.SelectAnswer(specs[0].ID, 0)
	c2.SelectAnswer(specs[1].ID, 1)
	res2, _ := c2.Finalize()
	if res2.Percentage != 67 {
		t.Fatalf("2/3 should round to 67, got %d", res2.Percentage)
	}
}

func TestSelectAnswerOverwrites(t *testing.T) {
	specs := fourChoiceSpecs(2)
	c := newController(t, 100, specs)

	if err := c.SelectAnswer(specs[0].ID, 2); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := c.SelectAnswer(specs[0].ID, specs[0].CorrectChoice); err != nil {
		t.Fatalf("reselect: %v", err)
	}

	answers := c.Answers()
	if len(answers) != 1 {
		t.Fatalf("expected one entry after reselect, got %d", len(answers))
	}
	if answers[specs[0].ID.String()] != specs[0].CorrectChoice {
		t.Fatalf("expected latest choice to win")
	}

	res, _ := c.Finalize()
	if res.Score != 1 {
		t.Fatalf("reselected correct answer should score, got %d", res.Score)
	}
}

func TestSelectAnswerValidation(t *testing.T) {
	specs := fourChoiceSpecs(1)
	c := newController(t, 100, specs)

	if err := c.SelectAnswer(uuid.New(), 0); err != attempt.ErrUnknownQuestion {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}
	if err := c.SelectAnswer(specs[0].ID, 4); err != attempt.ErrChoiceOutOfRange {
		t.Fatalf("expected ErrChoiceOutOfRange, got %v", err)
	}
	if err := c.SelectAnswer(specs[0].ID, -1); err != attempt.ErrChoiceOutOfRange {
		t.Fatalf("expected ErrChoiceOutOfRange for negative, got %v", err)
	}
}

func TestNavigateBounds(t *testing.T) {
	c := newController(t, 100, fourChoiceSpecs(5))

	if err := c.Navigate(4); err != nil {
		t.Fatalf("navigate to last: %v", err)
	}
	if err := c.Navigate(0); err != nil {
		t.Fatalf("navigate back: %v", err)
	}
	if err := c.Navigate(5); err != attempt.ErrIndexOutOfRange {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := c.Navigate(-1); err != attempt.ErrIndexOutOfRange {
		t.Fatalf("expected ErrIndexOutOfRange for negative, got %v", err)
	}

	if view := c.Snapshot(); view.CurrentIndex != 0 {
		t.Fatalf("failed navigate must not move the pointer, index=%d", view.CurrentIndex)
	}
}

func TestFinalizeIsOneShot(t *testing.T) {
	specs := fourChoiceSpecs(2)
	c := newController(t, 100, specs)
	c.SelectAnswer(specs[0].ID, specs[0].CorrectChoice)

	first, claimed := c.Finalize()
	if !claimed {
		t.Fatalf("first finalize should claim")
	}

	second, claimed := c.Finalize()
	if claimed {
		t.Fatalf("second finalize must not claim")
	}
	if second != first {
		t.Fatalf("second finalize must return the same frozen result")
	}

	// The frozen result never changes, even if a late tick arrives.
	if res, claimed := c.Tick(); claimed || res != first {
		t.Fatalf("tick after finalize must be a no-op")
	}
}

func TestMutationsRejectedAfterFinalize(t *testing.T) {
	specs := fourChoiceSpecs(2)
	c := newController(t, 100, specs)
	c.Finalize()

	if err := c.SelectAnswer(specs[0].ID, 0); err != attempt.ErrFinalized {
		t.Fatalf("expected ErrFinalized on select, got %v", err)
	}
	if err := c.Navigate(1); err != attempt.ErrFinalized {
		t.Fatalf("expected ErrFinalized on navigate, got %v", err)
	}
	if c.Phase() != attempt.PhaseFinalized {
		t.Fatalf("expected FINALIZED phase")
	}
}

func TestTickCountsDownAndAutoFinalizes(t *testing.T) {
	specs := fourChoiceSpecs(2)
	c := newController(t, 3, specs)
	c.SelectAnswer(specs[0].ID, specs[0].CorrectChoice)

	for i := 0; i < 2; i++ {
		if _, claimed := c.Tick(); claimed {
			t.Fatalf("tick %d should not finalize yet", i+1)
		}
	}

	res, claimed := c.Tick()
	if !claimed {
		t.Fatalf("third tick should finalize a 3 second budget")
	}
	if res.Score != 1 || res.Total != 2 {
		t.Fatalf("auto-finalize must score the partial answer set, got %d/%d", res.Score, res.Total)
	}
	if res.ElapsedSeconds != 3 {
		t.Fatalf("expected full budget consumed, got %d", res.ElapsedSeconds)
	}

	// Countdown is clamped: no further transition, remaining stays at zero.
	if _, claimed := c.Tick(); claimed {
		t.Fatalf("tick after timeout must not finalize again")
	}
	if view := c.Snapshot(); view.RemainingSeconds != 0 {
		t.Fatalf("remaining must clamp at zero, got %d", view.RemainingSeconds)
	}
}

func TestElapsedFromRemaining(t *testing.T) {
	c := newController(t, 100, fourChoiceSpecs(1))

	for i := 0; i < 40; i++ {
		c.Tick()
	}

	res, claimed := c.Finalize()
	if !claimed {
		t.Fatalf("expected submit to claim")
	}
	if res.ElapsedSeconds != 40 {
		t.Fatalf("expected elapsed 40, got %d", res.ElapsedSeconds)
	}
}

// The timeout tick and an explicit submit racing each other must produce
// exactly one finalize claim.
func TestConcurrentFinalizeClaimsOnce(t *testing.T) {
	for round := 0; round < 50; round++ {
		c := newController(t, 1, fourChoiceSpecs(2))

		var wg sync.WaitGroup
		claims := make(chan struct{}, 2)

		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, claimed := c.Tick(); claimed {
				claims <- struct{}{}
			}
		}()
		go func() {
			defer wg.Done()
			if _, claimed := c.Finalize(); claimed {
				claims <- struct{}{}
			}
		}()
		wg.Wait()
		close(claims)

		count := 0
		for range claims {
			count++
		}
		if count != 1 {
			t.Fatalf("round %d: expected exactly one claim, got %d", round, count)
		}
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	specs := fourChoiceSpecs(2)
	c := newController(t, 100, specs)
	c.SelectAnswer(specs[0].ID, 0)

	view := c.Snapshot()
	view.Answers["tampered"] = 99

	if len(c.Answers()) != 1 {
		t.Fatalf("mutating a snapshot must not touch controller state")
	}
}
