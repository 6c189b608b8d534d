// Package attempt implements the timed exam-attempt session controller:
// a small forward-only state machine owning the current question pointer,
// the answer map, the countdown, and the one-shot finalize transition.
package attempt

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/model"
	"github.com/google/uuid"
)

// Phase enumerates attempt lifecycle states. Transitions only move forward;
// a finalized attempt is never reopened.
type Phase string

const (
	PhaseInProgress Phase = "IN_PROGRESS"
	PhaseFinalized  Phase = "FINALIZED"
)

// Domain errors.
var (
	ErrFinalized        = errors.New("attempt already finalized")
	ErrIndexOutOfRange  = errors.New("question index out of range")
	ErrUnknownQuestion  = errors.New("question does not belong to this attempt")
	ErrChoiceOutOfRange = errors.New("choice is not one of the question's options")
	ErrNoQuestions      = errors.New("attempt requires at least one question")
	ErrInvalidBudget    = errors.New("time budget must be positive")
)

// QuestionSpec is the controller's view of one question: identity, how many
// choices it declares, and which one is correct.
type QuestionSpec struct {
	ID            uuid.UUID
	ChoiceCount   int
	CorrectChoice int
}

// View is a read-only snapshot of the controller state, safe to serialize.
type View struct {
	AttemptID        uuid.UUID      `json:"attempt_id"`
	ExamID           uuid.UUID      `json:"exam_id"`
	CurrentIndex     int            `json:"current_index"`
	RemainingSeconds int            `json:"remaining_seconds"`
	Phase            Phase          `json:"phase"`
	Answers          map[string]int `json:"answers"`
}

// Controller owns the mutable working set of one in-progress attempt. All
// methods are safe for concurrent use; the ticker goroutine and HTTP
// handlers may touch the same instance.
type Controller struct {
	mu   sync.Mutex
	id   uuid.UUID
	exam uuid.UUID

	subjectID int
	budget    int

	specs     []QuestionSpec
	indexByID map[uuid.UUID]int

	currentIndex int
	answers      map[uuid.UUID]int
	remaining    int
	phase        Phase

	result *model.AttemptResult
	done   chan struct{}
}

// New creates a controller in the IN_PROGRESS phase: index 0, empty answer
// map, remaining seconds copied from the exam's time budget.
func New(id, examID uuid.UUID, subjectID, budgetSeconds int, specs []QuestionSpec) (*Controller, error) {
	if len(specs) == 0 {
		return nil, ErrNoQuestions
	}
	if budgetSeconds <= 0 {
		return nil, ErrInvalidBudget
	}

	indexByID := make(map[uuid.UUID]int, len(specs))
	for i, s := range specs {
		indexByID[s.ID] = i
	}

	return &Controller{
		id:        id,
		exam:      examID,
		subjectID: subjectID,
		budget:    budgetSeconds,
		specs:     specs,
		indexByID: indexByID,
		answers:   make(map[uuid.UUID]int),
		remaining: budgetSeconds,
		phase:     PhaseInProgress,
		done:      make(chan struct{}),
	}, nil
}

// ID returns the attempt's identifier.
func (c *Controller) ID() uuid.UUID { return c.id }

// ExamID returns the exam this attempt runs against.
func (c *Controller) ExamID() uuid.UUID { return c.exam }

// SubjectID returns the subject the exam belongs to.
func (c *Controller) SubjectID() int { return c.subjectID }

// Done is closed the moment the attempt is finalized by any path. The
// ticker runner uses it to stop delivering ticks.
func (c *Controller) Done() <-chan struct{} { return c.done }

// SelectAnswer records (or overwrites) the choice for a question.
// Reselecting is idempotent: the map entry is simply replaced. Choices
// outside the question's declared range are rejected.
func (c *Controller) SelectAnswer(questionID uuid.UUID, choice int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInProgress {
		return ErrFinalized
	}

	idx, ok := c.indexByID[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	if choice < 0 || choice >= c.specs[idx].ChoiceCount {
		return ErrChoiceOutOfRange
	}

	c.answers[questionID] = choice
	return nil
}

// Navigate moves the current-question pointer. Random access is
// unrestricted: any index in range, answered or not, at any time.
func (c *Controller) Navigate(targetIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInProgress {
		return ErrFinalized
	}
	if targetIndex < 0 || targetIndex >= len(c.specs) {
		return ErrIndexOutOfRange
	}

	c.currentIndex = targetIndex
	return nil
}

// Tick decrements the countdown by one second, clamped at zero. Reaching
// zero triggers the single automatic transition in the machine: finalize.
// The returned bool reports whether THIS tick performed the finalize, so
// the caller runs side effects exactly once.
func (c *Controller) Tick() (*model.AttemptResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInProgress {
		return c.result, false
	}

	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining > 0 {
		return nil, false
	}

	return c.finalizeLocked(), true
}

// Finalize freezes the attempt and computes its result. Idempotent: the
// first caller claims the transition and receives (result, true); later
// callers receive the stored result and false. The phase flip happens here,
// before any persistence I/O is attempted by callers.
func (c *Controller) Finalize() (*model.AttemptResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInProgress {
		return c.result, false
	}
	return c.finalizeLocked(), true
}

// finalizeLocked performs the in-progress → finalized transition. Caller
// must hold c.mu and have verified phase == IN_PROGRESS.
func (c *Controller) finalizeLocked() *model.AttemptResult {
	score := 0
	for _, s := range c.specs {
		if ans, ok := c.answers[s.ID]; ok && ans == s.CorrectChoice {
			score++
		}
	}

	total := len(c.specs)
	c.phase = PhaseFinalized
	c.result = &model.AttemptResult{
		AttemptID:      c.id,
		ExamID:         c.exam,
		SubjectID:      c.subjectID,
		Score:          score,
		Total:          total,
		Percentage:     int(math.Round(float64(score) / float64(total) * 100)),
		ElapsedSeconds: c.budget - c.remaining,
		FinalizedAt:    time.Now().UTC(),
	}
	close(c.done)
	return c.result
}

// Result returns the frozen result, or false while still in progress.
func (c *Controller) Result() (*model.AttemptResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return nil, false
	}
	return c.result, true
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Snapshot returns a serializable view of the current state.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	answers := make(map[string]int, len(c.answers))
	for qid, choice := range c.answers {
		answers[qid.String()] = choice
	}

	return View{
		AttemptID:        c.id,
		ExamID:           c.exam,
		CurrentIndex:     c.currentIndex,
		RemainingSeconds: c.remaining,
		Phase:            c.phase,
		Answers:          answers,
	}
}

// Answers returns a copy of the answer map keyed by question ID string,
// suitable for persistence alongside the result.
func (c *Controller) Answers() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int, len(c.answers))
	for qid, choice := range c.answers {
		out[qid.String()] = choice
	}
	return out
}
