// Package assess implements the quiz attempt lifecycle: attempt-limit
// enforcement, submission intake, auto-grading and the instructor gradebook
// rollup.
package assess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/studyhall/studyhall-lms/internal/grading"
	"github.com/studyhall/studyhall-lms/internal/lms"
	syncx "github.com/studyhall/studyhall-lms/internal/sync"
)

type Engine struct {
	store  lms.Store
	grader grading.Grader
	events syncx.Recorder
}

func NewEngine(store lms.Store, grader grading.Grader, events syncx.Recorder) *Engine {
	if grader == nil {
		grader = grading.NewDefaultGrader()
	}
	if events == nil {
		events = syncx.NopRecorder{}
	}
	return &Engine{store: store, grader: grader, events: events}
}

// ListQuestions returns the quiz's questions in presentation order with
// answer keys stripped. It rejects users who have exhausted their attempts
// before anything is shown; no attempt record is created here — submission is
// the attempt.
func (e *Engine) ListQuestions(ctx context.Context, quizID, userID string) ([]lms.Question, error) {
	quiz, err := e.store.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("quiz %s: %w", quizID, err)
	}
	prior, err := e.store.CountAttempts(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.MaxAttempts > 0 && prior >= quiz.MaxAttempts {
		return nil, lms.ErrAttemptLimit
	}
	questions, err := e.store.ListQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		questions[i].CorrectAnswer = ""
	}
	return questions, nil
}

// Submit grades the answers and persists a new immutable attempt. max_score
// sums every question's points whether or not it was answered; only mcq and
// true_false contribute to the auto score. The store's count-then-insert is
// atomic; a lost race is retried once before failing.
func (e *Engine) Submit(ctx context.Context, quizID, userID string, answers map[string]string) (lms.QuizAttempt, error) {
	quiz, err := e.store.GetQuiz(ctx, quizID)
	if err != nil {
		return lms.QuizAttempt{}, fmt.Errorf("quiz %s: %w", quizID, err)
	}
	questions, err := e.store.ListQuestions(ctx, quizID)
	if err != nil {
		return lms.QuizAttempt{}, err
	}
	if answers == nil {
		answers = map[string]string{}
	}

	var score, maxScore float64
	for _, q := range questions {
		res, err := e.grader.Grade(ctx, q, answers[q.ID])
		if err != nil {
			return lms.QuizAttempt{}, err
		}
		score += res.AutoPoints
		maxScore += res.MaxPoints
	}

	attempt := lms.QuizAttempt{
		ID:       lms.NewID(),
		UserID:   userID,
		QuizID:   quizID,
		Answers:  answers,
		Score:    score,
		MaxScore: maxScore,
		// Reflects "auto-grading pass completed", not "finally graded":
		// essay/short-answer review happens through manual grades.
		IsGraded:    true,
		SubmittedAt: time.Now().Unix(),
	}

	if err := e.createWithRetry(ctx, &attempt, quiz.MaxAttempts); err != nil {
		return lms.QuizAttempt{}, err
	}

	payload, _ := json.Marshal(map[string]any{
		"quiz_id": quizID, "user_id": userID,
		"attempt_number": attempt.AttemptNumber,
		"score":          attempt.Score, "max_score": attempt.MaxScore,
	})
	_ = e.events.Append(ctx, syncx.Event{
		Type: syncx.EventAttemptSubmitted, Key: attempt.ID, DataJSON: string(payload),
	})
	return attempt, nil
}

// createWithRetry re-runs the atomic count-then-insert once when a concurrent
// submission claimed the same attempt number. The second pass re-counts, so a
// racer that filled the last slot turns into ErrAttemptLimit, never a
// duplicate.
func (e *Engine) createWithRetry(ctx context.Context, a *lms.QuizAttempt, maxAttempts int) error {
	err := e.store.CreateAttempt(ctx, a, maxAttempts)
	if errors.Is(err, lms.ErrConflict) {
		err = e.store.CreateAttempt(ctx, a, maxAttempts)
	}
	return err
}

// Attempt returns one attempt; students may only read their own.
func (e *Engine) Attempt(ctx context.Context, attemptID, requesterID, requesterRole string) (lms.QuizAttempt, error) {
	a, err := e.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return lms.QuizAttempt{}, err
	}
	if a.UserID != requesterID && requesterRole != lms.RoleInstructor && requesterRole != lms.RoleAdmin {
		return lms.QuizAttempt{}, lms.ErrAccessDenied
	}
	return a, nil
}

// UserAttempts lists the user's own attempts, newest first.
func (e *Engine) UserAttempts(ctx context.Context, userID string) ([]lms.QuizAttempt, error) {
	return e.store.ListAttemptsByUser(ctx, userID)
}

// RecordGrade stores an instructor's manual grade for one attempt. It
// annotates, never mutates, the attempt's auto score.
func (e *Engine) RecordGrade(ctx context.Context, attemptID, graderID string, pointsEarned, maxPoints float64, feedback string) (lms.Grade, error) {
	attempt, err := e.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return lms.Grade{}, fmt.Errorf("attempt %s: %w", attemptID, err)
	}
	g := lms.Grade{
		ID:           lms.NewID(),
		AttemptID:    attempt.ID,
		UserID:       attempt.UserID,
		PointsEarned: pointsEarned,
		MaxPoints:    maxPoints,
		Feedback:     feedback,
		GradedBy:     graderID,
		GradedAt:     time.Now().Unix(),
	}
	if err := e.store.UpsertGrade(ctx, &g); err != nil {
		return lms.Grade{}, err
	}
	return g, nil
}

// Gradebook is the instructor's read-only rollup: every quiz in the course,
// every attempt against those quizzes, and any manual grade overrides keyed
// by attempt.
type Gradebook struct {
	CourseID string               `json:"course_id"`
	Quizzes  []lms.Quiz           `json:"quizzes"`
	Attempts []lms.QuizAttempt    `json:"attempts"`
	Grades   map[string]lms.Grade `json:"grades"` // attempt ID -> manual grade
}

func (e *Engine) Gradebook(ctx context.Context, courseID, requesterID, requesterRole string) (Gradebook, error) {
	course, err := e.store.GetCourse(ctx, courseID)
	if err != nil {
		return Gradebook{}, fmt.Errorf("course %s: %w", courseID, err)
	}
	if course.InstructorID != requesterID && requesterRole != lms.RoleAdmin {
		return Gradebook{}, lms.ErrAccessDenied
	}

	quizzes, err := e.store.ListQuizzes(ctx, courseID)
	if err != nil {
		return Gradebook{}, err
	}
	attempts, err := e.store.ListAttemptsByCourse(ctx, courseID)
	if err != nil {
		return Gradebook{}, err
	}
	grades, err := e.store.ListGradesByCourse(ctx, courseID)
	if err != nil {
		return Gradebook{}, err
	}
	byAttempt := make(map[string]lms.Grade, len(grades))
	for _, g := range grades {
		byAttempt[g.AttemptID] = g
	}
	return Gradebook{
		CourseID: courseID,
		Quizzes:  quizzes,
		Attempts: attempts,
		Grades:   byAttempt,
	}, nil
}
