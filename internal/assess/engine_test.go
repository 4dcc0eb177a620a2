package assess_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/studyhall/studyhall-lms/internal/assess"
	"github.com/studyhall/studyhall-lms/internal/lms"
)

/* ---------------- Seed helpers ---------------- */

// seedQuiz creates a course with one quiz (2pt mcq + 1pt true_false) and
// returns the store, engine and quiz ID.
func seedQuiz(t *testing.T, maxAttempts int) (lms.Store, *assess.Engine, string) {
	t.Helper()
	ctx := context.Background()
	store := lms.NewInMemoryStore()

	course := lms.Course{ID: "course-1", Title: "Intro to Go", InstructorID: "instr-1", IsPublished: true}
	if err := store.CreateCourse(ctx, &course); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	quiz := lms.Quiz{
		ID:          "quiz-1",
		CourseID:    course.ID,
		Title:       "Week 1 Quiz",
		MaxAttempts: maxAttempts,
	}
	if err := store.CreateQuiz(ctx, &quiz); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	q1 := lms.Question{
		ID:     "q1",
		QuizID: quiz.ID,
		Text:   "Which keyword declares a constant?",
		Type:   lms.QuestionMCQ,
		Options: []lms.Choice{
			{Key: "A", Text: "var"},
			{Key: "B", Text: "const"},
		},
		CorrectAnswer: "B",
		Points:        2,
	}
	q2 := lms.Question{
		ID:            "q2",
		QuizID:        quiz.ID,
		Text:          "Slices are reference types.",
		Type:          lms.QuestionTrueFalse,
		CorrectAnswer: "true",
		Points:        1,
	}
	for _, q := range []lms.Question{q1, q2} {
		q := q
		if err := store.CreateQuestion(ctx, &q); err != nil {
			t.Fatalf("seed question %s: %v", q.ID, err)
		}
	}
	return store, assess.NewEngine(store, nil, nil), quiz.ID
}

/* ---------------- Tests ---------------- */

func TestSubmit_AutoGradesExactMatch(t *testing.T) {
	_, engine, quizID := seedQuiz(t, 3)
	ctx := context.Background()

	a, err := engine.Submit(ctx, quizID, "stu-1", map[string]string{"q1": "B", "q2": "true"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if a.Score != 3 || a.MaxScore != 3 {
		t.Fatalf("expected 3/3, got %v/%v", a.Score, a.MaxScore)
	}
	if !a.IsGraded {
		t.Fatalf("expected attempt marked graded after auto-grading pass")
	}
	if a.AttemptNumber != 1 {
		t.Fatalf("expected attempt number 1, got %d", a.AttemptNumber)
	}
}

func TestSubmit_PartialAndWrongAnswers(t *testing.T) {
	_, engine, quizID := seedQuiz(t, 3)
	ctx := context.Background()

	// Wrong mcq choice, correct true_false.
	a, err := engine.Submit(ctx, quizID, "stu-1", map[string]string{"q1": "A", "q2": "true"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if a.Score != 1 || a.MaxScore != 3 {
		t.Fatalf("expected 1/3, got %v/%v", a.Score, a.MaxScore)
	}

	// Unanswered questions still count toward max_score.
	b, err := engine.Submit(ctx, quizID, "stu-1", nil)
	if err != nil {
		t.Fatalf("submit empty: %v", err)
	}
	if b.Score != 0 || b.MaxScore != 3 {
		t.Fatalf("expected 0/3 for empty submission, got %v/%v", b.Score, b.MaxScore)
	}
	if b.AttemptNumber != 2 {
		t.Fatalf("expected attempt number 2, got %d", b.AttemptNumber)
	}
}

func TestSubmit_AttemptLimit(t *testing.T) {
	_, engine, quizID := seedQuiz(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := engine.Submit(ctx, quizID, "stu-1", map[string]string{"q1": "B"}); err != nil {
			t.Fatalf("submit %d: %v", i+1, err)
		}
	}
	_, err := engine.Submit(ctx, quizID, "stu-1", map[string]string{"q1": "B"})
	if !errors.Is(err, lms.ErrAttemptLimit) {
		t.Fatalf("expected ErrAttemptLimit, got %v", err)
	}

	// The rejected submission must not have left a record behind.
	attempts, err := engine.UserAttempts(ctx, "stu-1")
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 recorded attempts, got %d", len(attempts))
	}

	// A different user is unaffected by stu-1's exhausted limit.
	if _, err := engine.Submit(ctx, quizID, "stu-2", nil); err != nil {
		t.Fatalf("other user submit: %v", err)
	}
}

func TestSubmit_ConcurrentSingleAttempt(t *testing.T) {
	_, engine, quizID := seedQuiz(t, 1)
	ctx := context.Background()

	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Submit(ctx, quizID, "stu-1", map[string]string{"q1": "B"})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, lms.ErrAttemptLimit):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly 1 successful attempt, got %d", successes)
	}
}

func TestListQuestions_StripsAnswerKeys(t *testing.T) {
	_, engine, quizID := seedQuiz(t, 3)
	ctx := context.Background()

	questions, err := engine.ListQuestions(ctx, quizID, "stu-1")
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	for _, q := range questions {
		if q.CorrectAnswer != "" {
			t.Fatalf("question %s leaked its answer key", q.ID)
		}
	}
	// Presentation order is the authored order.
	if questions[0].ID != "q1" || questions[1].ID != "q2" {
		t.Fatalf("unexpected order: %s, %s", questions[0].ID, questions[1].ID)
	}
}

func TestListQuestions_RejectedAtLimit(t *testing.T) {
	_, engine, quizID := seedQuiz(t, 1)
	ctx := context.Background()

	if _, err := engine.Submit(ctx, quizID, "stu-1", nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := engine.ListQuestions(ctx, quizID, "stu-1"); !errors.Is(err, lms.ErrAttemptLimit) {
		t.Fatalf("expected ErrAttemptLimit, got %v", err)
	}
}

func TestAttempt_AccessControl(t *testing.T) {
	_, engine, quizID := seedQuiz(t, 3)
	ctx := context.Background()

	a, err := engine.Submit(ctx, quizID, "stu-1", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := engine.Attempt(ctx, a.ID, "stu-1", lms.RoleStudent); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := engine.Attempt(ctx, a.ID, "stu-2", lms.RoleStudent); !errors.Is(err, lms.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for other student, got %v", err)
	}
	if _, err := engine.Attempt(ctx, a.ID, "instr-1", lms.RoleInstructor); err != nil {
		t.Fatalf("instructor read: %v", err)
	}
}

func TestRecordGrade_AnnotatesWithoutMutatingAttempt(t *testing.T) {
	_, engine, quizID := seedQuiz(t, 3)
	ctx := context.Background()

	a, err := engine.Submit(ctx, quizID, "stu-1", map[string]string{"q1": "B"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	g, err := engine.RecordGrade(ctx, a.ID, "instr-1", 2.5, 3, "good effort")
	if err != nil {
		t.Fatalf("record grade: %v", err)
	}
	if g.AttemptID != a.ID || g.UserID != "stu-1" || g.GradedBy != "instr-1" {
		t.Fatalf("grade not linked to attempt: %+v", g)
	}

	// Re-grading the same attempt overwrites, not duplicates.
	if _, err := engine.RecordGrade(ctx, a.ID, "instr-1", 3, 3, "revised"); err != nil {
		t.Fatalf("re-grade: %v", err)
	}

	got, err := engine.Attempt(ctx, a.ID, "stu-1", lms.RoleStudent)
	if err != nil {
		t.Fatalf("re-read attempt: %v", err)
	}
	if got.Score != a.Score {
		t.Fatalf("manual grade mutated attempt score: %v -> %v", a.Score, got.Score)
	}
}

func TestGradebook_OwnerOnly(t *testing.T) {
	_, engine, quizID := seedQuiz(t, 3)
	ctx := context.Background()

	a1, _ := engine.Submit(ctx, quizID, "stu-1", map[string]string{"q1": "B", "q2": "true"})
	a2, _ := engine.Submit(ctx, quizID, "stu-2", map[string]string{"q1": "A"})
	if _, err := engine.RecordGrade(ctx, a2.ID, "instr-1", 2, 3, ""); err != nil {
		t.Fatalf("record grade: %v", err)
	}

	gb, err := engine.Gradebook(ctx, "course-1", "instr-1", lms.RoleInstructor)
	if err != nil {
		t.Fatalf("gradebook: %v", err)
	}
	if len(gb.Quizzes) != 1 || len(gb.Attempts) != 2 {
		t.Fatalf("expected 1 quiz and 2 attempts, got %d and %d", len(gb.Quizzes), len(gb.Attempts))
	}
	if _, ok := gb.Grades[a2.ID]; !ok {
		t.Fatalf("expected manual grade keyed by attempt %s", a2.ID)
	}
	if _, ok := gb.Grades[a1.ID]; ok {
		t.Fatalf("attempt %s has no manual grade but appears in map", a1.ID)
	}

	// A non-owning instructor is rejected; an admin is not.
	if _, err := engine.Gradebook(ctx, "course-1", "instr-2", lms.RoleInstructor); !errors.Is(err, lms.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for non-owner, got %v", err)
	}
	if _, err := engine.Gradebook(ctx, "course-1", "admin-1", lms.RoleAdmin); err != nil {
		t.Fatalf("admin gradebook: %v", err)
	}
}

func TestSubmit_UnknownQuiz(t *testing.T) {
	_, engine, _ := seedQuiz(t, 3)
	if _, err := engine.Submit(context.Background(), "nope", "stu-1", nil); !errors.Is(err, lms.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
