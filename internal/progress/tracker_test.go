package progress_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/studyhall/studyhall-lms/internal/lms"
	"github.com/studyhall/studyhall-lms/internal/progress"
)

// seedCourse creates a course with n lessons (lesson-1 .. lesson-n) and an
// enrollment for stu-1.
func seedCourse(t *testing.T, n int) (lms.Store, *progress.Tracker) {
	t.Helper()
	ctx := context.Background()
	store := lms.NewInMemoryStore()

	course := lms.Course{ID: "course-1", Title: "Databases", InstructorID: "instr-1", IsPublished: true}
	if err := store.CreateCourse(ctx, &course); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	for i := 1; i <= n; i++ {
		l := lms.Lesson{
			ID:       fmt.Sprintf("lesson-%d", i),
			CourseID: course.ID,
			Title:    fmt.Sprintf("Lesson %d", i),
		}
		if err := store.CreateLesson(ctx, &l); err != nil {
			t.Fatalf("seed lesson %d: %v", i, err)
		}
	}
	e := lms.Enrollment{ID: "enr-1", UserID: "stu-1", CourseID: course.ID}
	if err := store.CreateEnrollment(ctx, &e); err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}
	return store, progress.NewTracker(store, nil)
}

func TestCoursePercent_EmptyCourse(t *testing.T) {
	_, tracker := seedCourse(t, 0)
	pct, err := tracker.CoursePercent(context.Background(), "course-1", "stu-1")
	if err != nil {
		t.Fatalf("percent: %v", err)
	}
	if pct != 0 {
		t.Fatalf("expected 0%% for a course with no lessons, got %v", pct)
	}
}

func TestCoursePercent_HalfDone(t *testing.T) {
	_, tracker := seedCourse(t, 4)
	ctx := context.Background()

	for _, id := range []string{"lesson-1", "lesson-2"} {
		if _, err := tracker.Complete(ctx, id, "stu-1"); err != nil {
			t.Fatalf("complete %s: %v", id, err)
		}
	}
	pct, err := tracker.CoursePercent(ctx, "course-1", "stu-1")
	if err != nil {
		t.Fatalf("percent: %v", err)
	}
	if pct != 50 {
		t.Fatalf("expected 50%%, got %v", pct)
	}

	// Another user's progress is independent.
	other, err := tracker.CoursePercent(ctx, "course-1", "stu-2")
	if err != nil {
		t.Fatalf("percent other: %v", err)
	}
	if other != 0 {
		t.Fatalf("expected 0%% for stu-2, got %v", other)
	}
}

func TestComplete_IdempotentAndMonotonic(t *testing.T) {
	_, tracker := seedCourse(t, 2)
	ctx := context.Background()

	first, err := tracker.Complete(ctx, "lesson-1", "stu-1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !first.Completed || first.CompletionDate == 0 {
		t.Fatalf("expected completed with a completion date, got %+v", first)
	}

	again, err := tracker.Complete(ctx, "lesson-1", "stu-1")
	if err != nil {
		t.Fatalf("re-complete: %v", err)
	}
	if !again.Completed {
		t.Fatalf("completion must never revert")
	}
	if again.CompletionDate != first.CompletionDate {
		t.Fatalf("re-completing moved the completion date: %d -> %d",
			first.CompletionDate, again.CompletionDate)
	}

	pct, _ := tracker.CoursePercent(ctx, "course-1", "stu-1")
	if pct != 50 {
		t.Fatalf("double-complete counted twice: %v%%", pct)
	}
}

func TestRecordAccess_CreatesAndBumps(t *testing.T) {
	_, tracker := seedCourse(t, 1)
	ctx := context.Background()

	p, err := tracker.RecordAccess(ctx, "lesson-1", "stu-1")
	if err != nil {
		t.Fatalf("record access: %v", err)
	}
	if p.Completed {
		t.Fatalf("viewing a lesson must not complete it")
	}
	if p.LastAccessed == 0 {
		t.Fatalf("expected last_accessed set")
	}

	if _, err := tracker.RecordAccess(ctx, "missing", "stu-1"); !errors.Is(err, lms.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown lesson, got %v", err)
	}
}

func TestTrackTime_Accumulates(t *testing.T) {
	_, tracker := seedCourse(t, 1)
	ctx := context.Background()

	if _, err := tracker.TrackTime(ctx, "lesson-1", "stu-1", 15); err != nil {
		t.Fatalf("track time: %v", err)
	}
	p, err := tracker.TrackTime(ctx, "lesson-1", "stu-1", 10)
	if err != nil {
		t.Fatalf("track time: %v", err)
	}
	if p.TimeSpent != 25 {
		t.Fatalf("expected 25 minutes accumulated, got %d", p.TimeSpent)
	}

	// Negative input clamps to zero rather than draining the counter.
	p, err = tracker.TrackTime(ctx, "lesson-1", "stu-1", -5)
	if err != nil {
		t.Fatalf("track time: %v", err)
	}
	if p.TimeSpent != 25 {
		t.Fatalf("negative minutes changed time_spent: %d", p.TimeSpent)
	}
}

func TestIsComplete(t *testing.T) {
	_, tracker := seedCourse(t, 2)
	ctx := context.Background()

	done, err := tracker.IsComplete(ctx, "course-1", "stu-1")
	if err != nil || done {
		t.Fatalf("fresh course reported complete (err=%v)", err)
	}

	tracker.Complete(ctx, "lesson-1", "stu-1")
	if done, _ = tracker.IsComplete(ctx, "course-1", "stu-1"); done {
		t.Fatalf("half-done course reported complete")
	}

	tracker.Complete(ctx, "lesson-2", "stu-1")
	if done, _ = tracker.IsComplete(ctx, "course-1", "stu-1"); !done {
		t.Fatalf("fully-done course reported incomplete")
	}
}

func TestIsComplete_ZeroLessonCourseNever(t *testing.T) {
	_, tracker := seedCourse(t, 0)
	done, err := tracker.IsComplete(context.Background(), "course-1", "stu-1")
	if err != nil {
		t.Fatalf("is complete: %v", err)
	}
	if done {
		t.Fatalf("a course with no lessons must never be complete")
	}
}

func TestOverview_PairsLessonsWithProgress(t *testing.T) {
	_, tracker := seedCourse(t, 3)
	ctx := context.Background()

	tracker.RecordAccess(ctx, "lesson-2", "stu-1")
	tracker.Complete(ctx, "lesson-1", "stu-1")

	out, err := tracker.Overview(ctx, "course-1", "stu-1")
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(out))
	}
	if out[0].Progress == nil || !out[0].Progress.Completed {
		t.Fatalf("lesson-1 should be completed in the overview")
	}
	if out[1].Progress == nil || out[1].Progress.Completed {
		t.Fatalf("lesson-2 should be accessed but not completed")
	}
	if out[2].Progress != nil {
		t.Fatalf("lesson-3 was never touched, expected no progress row")
	}
}

func TestRefreshEnrollment_WritesSnapshot(t *testing.T) {
	store, tracker := seedCourse(t, 4)
	ctx := context.Background()

	tracker.Complete(ctx, "lesson-1", "stu-1")
	pct, err := tracker.RefreshEnrollment(ctx, "course-1", "stu-1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pct != 25 {
		t.Fatalf("expected 25%%, got %v", pct)
	}
	e, err := store.GetEnrollment(ctx, "stu-1", "course-1")
	if err != nil {
		t.Fatalf("get enrollment: %v", err)
	}
	if e.ProgressPercentage != 25 {
		t.Fatalf("snapshot not written, got %v", e.ProgressPercentage)
	}
}
