package lms_test

import (
	"context"
	"errors"
	"testing"

	"github.com/studyhall/studyhall-lms/internal/lms"
)

func TestCreateAttempt_NumbersAndLimit(t *testing.T) {
	store := lms.NewInMemoryStore()
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		a := lms.QuizAttempt{ID: lms.NewID(), UserID: "u1", QuizID: "q1"}
		if err := store.CreateAttempt(ctx, &a, 3); err != nil {
			t.Fatalf("attempt %d: %v", want, err)
		}
		if a.AttemptNumber != want {
			t.Fatalf("expected attempt number %d, got %d", want, a.AttemptNumber)
		}
	}
	a := lms.QuizAttempt{ID: lms.NewID(), UserID: "u1", QuizID: "q1"}
	if err := store.CreateAttempt(ctx, &a, 3); !errors.Is(err, lms.ErrAttemptLimit) {
		t.Fatalf("expected ErrAttemptLimit, got %v", err)
	}

	// Per-user and per-quiz counters are independent.
	b := lms.QuizAttempt{ID: lms.NewID(), UserID: "u2", QuizID: "q1"}
	if err := store.CreateAttempt(ctx, &b, 3); err != nil || b.AttemptNumber != 1 {
		t.Fatalf("other user: err=%v number=%d", err, b.AttemptNumber)
	}
	c := lms.QuizAttempt{ID: lms.NewID(), UserID: "u1", QuizID: "q2"}
	if err := store.CreateAttempt(ctx, &c, 3); err != nil || c.AttemptNumber != 1 {
		t.Fatalf("other quiz: err=%v number=%d", err, c.AttemptNumber)
	}
}

func TestCreateEnrollment_CollapsesDuplicates(t *testing.T) {
	store := lms.NewInMemoryStore()
	ctx := context.Background()

	first := lms.Enrollment{ID: "e1", UserID: "u1", CourseID: "c1"}
	if err := store.CreateEnrollment(ctx, &first); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	dup := lms.Enrollment{ID: "e2", UserID: "u1", CourseID: "c1"}
	if err := store.CreateEnrollment(ctx, &dup); err != nil {
		t.Fatalf("re-enroll: %v", err)
	}
	if dup.ID != "e1" {
		t.Fatalf("duplicate enrollment created a second row: %q", dup.ID)
	}
}

func TestCreateLesson_AssignsNextOrder(t *testing.T) {
	store := lms.NewInMemoryStore()
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		l := lms.Lesson{ID: lms.NewID(), CourseID: "c1", Title: "x"}
		if err := store.CreateLesson(ctx, &l); err != nil {
			t.Fatalf("lesson %d: %v", want, err)
		}
		if l.OrderNum != want {
			t.Fatalf("expected order %d, got %d", want, l.OrderNum)
		}
	}
	// An explicit duplicate slot is rejected.
	l := lms.Lesson{ID: lms.NewID(), CourseID: "c1", Title: "x", OrderNum: 2}
	if err := store.CreateLesson(ctx, &l); !errors.Is(err, lms.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate order, got %v", err)
	}
}

func TestListCourses_Filters(t *testing.T) {
	store := lms.NewInMemoryStore()
	ctx := context.Background()

	seed := []lms.Course{
		{ID: "c1", Title: "Intro to Go", Category: "programming", InstructorID: "i1", IsPublished: true},
		{ID: "c2", Title: "Advanced Go", Category: "programming", InstructorID: "i1", IsPublished: false},
		{ID: "c3", Title: "Statistics", Category: "math", InstructorID: "i2", IsPublished: true},
	}
	for _, c := range seed {
		c := c
		if err := store.CreateCourse(ctx, &c); err != nil {
			t.Fatalf("seed %s: %v", c.ID, err)
		}
	}

	published, err := store.ListCourses(ctx, lms.CourseListOpts{PublishedOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(published) != 2 {
		t.Fatalf("expected 2 published courses, got %d", len(published))
	}

	math, _ := store.ListCourses(ctx, lms.CourseListOpts{PublishedOnly: true, Category: "math"})
	if len(math) != 1 || math[0].ID != "c3" {
		t.Fatalf("category filter broken: %+v", math)
	}

	found, _ := store.ListCourses(ctx, lms.CourseListOpts{Search: "go"})
	if len(found) != 2 {
		t.Fatalf("case-insensitive title search should match 2, got %d", len(found))
	}
}

func TestCertificate_UniquePerUserCourse(t *testing.T) {
	store := lms.NewInMemoryStore()
	ctx := context.Background()

	c := lms.Certificate{ID: "cert-1", UserID: "u1", CourseID: "c1", Serial: "AAAABBBBCCCC"}
	if err := store.CreateCertificate(ctx, &c); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := lms.Certificate{ID: "cert-2", UserID: "u1", CourseID: "c1", Serial: "DDDDEEEEFFFF"}
	if err := store.CreateCertificate(ctx, &dup); !errors.Is(err, lms.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	got, err := store.GetCertificate(ctx, "u1", "c1")
	if err != nil || got.Serial != "AAAABBBBCCCC" {
		t.Fatalf("winner's row not preserved: %+v (err=%v)", got, err)
	}
}
