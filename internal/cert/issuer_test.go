package cert_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/studyhall/studyhall-lms/internal/cert"
	"github.com/studyhall/studyhall-lms/internal/lms"
	"github.com/studyhall/studyhall-lms/internal/progress"
)

// seedIssuer builds a course with n lessons, enrolls stu-1 and returns the
// pieces needed to drive issuance.
func seedIssuer(t *testing.T, n int) (lms.Store, *progress.Tracker, *cert.Issuer) {
	t.Helper()
	ctx := context.Background()
	store := lms.NewInMemoryStore()

	course := lms.Course{ID: "course-1", Title: "Networking", InstructorID: "instr-1", IsPublished: true}
	if err := store.CreateCourse(ctx, &course); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	for i := 1; i <= n; i++ {
		l := lms.Lesson{ID: fmt.Sprintf("lesson-%d", i), CourseID: course.ID, Title: fmt.Sprintf("Lesson %d", i)}
		if err := store.CreateLesson(ctx, &l); err != nil {
			t.Fatalf("seed lesson %d: %v", i, err)
		}
	}
	e := lms.Enrollment{ID: "enr-1", UserID: "stu-1", CourseID: course.ID}
	if err := store.CreateEnrollment(ctx, &e); err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}
	tracker := progress.NewTracker(store, nil)
	return store, tracker, cert.NewIssuer(store, tracker, nil)
}

func completeAll(t *testing.T, tracker *progress.Tracker, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		if _, err := tracker.Complete(context.Background(), fmt.Sprintf("lesson-%d", i), "stu-1"); err != nil {
			t.Fatalf("complete lesson %d: %v", i, err)
		}
	}
}

func TestIssue_RequiresFullCompletion(t *testing.T) {
	_, tracker, issuer := seedIssuer(t, 2)
	ctx := context.Background()

	if _, err := issuer.Issue(ctx, "course-1", "stu-1"); !errors.Is(err, lms.ErrCourseIncomplete) {
		t.Fatalf("expected ErrCourseIncomplete, got %v", err)
	}

	tracker.Complete(ctx, "lesson-1", "stu-1")
	if _, err := issuer.Issue(ctx, "course-1", "stu-1"); !errors.Is(err, lms.ErrCourseIncomplete) {
		t.Fatalf("expected ErrCourseIncomplete at 50%%, got %v", err)
	}

	tracker.Complete(ctx, "lesson-2", "stu-1")
	c, err := issuer.Issue(ctx, "course-1", "stu-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if c.Serial == "" || c.IssuedAt == 0 {
		t.Fatalf("incomplete certificate: %+v", c)
	}
}

func TestIssue_RequiresEnrollment(t *testing.T) {
	_, _, issuer := seedIssuer(t, 1)
	if _, err := issuer.Issue(context.Background(), "course-1", "stranger"); !errors.Is(err, lms.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without enrollment, got %v", err)
	}
}

func TestIssue_Idempotent(t *testing.T) {
	store, tracker, issuer := seedIssuer(t, 2)
	ctx := context.Background()
	completeAll(t, tracker, 2)

	first, err := issuer.Issue(ctx, "course-1", "stu-1")
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := issuer.Issue(ctx, "course-1", "stu-1")
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if first.ID != second.ID || first.Serial != second.Serial {
		t.Fatalf("issuance not idempotent: %+v vs %+v", first, second)
	}

	// First issuance flips the enrollment to completed.
	e, err := store.GetEnrollment(ctx, "stu-1", "course-1")
	if err != nil {
		t.Fatalf("get enrollment: %v", err)
	}
	if !e.CertificateIssued || e.CompletedAt == 0 {
		t.Fatalf("enrollment not marked complete: %+v", e)
	}
}

func TestIssue_ConcurrentCallersConverge(t *testing.T) {
	_, tracker, issuer := seedIssuer(t, 1)
	ctx := context.Background()
	completeAll(t, tracker, 1)

	const racers = 8
	var wg sync.WaitGroup
	certs := make([]lms.Certificate, racers)
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			certs[i], errs[i] = issuer.Issue(ctx, "course-1", "stu-1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < racers; i++ {
		if errs[i] != nil {
			t.Fatalf("racer %d: %v", i, errs[i])
		}
		if certs[i].Serial != certs[0].Serial {
			t.Fatalf("racers got different serials: %q vs %q", certs[i].Serial, certs[0].Serial)
		}
	}
}

func TestIssue_ZeroLessonCourseNeverCertifiable(t *testing.T) {
	_, _, issuer := seedIssuer(t, 0)
	if _, err := issuer.Issue(context.Background(), "course-1", "stu-1"); !errors.Is(err, lms.ErrCourseIncomplete) {
		t.Fatalf("expected ErrCourseIncomplete for zero-lesson course, got %v", err)
	}
}

func TestNewSerial_Format(t *testing.T) {
	re := regexp.MustCompile(`^[0-9A-F]{12}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		s := cert.NewSerial()
		if !re.MatchString(s) {
			t.Fatalf("bad serial %q", s)
		}
		if seen[s] {
			t.Fatalf("duplicate serial %q after %d draws", s, i)
		}
		seen[s] = true
	}
}
