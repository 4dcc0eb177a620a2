// Package progress tracks per-lesson completion and derives course-level
// completion percentages. The percentage is always recomputed from Progress
// and Lesson rows; the copy cached on an Enrollment is a display snapshot
// only.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/studyhall/studyhall-lms/internal/lms"
	syncx "github.com/studyhall/studyhall-lms/internal/sync"
)

type Tracker struct {
	store  lms.Store
	events syncx.Recorder
}

func NewTracker(store lms.Store, events syncx.Recorder) *Tracker {
	if events == nil {
		events = syncx.NopRecorder{}
	}
	return &Tracker{store: store, events: events}
}

// RecordAccess is the lesson-view upsert: get-or-create the Progress row and
// bump last_accessed. No business rule can reject it.
func (t *Tracker) RecordAccess(ctx context.Context, lessonID, userID string) (lms.Progress, error) {
	if _, err := t.store.GetLesson(ctx, lessonID); err != nil {
		return lms.Progress{}, fmt.Errorf("lesson %s: %w", lessonID, err)
	}
	return t.store.UpsertProgressAccess(ctx, userID, lessonID, time.Now().Unix())
}

// Complete marks the lesson done. Marking an already-completed lesson again
// is a no-op result, not an error; there is no reverse transition.
func (t *Tracker) Complete(ctx context.Context, lessonID, userID string) (lms.Progress, error) {
	lesson, err := t.store.GetLesson(ctx, lessonID)
	if err != nil {
		return lms.Progress{}, fmt.Errorf("lesson %s: %w", lessonID, err)
	}
	before, _ := t.store.MapProgress(ctx, userID, lesson.CourseID)
	p, err := t.store.MarkLessonComplete(ctx, userID, lessonID, time.Now().Unix())
	if err != nil {
		return lms.Progress{}, err
	}
	if prev, ok := before[lessonID]; !ok || !prev.Completed {
		payload, _ := json.Marshal(map[string]string{"lesson_id": lessonID, "user_id": userID})
		_ = t.events.Append(ctx, syncx.Event{
			Type: syncx.EventLessonCompleted, Key: lessonID, DataJSON: string(payload),
		})
	}
	return p, nil
}

// TrackTime adds minutes spent on a lesson to the user's Progress row.
func (t *Tracker) TrackTime(ctx context.Context, lessonID, userID string, minutes int) (lms.Progress, error) {
	if minutes < 0 {
		minutes = 0
	}
	if _, err := t.store.GetLesson(ctx, lessonID); err != nil {
		return lms.Progress{}, fmt.Errorf("lesson %s: %w", lessonID, err)
	}
	return t.store.AddProgressTime(ctx, userID, lessonID, minutes, time.Now().Unix())
}

// CoursePercent recomputes completed/total*100 for one user and course.
// A course with no lessons is 0, never a division by zero.
func (t *Tracker) CoursePercent(ctx context.Context, courseID, userID string) (float64, error) {
	if _, err := t.store.GetCourse(ctx, courseID); err != nil {
		return 0, fmt.Errorf("course %s: %w", courseID, err)
	}
	total, err := t.store.CountLessons(ctx, courseID)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	completed, err := t.store.CountCompletedLessons(ctx, userID, courseID)
	if err != nil {
		return 0, err
	}
	return float64(completed) / float64(total) * 100, nil
}

// IsComplete reports whether every lesson of the course is completed. Courses
// without lessons are never complete.
func (t *Tracker) IsComplete(ctx context.Context, courseID, userID string) (bool, error) {
	total, err := t.store.CountLessons(ctx, courseID)
	if err != nil {
		return false, err
	}
	if total == 0 {
		return false, nil
	}
	completed, err := t.store.CountCompletedLessons(ctx, userID, courseID)
	if err != nil {
		return false, err
	}
	return completed == total, nil
}

// LessonProgress pairs a lesson with the user's Progress row, if any.
type LessonProgress struct {
	Lesson   lms.Lesson    `json:"lesson"`
	Progress *lms.Progress `json:"progress,omitempty"`
}

// Overview returns the course's lessons in order with the user's per-lesson
// state, for the student progress page.
func (t *Tracker) Overview(ctx context.Context, courseID, userID string) ([]LessonProgress, error) {
	if _, err := t.store.GetCourse(ctx, courseID); err != nil {
		return nil, fmt.Errorf("course %s: %w", courseID, err)
	}
	lessons, err := t.store.ListLessons(ctx, courseID)
	if err != nil {
		return nil, err
	}
	byLesson, err := t.store.MapProgress(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	out := make([]LessonProgress, 0, len(lessons))
	for _, l := range lessons {
		lp := LessonProgress{Lesson: l}
		if p, ok := byLesson[l.ID]; ok {
			p := p
			lp.Progress = &p
		}
		out = append(out, lp)
	}
	return out, nil
}

// RefreshEnrollment recomputes the percentage and writes it onto the cached
// Enrollment column. The cache is never read back as ground truth.
func (t *Tracker) RefreshEnrollment(ctx context.Context, courseID, userID string) (float64, error) {
	pct, err := t.CoursePercent(ctx, courseID, userID)
	if err != nil {
		return 0, err
	}
	if err := t.store.SetEnrollmentProgress(ctx, userID, courseID, pct); err != nil {
		return 0, err
	}
	return pct, nil
}
