// Package cert issues course-completion certificates. Issuance is gated on
// full lesson completion and is idempotent per (user, course).
package cert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/studyhall/studyhall-lms/internal/lms"
	"github.com/studyhall/studyhall-lms/internal/progress"
	syncx "github.com/studyhall/studyhall-lms/internal/sync"
)

type Issuer struct {
	store   lms.Store
	tracker *progress.Tracker
	events  syncx.Recorder
}

func NewIssuer(store lms.Store, tracker *progress.Tracker, events syncx.Recorder) *Issuer {
	if events == nil {
		events = syncx.NopRecorder{}
	}
	return &Issuer{store: store, tracker: tracker, events: events}
}

// Issue returns the user's certificate for the course, creating it on first
// call. Preconditions: an enrollment exists and every lesson is completed
// (a zero-lesson course is never certifiable). Concurrent callers converge on
// one row: the loser of the insert race re-reads the winner's certificate.
func (i *Issuer) Issue(ctx context.Context, courseID, userID string) (lms.Certificate, error) {
	if _, err := i.store.GetEnrollment(ctx, userID, courseID); err != nil {
		return lms.Certificate{}, fmt.Errorf("enrollment for course %s: %w", courseID, err)
	}

	// Fast path: already issued.
	if existing, err := i.store.GetCertificate(ctx, userID, courseID); err == nil {
		return existing, nil
	} else if !errors.Is(err, lms.ErrNotFound) {
		return lms.Certificate{}, err
	}

	done, err := i.tracker.IsComplete(ctx, courseID, userID)
	if err != nil {
		return lms.Certificate{}, err
	}
	if !done {
		return lms.Certificate{}, lms.ErrCourseIncomplete
	}

	now := time.Now().Unix()
	c := lms.Certificate{
		ID:       lms.NewID(),
		UserID:   userID,
		CourseID: courseID,
		Serial:   NewSerial(),
		IssuedAt: now,
	}
	switch err := i.store.CreateCertificate(ctx, &c); {
	case err == nil:
		// First issuance: mark the enrollment complete and log it.
		if err := i.store.CompleteEnrollment(ctx, userID, courseID, now); err != nil {
			return lms.Certificate{}, err
		}
		payload, _ := json.Marshal(map[string]string{
			"course_id": courseID, "user_id": userID, "serial": c.Serial,
		})
		_ = i.events.Append(ctx, syncx.Event{
			Type: syncx.EventCertificateIssued, Key: c.ID, DataJSON: string(payload),
		})
		return c, nil
	case errors.Is(err, lms.ErrConflict):
		// A concurrent request won; its row is the certificate.
		return i.store.GetCertificate(ctx, userID, courseID)
	default:
		return lms.Certificate{}, err
	}
}
