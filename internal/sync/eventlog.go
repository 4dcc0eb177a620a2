package syncx

import (
	"context"
	"database/sql"
	"time"
)

// Event types appended by the services. The log is an audit trail; nothing in
// the request path reads it back.
const (
	EventAttemptSubmitted  = "attempt.submitted"
	EventLessonCompleted   = "lesson.completed"
	EventCertificateIssued = "certificate.issued"
)

type Event struct {
	Seq       int64
	SiteID    string
	Type      string
	Key       string
	DataJSON  string
	CreatedAt int64
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.SiteID == "" {
		e.SiteID = "local"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// Recorder is the slice of EventRepo the services depend on; tests pass a
// no-op or a capturing fake.
type Recorder interface {
	Append(ctx context.Context, e Event) error
}

// NopRecorder drops events. Used when no SQL database is attached (in-memory
// store, tests).
type NopRecorder struct{}

func (NopRecorder) Append(context.Context, Event) error { return nil }
