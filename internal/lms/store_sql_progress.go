package lms

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ---- Enrollments ----

func (s *SQLStore) CreateEnrollment(ctx context.Context, e *Enrollment) error {
	if e.EnrolledAt == 0 {
		e.EnrolledAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO enrollments (id,user_id,course_id,enrolled_at,certificate_issued,progress_percentage)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.UserID, e.CourseID, e.EnrolledAt, e.CertificateIssued, e.ProgressPercentage)
	if isUniqueViolation(err) {
		// Already enrolled: surface the existing row, not an error.
		existing, gerr := s.GetEnrollment(ctx, e.UserID, e.CourseID)
		if gerr != nil {
			return gerr
		}
		*e = existing
		return nil
	}
	return err
}

func (s *SQLStore) GetEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,user_id,course_id,enrolled_at,completed_at,certificate_issued,progress_percentage
		 FROM enrollments WHERE user_id=$1 AND course_id=$2`, userID, courseID)
	e, err := scanEnrollment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Enrollment{}, ErrNotFound
	}
	return e, err
}

func (s *SQLStore) ListEnrollmentsByUser(ctx context.Context, userID string) ([]Enrollment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,user_id,course_id,enrolled_at,completed_at,certificate_issued,progress_percentage
		 FROM enrollments WHERE user_id=$1 ORDER BY enrolled_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Enrollment{}
	for rows.Next() {
		e, err := scanEnrollment(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEnrollment(scan func(...any) error) (Enrollment, error) {
	var e Enrollment
	var completedAt sql.NullInt64
	err := scan(&e.ID, &e.UserID, &e.CourseID, &e.EnrolledAt, &completedAt,
		&e.CertificateIssued, &e.ProgressPercentage)
	if err != nil {
		return Enrollment{}, err
	}
	e.CompletedAt = completedAt.Int64
	return e, nil
}

func (s *SQLStore) CountEnrollments(ctx context.Context, courseID string, completedOnly bool) (int, error) {
	q := `SELECT COUNT(*) FROM enrollments WHERE course_id=$1`
	if completedOnly {
		q += ` AND certificate_issued=` + boolLit(s.driver, true)
	}
	var n int
	err := s.db.QueryRowContext(ctx, q, courseID).Scan(&n)
	return n, err
}

func (s *SQLStore) SetEnrollmentProgress(ctx context.Context, userID, courseID string, pct float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE enrollments SET progress_percentage=$1 WHERE user_id=$2 AND course_id=$3`,
		pct, userID, courseID)
	return err
}

func (s *SQLStore) CompleteEnrollment(ctx context.Context, userID, courseID string, at int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE enrollments SET completed_at=$1, certificate_issued=`+boolLit(s.driver, true)+`
		 WHERE user_id=$2 AND course_id=$3`, at, userID, courseID)
	if err != nil {
		return err
	}
	if k, _ := res.RowsAffected(); k == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- Progress ----

// UpsertProgressAccess is the get-or-create on lesson view: first touch
// creates the row with completed=false, every touch bumps last_accessed.
func (s *SQLStore) UpsertProgressAccess(ctx context.Context, userID, lessonID string, at int64) (Progress, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO progress (id,user_id,lesson_id,last_accessed)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (user_id, lesson_id) DO UPDATE SET last_accessed=EXCLUDED.last_accessed`,
		newID(), userID, lessonID, at)
	if err != nil {
		return Progress{}, err
	}
	return s.getProgress(ctx, userID, lessonID)
}

// MarkLessonComplete is idempotent and never reverts: completion_date is only
// written on the false->true transition.
func (s *SQLStore) MarkLessonComplete(ctx context.Context, userID, lessonID string, at int64) (Progress, error) {
	t := boolLit(s.driver, true)
	f := boolLit(s.driver, false)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO progress (id,user_id,lesson_id,completed,completion_date,last_accessed)
		 VALUES ($1,$2,$3,`+t+`,$4,$5)
		 ON CONFLICT (user_id, lesson_id) DO UPDATE SET
		   completed=`+t+`,
		   completion_date=CASE WHEN progress.completed=`+f+` THEN EXCLUDED.completion_date ELSE progress.completion_date END,
		   last_accessed=EXCLUDED.last_accessed`,
		newID(), userID, lessonID, at, at)
	if err != nil {
		return Progress{}, err
	}
	return s.getProgress(ctx, userID, lessonID)
}

func (s *SQLStore) AddProgressTime(ctx context.Context, userID, lessonID string, minutes int, at int64) (Progress, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO progress (id,user_id,lesson_id,time_spent,last_accessed)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (user_id, lesson_id) DO UPDATE SET
		   time_spent=progress.time_spent+EXCLUDED.time_spent,
		   last_accessed=EXCLUDED.last_accessed`,
		newID(), userID, lessonID, minutes, at)
	if err != nil {
		return Progress{}, err
	}
	return s.getProgress(ctx, userID, lessonID)
}

func (s *SQLStore) getProgress(ctx context.Context, userID, lessonID string) (Progress, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,user_id,lesson_id,completed,completion_date,time_spent,last_accessed
		 FROM progress WHERE user_id=$1 AND lesson_id=$2`, userID, lessonID)
	p, err := scanProgress(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Progress{}, ErrNotFound
	}
	return p, err
}

func (s *SQLStore) MapProgress(ctx context.Context, userID, courseID string) (map[string]Progress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id,p.user_id,p.lesson_id,p.completed,p.completion_date,p.time_spent,p.last_accessed
		 FROM progress p JOIN lessons l ON l.id=p.lesson_id
		 WHERE p.user_id=$1 AND l.course_id=$2`, userID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]Progress{}
	for rows.Next() {
		p, err := scanProgress(rows.Scan)
		if err != nil {
			return nil, err
		}
		out[p.LessonID] = p
	}
	return out, rows.Err()
}

func scanProgress(scan func(...any) error) (Progress, error) {
	var p Progress
	var completionDate, lastAccessed sql.NullInt64
	err := scan(&p.ID, &p.UserID, &p.LessonID, &p.Completed, &completionDate,
		&p.TimeSpent, &lastAccessed)
	if err != nil {
		return Progress{}, err
	}
	p.CompletionDate = completionDate.Int64
	p.LastAccessed = lastAccessed.Int64
	return p, nil
}

func (s *SQLStore) CountCompletedLessons(ctx context.Context, userID, courseID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM progress p JOIN lessons l ON l.id=p.lesson_id
		 WHERE p.user_id=$1 AND l.course_id=$2 AND p.completed=`+boolLit(s.driver, true),
		userID, courseID).Scan(&n)
	return n, err
}

// ---- Announcements ----

func (s *SQLStore) CreateAnnouncement(ctx context.Context, a *Announcement) error {
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO announcements (id,course_id,author_id,title,content,is_urgent,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.CourseID, a.AuthorID, a.Title, a.Content, a.IsUrgent, a.CreatedAt)
	return err
}

func (s *SQLStore) ListAnnouncements(ctx context.Context, courseID string) ([]Announcement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,course_id,author_id,title,content,is_urgent,created_at
		 FROM announcements WHERE course_id=$1 ORDER BY created_at DESC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Announcement{}
	for rows.Next() {
		var a Announcement
		if err := rows.Scan(&a.ID, &a.CourseID, &a.AuthorID, &a.Title,
			&a.Content, &a.IsUrgent, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ---- Certificates ----

func (s *SQLStore) CreateCertificate(ctx context.Context, c *Certificate) error {
	if c.IssuedAt == 0 {
		c.IssuedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO certificates (id,user_id,course_id,certificate_id,issued_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.UserID, c.CourseID, c.Serial, c.IssuedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *SQLStore) GetCertificate(ctx context.Context, userID, courseID string) (Certificate, error) {
	var c Certificate
	err := s.db.QueryRowContext(ctx,
		`SELECT id,user_id,course_id,certificate_id,issued_at
		 FROM certificates WHERE user_id=$1 AND course_id=$2`, userID, courseID).
		Scan(&c.ID, &c.UserID, &c.CourseID, &c.Serial, &c.IssuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Certificate{}, ErrNotFound
	}
	return c, err
}
