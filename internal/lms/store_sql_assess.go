package lms

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// ---- Quizzes ----

func (s *SQLStore) CreateQuiz(ctx context.Context, q *Quiz) error {
	if q.CreatedAt == 0 {
		q.CreatedAt = time.Now().Unix()
	}
	if q.QuizType == "" {
		q.QuizType = QuizLesson
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quizzes (id,course_id,lesson_id,title,description,quiz_type,time_limit,max_attempts,due_date,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		q.ID, q.CourseID, nullableStr(q.LessonID), q.Title, q.Description,
		q.QuizType, q.TimeLimit, q.MaxAttempts, nullableInt64(q.DueDate), q.CreatedAt)
	return err
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,course_id,lesson_id,title,description,quiz_type,time_limit,max_attempts,due_date,created_at
		 FROM quizzes WHERE id=$1`, id)
	q, err := scanQuiz(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, ErrNotFound
	}
	return q, err
}

func (s *SQLStore) ListQuizzes(ctx context.Context, courseID string) ([]Quiz, error) {
	return s.listQuizzes(ctx,
		`SELECT id,course_id,lesson_id,title,description,quiz_type,time_limit,max_attempts,due_date,created_at
		 FROM quizzes WHERE course_id=$1 ORDER BY created_at`, courseID)
}

func (s *SQLStore) ListLessonQuizzes(ctx context.Context, lessonID string) ([]Quiz, error) {
	return s.listQuizzes(ctx,
		`SELECT id,course_id,lesson_id,title,description,quiz_type,time_limit,max_attempts,due_date,created_at
		 FROM quizzes WHERE lesson_id=$1 ORDER BY created_at`, lessonID)
}

func (s *SQLStore) listQuizzes(ctx context.Context, query string, arg any) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Quiz{}
	for rows.Next() {
		q, err := scanQuiz(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func scanQuiz(scan func(...any) error) (Quiz, error) {
	var q Quiz
	var lessonID sql.NullString
	var dueDate sql.NullInt64
	err := scan(&q.ID, &q.CourseID, &lessonID, &q.Title, &q.Description,
		&q.QuizType, &q.TimeLimit, &q.MaxAttempts, &dueDate, &q.CreatedAt)
	if err != nil {
		return Quiz{}, err
	}
	q.LessonID = lessonID.String
	q.DueDate = dueDate.Int64
	return q, nil
}

// ---- Questions ----

func (s *SQLStore) CreateQuestion(ctx context.Context, q *Question) error {
	oj, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if q.OrderNum == 0 {
		var maxOrder sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			`SELECT MAX(order_num) FROM questions WHERE quiz_id=$1`, q.QuizID).Scan(&maxOrder); err != nil {
			return err
		}
		q.OrderNum = int(maxOrder.Int64) + 1
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO questions (id,quiz_id,question_text,question_type,options_json,correct_answer,points,order_num)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		q.ID, q.QuizID, q.Text, q.Type, string(oj), q.CorrectAnswer, q.Points, q.OrderNum)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) ListQuestions(ctx context.Context, quizID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,quiz_id,question_text,question_type,options_json,correct_answer,points,order_num
		 FROM questions WHERE quiz_id=$1 ORDER BY order_num`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		var q Question
		var oj string
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.Type, &oj,
			&q.CorrectAnswer, &q.Points, &q.OrderNum); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(oj), &q.Options); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ---- Attempts ----

// CreateAttempt runs the count-then-insert inside a transaction. The unique
// index on (user_id, quiz_id, attempt_number) backstops the count: if two
// submissions race past the count with the same number, one insert fails and
// is reported as ErrConflict for the caller to retry.
func (s *SQLStore) CreateAttempt(ctx context.Context, a *QuizAttempt, maxAttempts int) error {
	aj, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	if a.StartedAt == 0 {
		a.StartedAt = now
	}
	if a.SubmittedAt == 0 {
		a.SubmittedAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var prior int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quiz_attempts WHERE user_id=$1 AND quiz_id=$2`,
		a.UserID, a.QuizID).Scan(&prior); err != nil {
		return err
	}
	if maxAttempts > 0 && prior >= maxAttempts {
		return ErrAttemptLimit
	}
	a.AttemptNumber = prior + 1

	_, err = tx.ExecContext(ctx,
		`INSERT INTO quiz_attempts (id,user_id,quiz_id,attempt_number,answers_json,score,max_score,is_graded,started_at,submitted_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.UserID, a.QuizID, a.AttemptNumber, string(aj),
		a.Score, a.MaxScore, a.IsGraded, a.StartedAt, a.SubmittedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) CountAttempts(ctx context.Context, userID, quizID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quiz_attempts WHERE user_id=$1 AND quiz_id=$2`,
		userID, quizID).Scan(&n)
	return n, err
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (QuizAttempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,user_id,quiz_id,attempt_number,answers_json,score,max_score,is_graded,started_at,submitted_at
		 FROM quiz_attempts WHERE id=$1`, id)
	a, err := scanAttempt(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return QuizAttempt{}, ErrNotFound
	}
	return a, err
}

func (s *SQLStore) ListAttemptsByUser(ctx context.Context, userID string) ([]QuizAttempt, error) {
	return s.listAttempts(ctx,
		`SELECT id,user_id,quiz_id,attempt_number,answers_json,score,max_score,is_graded,started_at,submitted_at
		 FROM quiz_attempts WHERE user_id=$1 ORDER BY started_at DESC`, userID)
}

func (s *SQLStore) ListAttemptsByCourse(ctx context.Context, courseID string) ([]QuizAttempt, error) {
	return s.listAttempts(ctx,
		`SELECT a.id,a.user_id,a.quiz_id,a.attempt_number,a.answers_json,a.score,a.max_score,a.is_graded,a.started_at,a.submitted_at
		 FROM quiz_attempts a JOIN quizzes q ON q.id=a.quiz_id
		 WHERE q.course_id=$1 ORDER BY a.started_at DESC`, courseID)
}

func (s *SQLStore) listAttempts(ctx context.Context, query string, arg any) ([]QuizAttempt, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []QuizAttempt{}
	for rows.Next() {
		a, err := scanAttempt(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAttempt(scan func(...any) error) (QuizAttempt, error) {
	var a QuizAttempt
	var aj string
	var submittedAt sql.NullInt64
	err := scan(&a.ID, &a.UserID, &a.QuizID, &a.AttemptNumber, &aj,
		&a.Score, &a.MaxScore, &a.IsGraded, &a.StartedAt, &submittedAt)
	if err != nil {
		return QuizAttempt{}, err
	}
	if err := json.Unmarshal([]byte(aj), &a.Answers); err != nil {
		a.Answers = map[string]string{}
	}
	a.SubmittedAt = submittedAt.Int64
	return a, nil
}

// ---- Grades ----

func (s *SQLStore) UpsertGrade(ctx context.Context, g *Grade) error {
	if g.GradedAt == 0 {
		g.GradedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO grades (id,attempt_id,user_id,points_earned,max_points,feedback,graded_by,graded_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (attempt_id) DO UPDATE SET
		   points_earned=EXCLUDED.points_earned,
		   max_points=EXCLUDED.max_points,
		   feedback=EXCLUDED.feedback,
		   graded_by=EXCLUDED.graded_by,
		   graded_at=EXCLUDED.graded_at`,
		g.ID, g.AttemptID, g.UserID, g.PointsEarned, g.MaxPoints, g.Feedback, g.GradedBy, g.GradedAt)
	return err
}

func (s *SQLStore) ListGradesByCourse(ctx context.Context, courseID string) ([]Grade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id,g.attempt_id,g.user_id,g.points_earned,g.max_points,g.feedback,g.graded_by,g.graded_at
		 FROM grades g
		 JOIN quiz_attempts a ON a.id=g.attempt_id
		 JOIN quizzes q ON q.id=a.quiz_id
		 WHERE q.course_id=$1 ORDER BY g.graded_at DESC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Grade{}
	for rows.Next() {
		var g Grade
		if err := rows.Scan(&g.ID, &g.AttemptID, &g.UserID, &g.PointsEarned,
			&g.MaxPoints, &g.Feedback, &g.GradedBy, &g.GradedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
