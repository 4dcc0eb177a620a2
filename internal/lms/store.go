package lms

import "context"

// Store is the persistence boundary shared by every service. Two
// implementations exist: SQLStore (sqlite/postgres) and an in-memory store
// used by tests and offline dev. Check-then-write operations (attempt insert,
// certificate insert, progress upsert) are atomic inside the store so callers
// never observe torn state.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	TouchLastLogin(ctx context.Context, id string, at int64) error

	// Courses
	CreateCourse(ctx context.Context, c *Course) error
	GetCourse(ctx context.Context, id string) (Course, error)
	ListCourses(ctx context.Context, opts CourseListOpts) ([]Course, error)
	PublishCourse(ctx context.Context, id string, at int64) error

	// Lessons. CreateLesson assigns OrderNum (max within course + 1) when the
	// caller leaves it zero.
	CreateLesson(ctx context.Context, l *Lesson) error
	GetLesson(ctx context.Context, id string) (Lesson, error)
	ListLessons(ctx context.Context, courseID string) ([]Lesson, error)
	CountLessons(ctx context.Context, courseID string) (int, error)

	// Resources
	CreateResource(ctx context.Context, r *Resource) error
	GetResource(ctx context.Context, id string) (Resource, error)

	// Enrollments. CreateEnrollment is idempotent per (user, course): a
	// duplicate request yields the existing row.
	CreateEnrollment(ctx context.Context, e *Enrollment) error
	GetEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error)
	ListEnrollmentsByUser(ctx context.Context, userID string) ([]Enrollment, error)
	CountEnrollments(ctx context.Context, courseID string, completedOnly bool) (int, error)
	SetEnrollmentProgress(ctx context.Context, userID, courseID string, pct float64) error
	CompleteEnrollment(ctx context.Context, userID, courseID string, at int64) error

	// Quizzes and questions
	CreateQuiz(ctx context.Context, q *Quiz) error
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	ListQuizzes(ctx context.Context, courseID string) ([]Quiz, error)
	ListLessonQuizzes(ctx context.Context, lessonID string) ([]Quiz, error)
	CreateQuestion(ctx context.Context, q *Question) error
	ListQuestions(ctx context.Context, quizID string) ([]Question, error)

	// Attempts. CreateAttempt counts the user's prior attempts, enforces
	// maxAttempts, assigns AttemptNumber and inserts, all in one atomic unit.
	// Returns ErrAttemptLimit when the cap is reached and ErrConflict when a
	// concurrent writer claimed the same attempt number.
	CreateAttempt(ctx context.Context, a *QuizAttempt, maxAttempts int) error
	CountAttempts(ctx context.Context, userID, quizID string) (int, error)
	GetAttempt(ctx context.Context, id string) (QuizAttempt, error)
	ListAttemptsByUser(ctx context.Context, userID string) ([]QuizAttempt, error)
	ListAttemptsByCourse(ctx context.Context, courseID string) ([]QuizAttempt, error)

	// Progress. Both upserts are get-or-create: one atomic operation, not an
	// implicit side effect.
	UpsertProgressAccess(ctx context.Context, userID, lessonID string, at int64) (Progress, error)
	MarkLessonComplete(ctx context.Context, userID, lessonID string, at int64) (Progress, error)
	AddProgressTime(ctx context.Context, userID, lessonID string, minutes int, at int64) (Progress, error)
	MapProgress(ctx context.Context, userID, courseID string) (map[string]Progress, error)
	CountCompletedLessons(ctx context.Context, userID, courseID string) (int, error)

	// Grades
	UpsertGrade(ctx context.Context, g *Grade) error
	ListGradesByCourse(ctx context.Context, courseID string) ([]Grade, error)

	// Announcements
	CreateAnnouncement(ctx context.Context, a *Announcement) error
	ListAnnouncements(ctx context.Context, courseID string) ([]Announcement, error)

	// Certificates. CreateCertificate returns ErrConflict when the (user,
	// course) pair already holds one; callers re-read the winner's row.
	CreateCertificate(ctx context.Context, c *Certificate) error
	GetCertificate(ctx context.Context, userID, courseID string) (Certificate, error)
}

type CourseListOpts struct {
	PublishedOnly bool
	InstructorID  string
	Category      string
	Search        string
	Limit         int
	Offset        int
}
