package lms

// Roles known to the platform. Role is resolved from the users table per
// request and carried in the request context; it is never read from ambient
// process state.
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// Question types. Only mcq and true_false are auto-gradable.
const (
	QuestionMCQ         = "mcq"
	QuestionTrueFalse   = "true_false"
	QuestionShortAnswer = "short_answer"
	QuestionEssay       = "essay"
)

// Quiz types.
const (
	QuizLesson     = "lesson_quiz"
	QuizAssignment = "assignment"
	QuizExam       = "exam"
)

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	CreatedAt    int64  `json:"created_at,omitempty"`
	LastLogin    int64  `json:"last_login,omitempty"`
}

type Course struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Category      string `json:"category,omitempty"`
	InstructorID  string `json:"instructor_id"`
	IsPublished   bool   `json:"is_published"`
	DurationWeeks int    `json:"duration_weeks,omitempty"`
	CreatedAt     int64  `json:"created_at,omitempty"`
	UpdatedAt     int64  `json:"updated_at,omitempty"`
}

type Lesson struct {
	ID         string `json:"id"`
	CourseID   string `json:"course_id"`
	Title      string `json:"title"`
	Content    string `json:"content,omitempty"`
	VideoURL   string `json:"video_url,omitempty"`
	OrderNum   int    `json:"order_num"`
	WeekNumber int    `json:"week_number"`
	CreatedAt  int64  `json:"created_at,omitempty"`
}

type Resource struct {
	ID         string `json:"id"`
	LessonID   string `json:"lesson_id"`
	Title      string `json:"title"`
	Filename   string `json:"filename"`
	BlobKey    string `json:"-"`
	FileType   string `json:"file_type,omitempty"`
	UploadedAt int64  `json:"uploaded_at,omitempty"`
}

type Enrollment struct {
	ID                 string  `json:"id"`
	UserID             string  `json:"user_id"`
	CourseID           string  `json:"course_id"`
	EnrolledAt         int64   `json:"enrolled_at"`
	CompletedAt        int64   `json:"completed_at,omitempty"`
	CertificateIssued  bool    `json:"certificate_issued"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

type Quiz struct {
	ID          string `json:"id"`
	CourseID    string `json:"course_id"`
	LessonID    string `json:"lesson_id,omitempty"` // set for quizzes embedded in a lesson
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	QuizType    string `json:"quiz_type"`
	TimeLimit   int    `json:"time_limit,omitempty"` // minutes
	MaxAttempts int    `json:"max_attempts"`
	DueDate     int64  `json:"due_date,omitempty"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

// Choice is one selectable option of an mcq question. Stored as JSON in the
// questions table; never a free-form blob in memory.
type Choice struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

type Question struct {
	ID            string   `json:"id"`
	QuizID        string   `json:"quiz_id"`
	Text          string   `json:"question_text"`
	Type          string   `json:"question_type"`
	Options       []Choice `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Points        float64  `json:"points"`
	OrderNum      int      `json:"order_num"`
}

// QuizAttempt is immutable once written; a resubmission is a new attempt with
// the next attempt_number.
type QuizAttempt struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	QuizID        string            `json:"quiz_id"`
	AttemptNumber int               `json:"attempt_number"`
	Answers       map[string]string `json:"answers"` // question ID -> submitted text
	Score         float64           `json:"score"`
	MaxScore      float64           `json:"max_score"`
	IsGraded      bool              `json:"is_graded"`
	StartedAt     int64             `json:"started_at,omitempty"`
	SubmittedAt   int64             `json:"submitted_at,omitempty"`
}

type Progress struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	LessonID       string `json:"lesson_id"`
	Completed      bool   `json:"completed"`
	CompletionDate int64  `json:"completion_date,omitempty"`
	TimeSpent      int    `json:"time_spent"` // minutes
	LastAccessed   int64  `json:"last_accessed,omitempty"`
}

// Grade is a manual instructor annotation tied 1:1 to an attempt. It never
// alters the attempt's auto-score.
type Grade struct {
	ID           string  `json:"id"`
	AttemptID    string  `json:"attempt_id"`
	UserID       string  `json:"user_id"`
	PointsEarned float64 `json:"points_earned"`
	MaxPoints    float64 `json:"max_points"`
	Feedback     string  `json:"feedback,omitempty"`
	GradedBy     string  `json:"graded_by"`
	GradedAt     int64   `json:"graded_at,omitempty"`
}

type Announcement struct {
	ID        string `json:"id"`
	CourseID  string `json:"course_id"`
	AuthorID  string `json:"author_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	IsUrgent  bool   `json:"is_urgent"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

type Certificate struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	Serial   string `json:"certificate_id"` // human-displayable unique serial
	IssuedAt int64  `json:"issued_at"`
}
