package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studyhall/studyhall-lms/internal/assess"
	"github.com/studyhall/studyhall-lms/internal/lms"
	"github.com/studyhall/studyhall-lms/internal/rbac"
)

type createQuizReq struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	LessonID    string `json:"lesson_id"`
	QuizType    string `json:"quiz_type" validate:"omitempty,oneof=lesson_quiz assignment exam"`
	TimeLimit   int    `json:"time_limit" validate:"omitempty,min=1"`
	MaxAttempts int    `json:"max_attempts" validate:"omitempty,min=1"`
}

// POST /courses/{courseID}/quizzes — owning instructor only.
func CreateQuizHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		if err := requireCourseOwner(r, store, courseID); err != nil {
			writeError(w, err)
			return
		}
		var req createQuizReq
		if err := decodeValid(r, &req); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.MaxAttempts == 0 {
			req.MaxAttempts = 3
		}
		q := lms.Quiz{
			ID:          lms.NewID(),
			CourseID:    courseID,
			LessonID:    req.LessonID,
			Title:       req.Title,
			Description: req.Description,
			QuizType:    req.QuizType,
			TimeLimit:   req.TimeLimit,
			MaxAttempts: req.MaxAttempts,
		}
		if err := store.CreateQuiz(r.Context(), &q); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

type createQuestionReq struct {
	Text          string       `json:"question_text" validate:"required"`
	Type          string       `json:"question_type" validate:"required,oneof=mcq true_false short_answer essay"`
	Options       []lms.Choice `json:"options" validate:"omitempty,dive"`
	CorrectAnswer string       `json:"correct_answer"`
	Points        float64      `json:"points" validate:"omitempty,min=0"`
}

// POST /quizzes/{quizID}/questions — instructor owning the quiz's course.
func CreateQuestionHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		quiz, err := store.GetQuiz(r.Context(), quizID)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := requireCourseOwner(r, store, quiz.CourseID); err != nil {
			writeError(w, err)
			return
		}
		var req createQuestionReq
		if err := decodeValid(r, &req); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.Points == 0 {
			req.Points = 1
		}
		if req.Type != lms.QuestionMCQ {
			req.Options = nil
		}
		q := lms.Question{
			ID:            lms.NewID(),
			QuizID:        quizID,
			Text:          req.Text,
			Type:          req.Type,
			Options:       req.Options,
			CorrectAnswer: req.CorrectAnswer,
			Points:        req.Points,
		}
		if err := store.CreateQuestion(r.Context(), &q); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// GET /quizzes/{quizID}/questions
// The take-quiz view: ordered questions without answer keys. Rejected with
// 409 once the caller has used every attempt.
func ListQuestionsHandler(engine *assess.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		userID := rbac.SubjectFromContext(r.Context())
		questions, err := engine.ListQuestions(r.Context(), quizID, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, questions)
	}
}

type submitReq struct {
	Answers map[string]string `json:"answers"`
}

// POST /quizzes/{quizID}/submit
func SubmitQuizHandler(engine *assess.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		var req submitReq
		if err := decodeValid(r, &req); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		userID := rbac.SubjectFromContext(r.Context())
		attempt, err := engine.Submit(r.Context(), quizID, userID, req.Answers)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, attempt)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(engine *assess.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		a, err := engine.Attempt(ctx, chi.URLParam(r, "attemptID"),
			rbac.SubjectFromContext(ctx), rbac.RoleFromContext(ctx))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /student/attempts — the caller's own attempts, newest first.
func MyAttemptsHandler(engine *assess.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := engine.UserAttempts(r.Context(), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type gradeReq struct {
	PointsEarned float64 `json:"points_earned" validate:"min=0"`
	MaxPoints    float64 `json:"max_points" validate:"required,min=0"`
	Feedback     string  `json:"feedback"`
}

// POST /attempts/{attemptID}/grade — manual grade for essay/short-answer
// review. Overwrites a prior grade for the same attempt.
func GradeAttemptHandler(engine *assess.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gradeReq
		if err := decodeValid(r, &req); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		g, err := engine.RecordGrade(r.Context(), chi.URLParam(r, "attemptID"),
			rbac.SubjectFromContext(r.Context()), req.PointsEarned, req.MaxPoints, req.Feedback)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, g)
	}
}

// GET /courses/{courseID}/gradebook — owning instructor's rollup of quizzes,
// attempts and manual grades.
func GradebookHandler(engine *assess.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		gb, err := engine.Gradebook(ctx, chi.URLParam(r, "courseID"),
			rbac.SubjectFromContext(ctx), rbac.RoleFromContext(ctx))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, gb)
	}
}
