package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/studyhall/studyhall-lms/internal/lms"
	"github.com/studyhall/studyhall-lms/internal/rbac"
)

// GET /courses?search=&category=&limit=&offset=
// The public catalog only lists published courses.
func ListCoursesHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		courses, err := store.ListCourses(r.Context(), lms.CourseListOpts{
			PublishedOnly: true,
			Category:      q.Get("category"),
			Search:        q.Get("search"),
			Limit:         parseIntDefault(q.Get("limit"), 50),
			Offset:        parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, courses)
	}
}

type createCourseReq struct {
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description"`
	Category      string `json:"category" validate:"max=100"`
	DurationWeeks int    `json:"duration_weeks" validate:"omitempty,min=1,max=104"`
}

// POST /courses
func CreateCourseHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCourseReq
		if err := decodeValid(r, &req); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.DurationWeeks == 0 {
			req.DurationWeeks = 12
		}
		c := lms.Course{
			ID:            lms.NewID(),
			Title:         req.Title,
			Description:   req.Description,
			Category:      req.Category,
			InstructorID:  rbac.SubjectFromContext(r.Context()),
			DurationWeeks: req.DurationWeeks,
		}
		if err := store.CreateCourse(r.Context(), &c); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

// GET /courses/{courseID}
func GetCourseHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "courseID")
		c, err := store.GetCourse(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		lessons, err := store.ListLessons(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		quizzes, err := store.ListQuizzes(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"course":  c,
			"lessons": lessons,
			"quizzes": quizzes,
		})
	}
}

// POST /courses/{courseID}/publish — owning instructor only.
func PublishCourseHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "courseID")
		if err := requireCourseOwner(r, store, id); err != nil {
			writeError(w, err)
			return
		}
		if err := store.PublishCourse(r.Context(), id, time.Now().Unix()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /courses/{courseID}/enroll
func EnrollHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		course, err := store.GetCourse(r.Context(), courseID)
		if err != nil {
			writeError(w, err)
			return
		}
		if !course.IsPublished {
			writeError(w, lms.ErrNotFound)
			return
		}
		e := lms.Enrollment{
			ID:       lms.NewID(),
			UserID:   rbac.SubjectFromContext(r.Context()),
			CourseID: courseID,
		}
		// Duplicate enrollments collapse onto the existing row.
		if err := store.CreateEnrollment(r.Context(), &e); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

// GET /courses/{courseID}/analytics — owning instructor only.
func CourseAnalyticsHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		if err := requireCourseOwner(r, store, courseID); err != nil {
			writeError(w, err)
			return
		}
		total, err := store.CountEnrollments(r.Context(), courseID, false)
		if err != nil {
			writeError(w, err)
			return
		}
		completed, err := store.CountEnrollments(r.Context(), courseID, true)
		if err != nil {
			writeError(w, err)
			return
		}
		attempts, err := store.ListAttemptsByCourse(r.Context(), courseID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"total_enrollments":     total,
			"completed_enrollments": completed,
			"quiz_attempts":         attempts,
		})
	}
}

type announcementReq struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required"`
	IsUrgent bool   `json:"is_urgent"`
}

// POST /courses/{courseID}/announcements — owning instructor only.
func CreateAnnouncementHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		if err := requireCourseOwner(r, store, courseID); err != nil {
			writeError(w, err)
			return
		}
		var req announcementReq
		if err := decodeValid(r, &req); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		a := lms.Announcement{
			ID:       lms.NewID(),
			CourseID: courseID,
			AuthorID: rbac.SubjectFromContext(r.Context()),
			Title:    req.Title,
			Content:  req.Content,
			IsUrgent: req.IsUrgent,
		}
		if err := store.CreateAnnouncement(r.Context(), &a); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// GET /courses/{courseID}/announcements
func ListAnnouncementsHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		if _, err := store.GetCourse(r.Context(), courseID); err != nil {
			writeError(w, err)
			return
		}
		out, err := store.ListAnnouncements(r.Context(), courseID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// requireCourseOwner resolves the course and rejects callers who are neither
// its instructor nor an admin.
func requireCourseOwner(r *http.Request, store lms.Store, courseID string) error {
	course, err := store.GetCourse(r.Context(), courseID)
	if err != nil {
		return err
	}
	sub := rbac.SubjectFromContext(r.Context())
	role := rbac.RoleFromContext(r.Context())
	if course.InstructorID != sub && role != lms.RoleAdmin {
		return lms.ErrAccessDenied
	}
	return nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
