package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studyhall/studyhall-lms/internal/cert"
	"github.com/studyhall/studyhall-lms/internal/lms"
	"github.com/studyhall/studyhall-lms/internal/progress"
	"github.com/studyhall/studyhall-lms/internal/rbac"
)

// GET /student/dashboard
// Enrollments with freshly recomputed progress percentages. The snapshot on
// each enrollment row is refreshed here, not trusted.
func DashboardHandler(store lms.Store, tracker *progress.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := rbac.SubjectFromContext(r.Context())
		enrollments, err := store.ListEnrollmentsByUser(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		for i := range enrollments {
			pct, err := tracker.RefreshEnrollment(r.Context(), enrollments[i].CourseID, userID)
			if err != nil {
				writeError(w, err)
				return
			}
			enrollments[i].ProgressPercentage = pct
		}
		writeJSON(w, http.StatusOK, enrollments)
	}
}

// GET /courses/{courseID}/progress
func CourseProgressHandler(tracker *progress.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		userID := rbac.SubjectFromContext(r.Context())
		pct, err := tracker.CoursePercent(r.Context(), courseID, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		overview, err := tracker.Overview(r.Context(), courseID, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"percentage": pct,
			"lessons":    overview,
		})
	}
}

// POST /courses/{courseID}/certificate
// Idempotent: repeated calls return the same certificate.
func IssueCertificateHandler(issuer *cert.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		userID := rbac.SubjectFromContext(r.Context())
		c, err := issuer.Issue(r.Context(), courseID, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}
