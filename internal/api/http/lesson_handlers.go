package http

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/studyhall/studyhall-lms/internal/lms"
	"github.com/studyhall/studyhall-lms/internal/progress"
	"github.com/studyhall/studyhall-lms/internal/rbac"
	"github.com/studyhall/studyhall-lms/internal/storage"
)

type createLessonReq struct {
	Title      string `json:"title" validate:"required,max=200"`
	Content    string `json:"content"`
	VideoURL   string `json:"video_url" validate:"omitempty,url"`
	WeekNumber int    `json:"week_number" validate:"omitempty,min=1"`
}

// POST /courses/{courseID}/lessons — owning instructor only. The order number
// is assigned by the store (next slot in the course).
func CreateLessonHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		if err := requireCourseOwner(r, store, courseID); err != nil {
			writeError(w, err)
			return
		}
		var req createLessonReq
		if err := decodeValid(r, &req); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		l := lms.Lesson{
			ID:         lms.NewID(),
			CourseID:   courseID,
			Title:      req.Title,
			Content:    req.Content,
			VideoURL:   req.VideoURL,
			WeekNumber: req.WeekNumber,
		}
		if err := store.CreateLesson(r.Context(), &l); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, l)
	}
}

// GET /lessons/{lessonID}
// Viewing a lesson records access for the viewer (get-or-create Progress)
// and returns the lesson with its embedded quizzes.
func ViewLessonHandler(store lms.Store, tracker *progress.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lessonID := chi.URLParam(r, "lessonID")
		lesson, err := store.GetLesson(r.Context(), lessonID)
		if err != nil {
			writeError(w, err)
			return
		}
		userID := rbac.SubjectFromContext(r.Context())
		p, err := tracker.RecordAccess(r.Context(), lessonID, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		quizzes, err := store.ListLessonQuizzes(r.Context(), lessonID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"lesson":   lesson,
			"progress": p,
			"quizzes":  quizzes,
		})
	}
}

// POST /lessons/{lessonID}/complete
func CompleteLessonHandler(tracker *progress.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lessonID := chi.URLParam(r, "lessonID")
		userID := rbac.SubjectFromContext(r.Context())
		p, err := tracker.Complete(r.Context(), lessonID, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

type trackTimeReq struct {
	Minutes int `json:"minutes" validate:"min=0,max=1440"`
}

// POST /lessons/{lessonID}/time
func TrackTimeHandler(tracker *progress.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lessonID := chi.URLParam(r, "lessonID")
		var req trackTimeReq
		if err := decodeValid(r, &req); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		userID := rbac.SubjectFromContext(r.Context())
		p, err := tracker.TrackTime(r.Context(), lessonID, userID, req.Minutes)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// POST /lessons/{lessonID}/resources — multipart upload, field "file".
func UploadResourceHandler(store lms.Store, blobs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lessonID := chi.URLParam(r, "lessonID")
		lesson, err := store.GetLesson(r.Context(), lessonID)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := requireCourseOwner(r, store, lesson.CourseID); err != nil {
			writeError(w, err)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()

		res := lms.Resource{
			ID:       lms.NewID(),
			LessonID: lessonID,
			Title:    r.FormValue("title"),
			Filename: filepath.Base(hdr.Filename),
			FileType: filepath.Ext(hdr.Filename),
		}
		if res.Title == "" {
			res.Title = res.Filename
		}
		res.BlobKey = "resources/" + res.ID + "/" + res.Filename
		if _, err := blobs.Put(res.BlobKey, f); err != nil {
			writeError(w, err)
			return
		}
		if err := store.CreateResource(r.Context(), &res); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

// GET /resources/{resourceID}/download
func DownloadResourceHandler(store lms.Store, blobs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := store.GetResource(r.Context(), chi.URLParam(r, "resourceID"))
		if err != nil {
			writeError(w, err)
			return
		}
		rc, err := blobs.Get(res.BlobKey)
		if err != nil {
			writeError(w, lms.ErrNotFound)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Disposition", `attachment; filename="`+res.Filename+`"`)
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.Copy(w, rc)
	}
}
