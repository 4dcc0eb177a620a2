package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/studyhall/studyhall-lms/internal/api/http"
	"github.com/studyhall/studyhall-lms/internal/assess"
	"github.com/studyhall/studyhall-lms/internal/auth"
	"github.com/studyhall/studyhall-lms/internal/cert"
	"github.com/studyhall/studyhall-lms/internal/config"
	"github.com/studyhall/studyhall-lms/internal/db"
	"github.com/studyhall/studyhall-lms/internal/grading"
	"github.com/studyhall/studyhall-lms/internal/lms"
	"github.com/studyhall/studyhall-lms/internal/progress"
	"github.com/studyhall/studyhall-lms/internal/rbac"
	"github.com/studyhall/studyhall-lms/internal/storage"
	syncx "github.com/studyhall/studyhall-lms/internal/sync"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := lms.NewSQLStore(dbh, cfg.DBDriver)
	events := syncx.NewEventRepo(dbh)

	// --- Services ---
	authSvc := auth.NewAuthService(cfg.AuthSecret, store)
	tracker := progress.NewTracker(store, events)
	engine := assess.NewEngine(store, grading.NewDefaultGrader(), events)
	issuer := cert.NewIssuer(store, tracker, events)

	blobs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public
	r.Post("/auth/register", api.RegisterHandler(authSvc))
	r.Post("/auth/login", api.LoginHandler(authSvc))
	r.Get("/courses", api.ListCoursesHandler(store))

	// Protected (JWT → authoritative role from users table → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromStore(store))

		// Catalog detail + enrollment
		pr.With(rbac.Require("course:view")).
			Get("/courses/{courseID}", api.GetCourseHandler(store))
		pr.With(rbac.Require("course:enroll")).
			Post("/courses/{courseID}/enroll", api.EnrollHandler(store))

		// Instructor authoring
		pr.With(rbac.Require("course:create")).
			Post("/courses", api.CreateCourseHandler(store))
		pr.With(rbac.Require("course:publish")).
			Post("/courses/{courseID}/publish", api.PublishCourseHandler(store))
		pr.With(rbac.Require("lesson:create")).
			Post("/courses/{courseID}/lessons", api.CreateLessonHandler(store))
		pr.With(rbac.Require("quiz:create")).
			Post("/courses/{courseID}/quizzes", api.CreateQuizHandler(store))
		pr.With(rbac.Require("question:create")).
			Post("/quizzes/{quizID}/questions", api.CreateQuestionHandler(store))
		pr.With(rbac.Require("announcement:create")).
			Post("/courses/{courseID}/announcements", api.CreateAnnouncementHandler(store))
		pr.With(rbac.Require("analytics:view")).
			Get("/courses/{courseID}/analytics", api.CourseAnalyticsHandler(store))
		pr.With(rbac.Require("resource:upload")).
			Post("/lessons/{lessonID}/resources", api.UploadResourceHandler(store, blobs))

		// Lessons + progress
		pr.With(rbac.Require("lesson:view")).
			Get("/lessons/{lessonID}", api.ViewLessonHandler(store, tracker))
		pr.With(rbac.Require("lesson:complete")).
			Post("/lessons/{lessonID}/complete", api.CompleteLessonHandler(tracker))
		pr.With(rbac.Require("lesson:view")).
			Post("/lessons/{lessonID}/time", api.TrackTimeHandler(tracker))
		pr.With(rbac.Require("lesson:view")).
			Get("/courses/{courseID}/progress", api.CourseProgressHandler(tracker))
		pr.With(rbac.Require("resource:download")).
			Get("/resources/{resourceID}/download", api.DownloadResourceHandler(store, blobs))
		pr.With(rbac.Require("announcement:view")).
			Get("/courses/{courseID}/announcements", api.ListAnnouncementsHandler(store))

		// Quiz taking
		pr.With(rbac.Require("quiz:take")).
			Get("/quizzes/{quizID}/questions", api.ListQuestionsHandler(engine))
		pr.With(rbac.Require("quiz:submit")).
			Post("/quizzes/{quizID}/submit", api.SubmitQuizHandler(engine))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(engine))

		// Student surface
		pr.With(rbac.Require("course:enroll")).
			Get("/student/dashboard", api.DashboardHandler(store, tracker))
		pr.With(rbac.Require("attempt:view-own")).
			Get("/student/attempts", api.MyAttemptsHandler(engine))
		pr.With(rbac.Require("certificate:request")).
			Post("/courses/{courseID}/certificate", api.IssueCertificateHandler(issuer))

		// Instructor review
		pr.With(rbac.Require("attempt:grade")).
			Post("/attempts/{attemptID}/grade", api.GradeAttemptHandler(engine))
		pr.With(rbac.Require("gradebook:view")).
			Get("/courses/{courseID}/gradebook", api.GradebookHandler(engine))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s, site=%s)", cfg.HTTPAddr, cfg.DBDriver, cfg.SiteID)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
