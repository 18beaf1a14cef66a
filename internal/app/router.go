package app

import (
	"database/sql"
	"net/http"
	"time"

	"acadlms/internal/academic"
	"acadlms/internal/app/observability"
	"acadlms/internal/auth"
	"acadlms/internal/exam"
	"acadlms/internal/question"
	"acadlms/internal/report"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(cfg Config, db *sql.DB) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	collector := observability.NewCollector(db)
	r.Use(collector.Middleware)

	authSvc := auth.NewService(db, auth.ServiceConfig{
		JWTSecret:  cfg.JWTSecret,
		JWTTTL:     time.Duration(cfg.JWTTTLHours) * time.Hour,
		BcryptCost: cfg.BcryptCost,
	})
	authHandler := auth.NewHandler(authSvc)

	academicSvc := academic.NewService(db)
	academicHandler := academic.NewHandler(academicSvc)

	questionSvc := question.NewService(db)
	questionHandler := question.NewHandler(questionSvc)

	examSvc := exam.NewService(db)
	examHandler := exam.NewHandler(examSvc)

	reportSvc := report.NewService(db)
	reportHandler := report.NewHandler(reportSvc)

	rateLimiter := NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(public chi.Router) {
			public.Use(RateLimitMiddleware(rateLimiter))
			public.Post("/auth/login", authHandler.Login)
		})

		api.Group(func(secure chi.Router) {
			secure.Use(authHandler.RequireAuth)
			secure.Use(CSRFMiddleware(cfg.CSRFEnforced))

			secure.Get("/auth/me", authHandler.Me)

			secure.Get("/terms", academicHandler.ListTerms)
			secure.Get("/terms/{id}/calendar", academicHandler.GetCalendar)
			secure.Get("/terms/{id}/offered-courses", academicHandler.ListOfferingsByTerm)
			secure.Get("/majors", academicHandler.ListMajors)
			secure.Get("/courses", academicHandler.ListCourses)
			secure.Get("/offered-courses/{id}", academicHandler.GetOffering)

			secure.Get("/exams/{id}", examHandler.GetExam)
			secure.Get("/exams/{id}/questions", examHandler.ListExamQuestions)
			secure.Get("/attempts/{id}", examHandler.GetAttempt)

			secure.Group(func(student chi.Router) {
				student.Use(authHandler.RequireRoles("STUDENT"))
				student.Get("/me/offered-courses", academicHandler.MyEnrolledOfferings)
				student.Post("/offered-courses/{id}/enroll", academicHandler.Enroll)
				student.Post("/offered-courses/{id}/drop", academicHandler.Drop)
				student.Post("/exams/{id}/start", examHandler.StartAttempt)
				student.Put("/attempts/{id}/answers", examHandler.SaveAnswer)
				student.Post("/attempts/{id}/submit", examHandler.SubmitAttempt)
			})

			secure.Group(func(teacher chi.Router) {
				teacher.Use(authHandler.RequireRoles("TEACHER", "ADMIN"))
				teacher.Get("/me/taught-courses", academicHandler.MyTaughtOfferings)
				teacher.Get("/offered-courses/{id}/students", academicHandler.ListEnrolledStudents)

				teacher.Post("/questions", questionHandler.Create)
				teacher.Get("/questions", questionHandler.ListByCourse)
				teacher.Get("/questions/{id}", questionHandler.Get)
				teacher.Delete("/questions/{id}", questionHandler.Delete)

				teacher.Post("/exams", examHandler.CreateExam)
				teacher.Get("/exams", examHandler.ListExams)
				teacher.Put("/exams/{id}", examHandler.UpdateExam)
				teacher.Delete("/exams/{id}", examHandler.DeleteExam)
				teacher.Post("/exams/{id}/questions", examHandler.AssignQuestion)
				teacher.Delete("/exams/{id}/questions/{questionID}", examHandler.RemoveQuestion)
				teacher.Get("/exams/{id}/attempts", examHandler.ListAttempts)
				teacher.Post("/answers/{id}/grade", examHandler.GradeEssay)

				teacher.Get("/reports/exams/{id}/summary", reportHandler.Summary)
				teacher.Get("/reports/exams/{id}/results", reportHandler.Results)
			})

			secure.Group(func(admin chi.Router) {
				admin.Use(authHandler.RequireRoles("ADMIN"))
				admin.Post("/admin/persons", authHandler.Register)
				admin.Get("/admin/persons", authHandler.ListPersons)
				admin.Post("/admin/persons/{id}/roles", authHandler.AssignRole)
				admin.Get("/admin/persons/export", authHandler.ExportRoster)
				admin.Post("/admin/persons/import", authHandler.ImportRoster)

				admin.Post("/majors", academicHandler.CreateMajor)
				admin.Put("/majors/{id}", academicHandler.UpdateMajor)
				admin.Delete("/majors/{id}", academicHandler.DeleteMajor)
				admin.Post("/courses", academicHandler.CreateCourse)
				admin.Put("/courses/{id}", academicHandler.UpdateCourse)
				admin.Delete("/courses/{id}", academicHandler.DeleteCourse)
				admin.Post("/terms", academicHandler.CreateTerm)
				admin.Delete("/terms/{id}", academicHandler.DeleteTerm)
				admin.Put("/terms/{id}/calendar", academicHandler.SetCalendar)
				admin.Post("/offered-courses", academicHandler.CreateOffering)
			})
		})
	})

	return r
}
