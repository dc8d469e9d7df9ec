package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/mind-engage/eduquest/internal/audit"
	"github.com/mind-engage/eduquest/internal/auth"
	"github.com/mind-engage/eduquest/internal/authoring"
	"github.com/mind-engage/eduquest/internal/evaluation"
	"github.com/mind-engage/eduquest/internal/logging"
	"github.com/mind-engage/eduquest/internal/metrics"
	"github.com/mind-engage/eduquest/internal/portal"
	"github.com/mind-engage/eduquest/internal/rbac"
	"github.com/mind-engage/eduquest/internal/session"
	"github.com/mind-engage/eduquest/internal/storage"
)

// EventLister is implemented by audit.EventRepo on SQL drivers.
type EventLister interface {
	List(ctx context.Context, key string, limit int) ([]audit.Event, error)
}

type Deps struct {
	Repo     *portal.Repository
	Auth     *auth.AuthService
	Authn    *auth.Authenticator
	Drafts   *authoring.Drafts
	Sessions *session.Manager
	Reviewer *evaluation.Reviewer
	Blobs    storage.BlobStore
	Audit    audit.Recorder
	Events   EventLister // nil when the store has no event table
	Metrics  *metrics.Metrics
	Log      *zap.Logger

	CORSOrigins []string
}

func (d *Deps) record(ctx context.Context, typ, key string, payload any) {
	if err := d.Audit.Record(ctx, typ, key, payload); err != nil {
		d.Log.Warn("audit record failed", zap.String("type", typ), zap.String("key", key), zap.Error(err))
	}
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Audit == nil {
		d.Audit = audit.LogRecorder{Log: d.Log}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(d.Sessions.Len)
	}
	if d.Reviewer == nil {
		d.Reviewer = evaluation.NewReviewer(d.Repo)
	}
	if d.Drafts == nil {
		d.Drafts = authoring.NewDrafts(d.Repo)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.RequestLogger(d.Log), middleware.Recoverer)
	r.Use(d.Metrics.Middleware)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(ar chi.Router) {
		ar.Post("/auth/admin/login", AdminLoginHandler(d.Authn, d.Auth))
		ar.Post("/auth/student/login", StudentLoginHandler(d.Authn, d.Auth))
		ar.With(auth.Middleware(d.Auth, portal.DestHome)).
			Post("/auth/logout", LogoutHandler(d.Drafts))
		ar.Post("/results", ResultsHandler(d.Repo, d.Log))

		// Administrator area
		ar.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(d.Auth, portal.DestAdminLogin))

			pr.Route("/admin/students", func(sr chi.Router) {
				sr.Use(rbac.Require(rbac.PermStudentsManage, portal.DestAdminLogin))
				sr.Get("/", ListStudentsHandler(d.Repo, d.Log))
				sr.Post("/", CreateStudentHandler(&d))
				sr.Post("/bulk", BulkUpsertStudentsHandler(&d))
				sr.Put("/{roll}", UpdateStudentHandler(&d))
				sr.Delete("/{roll}", DeleteStudentHandler(&d))
				sr.Post("/{roll}/photo", UploadPhotoHandler(&d))
				sr.Post("/{roll}/subjects", AssignSubjectHandler(&d))
				sr.Delete("/{roll}/subjects/{code}", UnassignSubjectHandler(&d))
			})

			pr.Route("/admin/subjects", func(sr chi.Router) {
				sr.Use(rbac.Require(rbac.PermSubjectsManage, portal.DestAdminLogin))
				sr.Get("/", ListSubjectsHandler(d.Repo, d.Log))
				sr.Delete("/{code}", DeleteSubjectHandler(&d))
			})

			pr.Route("/admin/authoring", func(sr chi.Router) {
				sr.Use(rbac.Require(rbac.PermSubjectsManage, portal.DestAdminLogin))
				sr.Get("/", AuthoringProgressHandler(d.Drafts))
				sr.Post("/", BeginAuthoringHandler(&d))
				sr.Post("/questions", AddQuestionHandler(&d))
				sr.Delete("/", ResetAuthoringHandler(d.Drafts))
			})

			pr.Route("/admin/attempts", func(sr chi.Router) {
				sr.Use(rbac.Require(rbac.PermAttemptsReview, portal.DestAdminLogin))
				sr.Get("/", ListCompletedAttemptsHandler(d.Reviewer, d.Log))
				sr.Get("/{roll}/{code}", ReviewAttemptHandler(d.Reviewer, d.Log))
				sr.Post("/{roll}/{code}/publish", PublishAttemptHandler(&d))
			})

			pr.With(rbac.Require(rbac.PermEventsView, portal.DestAdminLogin)).
				Get("/admin/events", ListEventsHandler(d.Events, d.Log))
		})

		// Student area
		ar.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(d.Auth, portal.DestStudentLogin))

			pr.With(rbac.Require(rbac.PermDashboardView, portal.DestStudentLogin)).
				Get("/student/dashboard", DashboardHandler(d.Repo, d.Log))

			pr.Route("/exams/{code}/session", func(sr chi.Router) {
				sr.Use(rbac.Require(rbac.PermExamTake, portal.DestStudentLogin))
				sr.Post("/", StartExamHandler(&d))
				sr.Get("/", ExamViewHandler(&d))
				sr.Post("/answers", SelectAnswerHandler(&d))
				sr.Post("/navigate", NavigateHandler(&d))
				sr.Post("/advisory/dismiss", DismissAdvisoryHandler(&d))
				sr.Post("/submit", SubmitExamHandler(&d))
			})

			pr.With(rbac.Require(rbac.PermCalcUse, portal.DestStudentLogin)).
				Post("/calc", CalcHandler())
		})
	})

	r.Route("/assets", func(ar chi.Router) {
		MountAssets(ar, d.Blobs)
	})
	r.Handle("/metrics", d.Metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := d.Repo.Load(r.Context()); err != nil {
			d.Log.Warn("not ready", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})
	return r
}
