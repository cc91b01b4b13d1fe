package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"carenote/internal/auth"
	"carenote/internal/clinical"
	"carenote/internal/config"
	"carenote/internal/http/handler"
	mw "carenote/internal/http/middleware"
	"carenote/internal/suggest"
)

// Deps carries the services the routes are built on.
type Deps struct {
	Config      config.Config
	JWT         *auth.JWT
	Auth        *auth.Service
	Submitter   handler.Submitter
	Records     handler.RecordReader
	Plans       handler.PlanStore
	Sessions    handler.Sessions
	Suggestions suggest.Source
	Catalog     *suggest.Catalog
	Logger      *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(d.Config.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(d.Config.CORSAllowedOrigins, d.Config.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	ah := &handler.AuthHandler{Svc: d.Auth, JWT: d.JWT, Logger: logger.Named("auth")}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	authed := auth.RequireAuth(d.JWT)
	therapist := auth.RequireRole(clinical.RoleTherapist)

	me := &handler.MeHandler{}
	r.With(authed).Get("/me", me.Me)

	ch := &handler.CatalogHandler{Suggestions: d.Suggestions, Catalog: d.Catalog, Logger: logger.Named("catalog")}
	r.Get("/catalog", ch.Index)
	r.Get("/guidelines/{section}", ch.Guideline)
	r.With(authed).Get("/suggestions", ch.Suggest)
	r.With(authed).Get("/insights", ch.Insight)

	fh := &handler.FormHandler{Submitter: d.Submitter, Records: d.Records, Logger: logger.Named("forms")}
	r.Route("/intake", func(r chi.Router) {
		r.Use(authed)
		r.Post("/", fh.SubmitIntake)
		r.Get("/", fh.ListIntakes)
		r.With(therapist).Post("/{id}/review", fh.ReviewIntake)
	})
	r.Route("/assessments", func(r chi.Router) {
		r.Use(authed, therapist)
		r.Post("/", fh.SubmitAssessment)
		r.Get("/", fh.ListAssessments)
	})

	ph := &handler.PlanHandler{Plans: d.Plans, Sessions: d.Sessions, Logger: logger.Named("plans")}
	r.Route("/plans", func(r chi.Router) {
		r.Use(authed)

		r.With(therapist).Post("/", ph.Create)
		r.Get("/", ph.List)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", ph.Get)
			r.Delete("/session", ph.CloseSession)
			r.Post("/advance", ph.Advance)
			r.Post("/back", ph.Back)
			r.Post("/save", ph.Save)
			r.Get("/timeline", ph.Timeline)

			r.Route("/sections/{section}", func(r chi.Router) {
				r.Post("/edit", ph.Edit)
				r.Post("/revert", ph.Revert)
				r.Post("/comments", ph.Comment)
				r.Group(func(r chi.Router) {
					r.Use(therapist)
					r.Post("/refine", ph.Refine)
					r.Post("/refine/reset", ph.ResetRefine)
					r.Post("/private-notes", ph.PrivateNotes)
					r.Get("/compliance", ph.Compliance)
				})
			})
		})
	})

	return r
}
