package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"nexus-ats/internal/apperr"
)

func NewRouter(a *API, mw MiddlewareConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(Instrument())
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware(mw))

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Get("/health", a.HealthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimit(mw))

		r.Route("/candidates", func(r chi.Router) {
			r.Post("/", a.CreateCandidateHandler)
			r.Get("/", a.ListCandidatesHandler)
			r.Get("/search", a.SearchCandidatesHandler)
			r.Get("/export", a.ExportCandidatesHandler)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.GetCandidateHandler)
				r.Patch("/", a.UpdateCandidateHandler)
				r.Delete("/", a.DeleteCandidateHandler)

				r.Put("/stage", a.UpdateStageHandler)
				r.Get("/stage/history", a.StageHistoryHandler)

				r.Post("/documents", a.UploadDocumentHandler)
				r.Get("/documents", a.ListDocumentsHandler)
				r.Get("/documents/stats", a.DocumentStatsHandler)
				r.Get("/documents/{documentId}", a.DownloadDocumentHandler)
				r.Delete("/documents/{documentId}", a.DeleteDocumentHandler)

				r.Post("/notes", a.AddNoteHandler)
				r.Get("/notes", a.ListNotesHandler)

				r.Post("/applications", a.LinkApplicationHandler)
				r.Patch("/applications/{applicationId}", a.UpdateApplicationHandler)
				r.Delete("/applications/{applicationId}", a.UnlinkApplicationHandler)
			})
		})

		r.Get("/pipeline/stages/{stage}/next", a.NextStagesHandler)
		r.Get("/jobs/{jobId}/candidates", a.JobCandidatesHandler)

		r.Get("/applications/stats", a.ApplicationStatsHandler)
		r.Post("/applications/convert", a.ConvertApplicantHandler)

		r.Post("/search", a.SearchHandler)
		r.Get("/search/suggestions", a.SuggestionsHandler)
		r.Get("/search/stats", a.SearchStatsHandler)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, apperr.NotFound("ROUTE_NOT_FOUND", "Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, apperr.New("METHOD_NOT_ALLOWED", "Method not allowed", http.StatusMethodNotAllowed))
	})

	return r
}
