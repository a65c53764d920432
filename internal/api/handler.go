package api

import (
	"context"
	"net/http"
	"time"

	"nexus-ats/internal/apperr"
	"nexus-ats/internal/logging"
	"nexus-ats/internal/model"
	"nexus-ats/internal/service"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the use cases the handlers delegate to.
type Services struct {
	Candidates   *service.CandidateService
	Pipeline     *service.PipelineService
	Documents    *service.DocumentService
	Search       *service.SearchService
	Applications *service.ApplicationService
}

// Options tune request parsing.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
	// MaxUploadSize bounds a single document. The multipart body may exceed
	// it by uploadOverhead.
	MaxUploadSize int64
}

type API struct {
	svc  Services
	db   Pinger
	opts Options
}

func NewAPI(svc Services, db Pinger, opts Options) *API {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = model.DefaultPageLimit
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = model.MaxPageLimit
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = model.MaxDocumentSize
	}
	return &API{svc: svc, db: db, opts: opts}
}

// HealthHandler reports service and database health.
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} Response
// @Failure 503 {object} Response
// @Router /health [get]
func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("health check: database ping failed")
		respondError(w, r, apperr.New("DATABASE_UNAVAILABLE", "Database is unreachable", http.StatusServiceUnavailable))
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "healthy", "database": "connected"})
}

// pageParams reads page and limit, applying the configured default and cap.
func (a *API) pageParams(r *http.Request) (int, int) {
	return getIntParam(r, "page", 1), a.clampLimit(getIntParam(r, "limit", 0))
}

// clampLimit fills in the configured default for an unset limit and caps
// it. Negative values pass through for model.ValidatePaginationParams.
func (a *API) clampLimit(limit int) int {
	if limit == 0 {
		return a.opts.DefaultPageSize
	}
	if limit > a.opts.MaxPageSize {
		return a.opts.MaxPageSize
	}
	return limit
}
