package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"nexus-ats/internal/apperr"
	"nexus-ats/internal/model"
	"nexus-ats/internal/service"
	"nexus-ats/internal/validation"
)

// ConvertRequest turns an applicant into a linked candidate.
type ConvertRequest struct {
	Candidate   *model.CandidateInput   `json:"candidate" validate:"required"`
	Application *model.ApplicationInput `json:"application" validate:"required"`
}

// LinkApplicationHandler links a candidate to a job.
// @Summary Link job application
// @Tags applications
// @Accept json
// @Produce json
// @Param id path string true "Candidate ID"
// @Param application body model.ApplicationInput true "Link"
// @Success 201 {object} Response{data=model.JobApplication}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Router /api/candidates/{id}/applications [post]
func (a *API) LinkApplicationHandler(w http.ResponseWriter, r *http.Request) {
	var in model.ApplicationInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	app, err := a.svc.Applications.Link(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, app)
}

// UpdateApplicationHandler changes the status or notes of a link.
// @Summary Update job application
// @Tags applications
// @Accept json
// @Produce json
// @Param id path string true "Candidate ID"
// @Param applicationId path string true "Application ID"
// @Param update body model.ApplicationUpdate true "Fields to change"
// @Success 200 {object} Response{data=model.JobApplication}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /api/candidates/{id}/applications/{applicationId} [patch]
func (a *API) UpdateApplicationHandler(w http.ResponseWriter, r *http.Request) {
	var upd model.ApplicationUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		respondError(w, r, err)
		return
	}
	app, err := a.svc.Applications.Update(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "applicationId"), upd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, app)
}

// UnlinkApplicationHandler removes a link.
// @Summary Remove job application
// @Tags applications
// @Produce json
// @Param id path string true "Candidate ID"
// @Param applicationId path string true "Application ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /api/candidates/{id}/applications/{applicationId} [delete]
func (a *API) UnlinkApplicationHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Applications.Unlink(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "applicationId")); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, "Job application removed")
}

// JobCandidatesHandler lists the candidates linked to a job. Without a
// limit every match is returned.
// @Summary Candidates for a job
// @Tags applications
// @Produce json
// @Param jobId path string true "Job ID"
// @Param sortBy query string false "appliedDate or name"
// @Param sortOrder query string false "asc or desc"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size"
// @Success 200 {object} Response{data=service.JobCandidateList}
// @Failure 400 {object} Response
// @Router /api/jobs/{jobId}/candidates [get]
func (a *API) JobCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	opts := service.JobCandidateOptions{
		SortBy: r.URL.Query().Get("sortBy"),
		Order:  r.URL.Query().Get("sortOrder"),
	}
	if r.URL.Query().Has("limit") || r.URL.Query().Has("page") {
		opts.Page, opts.Limit = a.pageParams(r)
	}
	list, err := a.svc.Applications.GetJobCandidates(r.Context(), chi.URLParam(r, "jobId"), opts)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, list)
}

// ApplicationStatsHandler aggregates links, optionally within an applied
// date range.
// @Summary Job application statistics
// @Tags applications
// @Produce json
// @Param from query string false "Inclusive lower bound (YYYY-MM-DD or RFC 3339)"
// @Param to query string false "Inclusive upper bound (YYYY-MM-DD or RFC 3339)"
// @Success 200 {object} Response{data=service.ApplicationStats}
// @Failure 400 {object} Response
// @Router /api/applications/stats [get]
func (a *API) ApplicationStatsHandler(w http.ResponseWriter, r *http.Request) {
	var (
		filter service.ApplicationStatsFilter
		fields []apperr.FieldError
	)
	for _, bound := range []struct {
		key      string
		endOfDay bool
		dst      **time.Time
	}{
		{"from", false, &filter.From},
		{"to", true, &filter.To},
	} {
		raw := strings.TrimSpace(r.URL.Query().Get(bound.key))
		if raw == "" {
			continue
		}
		t, ok := service.ParseDate(raw, bound.endOfDay)
		if !ok {
			fields = append(fields, apperr.FieldError{
				Field:   bound.key,
				Code:    strings.ToUpper(bound.key) + "_INVALID_VALUE",
				Message: bound.key + " must be a date (YYYY-MM-DD) or an RFC 3339 timestamp",
			})
			continue
		}
		*bound.dst = &t
	}
	if len(fields) > 0 {
		respondError(w, r, apperr.Validation(fields))
		return
	}

	stats, err := a.svc.Applications.GetApplicationStats(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, stats)
}

// ConvertApplicantHandler reuses the active candidate with the same email,
// or creates one, and links it to the job.
// @Summary Convert applicant to candidate
// @Tags applications
// @Accept json
// @Produce json
// @Param X-User-ID header string false "Acting user"
// @Param request body ConvertRequest true "Applicant and job"
// @Success 201 {object} Response{data=service.Conversion}
// @Success 200 {object} Response{data=service.Conversion}
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Router /api/applications/convert [post]
func (a *API) ConvertApplicantHandler(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondError(w, r, err)
		return
	}
	conv, err := a.svc.Applications.ConvertApplicant(r.Context(), *req.Candidate, *req.Application, userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	status := http.StatusOK
	if conv.Created {
		status = http.StatusCreated
	}
	respondData(w, status, conv)
}
