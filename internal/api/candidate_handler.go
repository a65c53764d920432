package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"nexus-ats/internal/export"
	"nexus-ats/internal/logging"
	"nexus-ats/internal/model"
	"nexus-ats/internal/service"
)

// filtersFromQuery reads the structured list filters from the query string.
func filtersFromQuery(r *http.Request) service.SearchFilters {
	q := r.URL.Query()
	return service.SearchFilters{
		Stage:           q.Get("stage"),
		Skills:          listParam(r, "skills"),
		Location:        q.Get("location"),
		Experience:      q.Get("experience"),
		Source:          q.Get("source"),
		AppliedDateFrom: q.Get("appliedDateFrom"),
		AppliedDateTo:   q.Get("appliedDateTo"),
	}
}

func sortFromQuery(r *http.Request) service.SortOptions {
	q := r.URL.Query()
	return service.SortOptions{Field: q.Get("sortBy"), Order: q.Get("sortOrder")}
}

// CreateCandidateHandler creates a candidate.
// @Summary Create candidate
// @Description Accepts the nested personalInfo/professionalInfo shape or the flat legacy shape
// @Tags candidates
// @Accept json
// @Produce json
// @Param X-User-ID header string false "Acting user"
// @Param candidate body model.CandidateInput true "Candidate"
// @Success 201 {object} Response{data=model.Candidate}
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Router /api/candidates [post]
func (a *API) CreateCandidateHandler(w http.ResponseWriter, r *http.Request) {
	var in model.CandidateInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	c, err := a.svc.Candidates.Create(r.Context(), in, userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, c)
}

// ListCandidatesHandler lists active candidates.
// @Summary List candidates
// @Tags candidates
// @Produce json
// @Param stage query string false "Pipeline stage"
// @Param skills query string false "Comma-separated skills"
// @Param location query string false "Location substring"
// @Param experience query string false "Experience substring"
// @Param source query string false "Candidate source"
// @Param appliedDateFrom query string false "Inclusive lower bound (YYYY-MM-DD or RFC 3339)"
// @Param appliedDateTo query string false "Inclusive upper bound (YYYY-MM-DD or RFC 3339)"
// @Param sortBy query string false "createdAt, updatedAt, appliedDate, name or stage"
// @Param sortOrder query string false "asc or desc"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size"
// @Success 200 {object} Response{data=service.CandidateList}
// @Router /api/candidates [get]
func (a *API) ListCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	page, limit := a.pageParams(r)
	list, err := a.svc.Candidates.List(r.Context(), filtersFromQuery(r), sortFromQuery(r), page, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, list)
}

// SearchCandidatesHandler matches q as a substring of name, email, role,
// location or skills, combined with the list filters.
// @Summary Quick search candidates
// @Tags candidates
// @Produce json
// @Param q query string false "Search text"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size"
// @Success 200 {object} Response{data=service.CandidateList}
// @Router /api/candidates/search [get]
func (a *API) SearchCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	page, limit := a.pageParams(r)
	list, err := a.svc.Candidates.Search(r.Context(), r.URL.Query().Get("q"), filtersFromQuery(r), sortFromQuery(r), page, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, list)
}

// ExportCandidatesHandler streams the filtered candidates as an .xlsx workbook.
// @Summary Export candidates
// @Tags candidates
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param stage query string false "Pipeline stage"
// @Param source query string false "Candidate source"
// @Success 200 {file} file
// @Failure 500 {object} Response
// @Router /api/candidates/export [get]
func (a *API) ExportCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	candidates, err := a.svc.Candidates.Export(r.Context(), filtersFromQuery(r), sortFromQuery(r))
	if err != nil {
		respondError(w, r, err)
		return
	}

	now := time.Now()
	var buf bytes.Buffer
	if err := export.WriteCandidates(&buf, candidates, now); err != nil {
		respondError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().Int("rows", len(candidates)).Msg("candidates exported")
	filename := fmt.Sprintf("candidates_%s.xlsx", now.UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// GetCandidateHandler returns one active candidate.
// @Summary Get candidate
// @Tags candidates
// @Produce json
// @Param id path string true "Candidate ID"
// @Success 200 {object} Response{data=model.Candidate}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /api/candidates/{id} [get]
func (a *API) GetCandidateHandler(w http.ResponseWriter, r *http.Request) {
	c, err := a.svc.Candidates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, c)
}

// UpdateCandidateHandler applies a partial update. Absent fields are left
// untouched.
// @Summary Update candidate
// @Tags candidates
// @Accept json
// @Produce json
// @Param id path string true "Candidate ID"
// @Param candidate body model.CandidateInput true "Fields to change"
// @Success 200 {object} Response{data=model.Candidate}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Router /api/candidates/{id} [patch]
func (a *API) UpdateCandidateHandler(w http.ResponseWriter, r *http.Request) {
	var in model.CandidateInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	c, err := a.svc.Candidates.Update(r.Context(), chi.URLParam(r, "id"), in, userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, c)
}

// DeleteCandidateHandler soft-deletes a candidate.
// @Summary Delete candidate
// @Tags candidates
// @Produce json
// @Param id path string true "Candidate ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /api/candidates/{id} [delete]
func (a *API) DeleteCandidateHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Candidates.Delete(r.Context(), chi.URLParam(r, "id"), userID(r)); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, "Candidate deleted")
}

// AddNoteHandler appends a note.
// @Summary Add note
// @Tags notes
// @Accept json
// @Produce json
// @Param id path string true "Candidate ID"
// @Param note body model.NoteInput true "Note"
// @Success 201 {object} Response{data=model.Note}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /api/candidates/{id}/notes [post]
func (a *API) AddNoteHandler(w http.ResponseWriter, r *http.Request) {
	var in model.NoteInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	note, err := a.svc.Candidates.AddNote(r.Context(), chi.URLParam(r, "id"), in, userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, note)
}

// ListNotesHandler returns the notes of a candidate, newest first.
// @Summary List notes
// @Tags notes
// @Produce json
// @Param id path string true "Candidate ID"
// @Success 200 {object} Response{data=[]model.Note}
// @Failure 404 {object} Response
// @Router /api/candidates/{id}/notes [get]
func (a *API) ListNotesHandler(w http.ResponseWriter, r *http.Request) {
	notes, err := a.svc.Candidates.ListNotes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, notes)
}
