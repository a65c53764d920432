package api

import (
	"net/http"

	"nexus-ats/internal/service"
)

// searchBody is the search request as sent by clients. Filters stay loosely
// typed so a malformed key is dropped instead of failing the request.
type searchBody struct {
	Query   string              `json:"query"`
	Filters map[string]any      `json:"filters"`
	Sort    service.SortOptions `json:"sort"`
	Page    int                 `json:"page"`
	Limit   int                 `json:"limit"`
}

// SearchHandler runs a full-text search combined with filters.
// @Summary Search candidates
// @Description Full-text query over names, roles, skills and extracted document text, with structured filters
// @Tags search
// @Accept json
// @Produce json
// @Param request body service.SearchRequest true "Query, filters, sort and page"
// @Success 200 {object} Response{data=service.SearchResult}
// @Failure 400 {object} Response
// @Failure 500 {object} Response
// @Router /api/search [post]
func (a *API) SearchHandler(w http.ResponseWriter, r *http.Request) {
	var body searchBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, r, err)
		return
	}
	req := service.SearchRequest{
		Query:   body.Query,
		Filters: service.FiltersFromMap(body.Filters),
		Sort:    body.Sort,
		Page:    body.Page,
		Limit:   a.clampLimit(body.Limit),
	}
	res, err := a.svc.Search.Search(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, res)
}

// SuggestionsHandler returns frequent values for typeahead.
// @Summary Search suggestions
// @Description Unknown fields or inputs shorter than two characters yield an empty list
// @Tags search
// @Produce json
// @Param q query string true "Partial input"
// @Param field query string false "skills, location or role" default(skills)
// @Param limit query int false "Maximum suggestions" default(10)
// @Success 200 {object} Response{data=[]service.Bucket}
// @Router /api/search/suggestions [get]
func (a *API) SuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	field := r.URL.Query().Get("field")
	if field == "" {
		field = "skills"
	}
	out, err := a.svc.Search.GetSuggestions(r.Context(), r.URL.Query().Get("q"), field, getIntParam(r, "limit", 0))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, out)
}

// SearchStatsHandler summarizes active candidates.
// @Summary Search statistics
// @Tags search
// @Produce json
// @Success 200 {object} Response{data=service.SearchStats}
// @Router /api/search/stats [get]
func (a *API) SearchStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := a.svc.Search.GetStats(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, stats)
}
