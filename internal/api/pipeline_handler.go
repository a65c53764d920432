package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"nexus-ats/internal/model"
	"nexus-ats/internal/validation"
)

// StageRequest is the body of a stage change.
type StageRequest struct {
	Stage string `json:"stage" validate:"required"`
}

// NextStagesResponse lists the stages reachable from Stage.
type NextStagesResponse struct {
	Stage      string        `json:"stage"`
	NextStages []model.Stage `json:"nextStages"`
}

// UpdateStageHandler moves a candidate along the pipeline.
// @Summary Update pipeline stage
// @Description Only transitions allowed by the pipeline graph are accepted
// @Tags pipeline
// @Accept json
// @Produce json
// @Param id path string true "Candidate ID"
// @Param X-User-ID header string false "Acting user"
// @Param stage body StageRequest true "Target stage"
// @Success 200 {object} Response{data=model.Candidate}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Router /api/candidates/{id}/stage [put]
func (a *API) UpdateStageHandler(w http.ResponseWriter, r *http.Request) {
	var req StageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondError(w, r, err)
		return
	}
	c, err := a.svc.Pipeline.UpdateStage(r.Context(), chi.URLParam(r, "id"), req.Stage, userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, c)
}

// StageHistoryHandler returns the stage history, oldest first.
// @Summary Stage history
// @Tags pipeline
// @Produce json
// @Param id path string true "Candidate ID"
// @Success 200 {object} Response{data=[]model.StageEntry}
// @Failure 404 {object} Response
// @Router /api/candidates/{id}/stage/history [get]
func (a *API) StageHistoryHandler(w http.ResponseWriter, r *http.Request) {
	history, err := a.svc.Pipeline.GetStageHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if history == nil {
		history = []model.StageEntry{}
	}
	respondData(w, http.StatusOK, history)
}

// NextStagesHandler lists the stages reachable from a stage. An unknown
// stage has none.
// @Summary Valid next stages
// @Tags pipeline
// @Produce json
// @Param stage path string true "Current stage"
// @Success 200 {object} Response{data=NextStagesResponse}
// @Router /api/pipeline/stages/{stage}/next [get]
func (a *API) NextStagesHandler(w http.ResponseWriter, r *http.Request) {
	stage := chi.URLParam(r, "stage")
	next := a.svc.Pipeline.GetValidNextStages(stage)
	if next == nil {
		next = []model.Stage{}
	}
	respondData(w, http.StatusOK, NextStagesResponse{Stage: stage, NextStages: next})
}
