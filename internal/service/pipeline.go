package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"nexus-ats/internal/apperr"
	"nexus-ats/internal/metrics"
	"nexus-ats/internal/model"
	"nexus-ats/internal/storage"
)

type PipelineService struct {
	repo storage.CandidateRepository
	log  zerolog.Logger
	now  func() time.Time
}

func NewPipelineService(repo storage.CandidateRepository, log zerolog.Logger) *PipelineService {
	return &PipelineService{
		repo: repo,
		log:  log.With().Str("component", "pipeline_service").Logger(),
		now:  defaultClock,
	}
}

// UpdateStage moves the candidate to newStage if the pipeline graph allows
// it from the current stage, and records the change in the history. The
// write only lands if the stage is still the one that was validated.
func (s *PipelineService) UpdateStage(ctx context.Context, id, newStage, userID string) (_ *model.Candidate, err error) {
	defer finish(ctx, s.log, &err, codeStageError, "Failed to update candidate stage")

	c, err := loadActive(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	from := c.PipelineInfo.CurrentStage
	if err := model.ValidateStageTransition(string(from), newStage); err != nil {
		return nil, err
	}

	entry := model.StageEntry{Stage: model.Stage(newStage), Timestamp: s.now(), UpdatedBy: userID}
	updated, err := s.repo.AppendStage(ctx, c.ID, from, entry)
	switch {
	case errors.Is(err, storage.ErrConflict):
		return nil, apperr.Conflict(apperr.CodeStageConflict, "Candidate stage was changed concurrently, reload and retry")
	case err != nil:
		return nil, candidateNotFound(err)
	}

	metrics.StageTransitions.WithLabelValues(string(from), newStage).Inc()
	s.log.Info().
		Str("candidate_id", id).
		Str("from", string(from)).
		Str("to", newStage).
		Str("updated_by", userID).
		Msg("candidate stage updated")
	return updated, nil
}

// GetValidNextStages lists the stages reachable from stage.
func (s *PipelineService) GetValidNextStages(stage string) []model.Stage {
	return model.GetValidNextStages(stage)
}

// GetStageHistory returns the append-only stage history, oldest first.
func (s *PipelineService) GetStageHistory(ctx context.Context, id string) (_ []model.StageEntry, err error) {
	defer finish(ctx, s.log, &err, codeStageError, "Failed to retrieve stage history")

	c, err := loadActive(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return c.PipelineInfo.StageHistory, nil
}
