package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nexus-ats/internal/apperr"
	"nexus-ats/internal/metrics"
	"nexus-ats/internal/model"
	"nexus-ats/internal/storage/memstore"
)

// Applicant is created, screened, then jumped to Hired which is refused.
func TestPipelineService_ScreeningThenInvalidHire(t *testing.T) {
	repo := memstore.New()
	ctx := context.Background()
	c, err := newCandidateService(repo).Create(ctx, candidateInput("Jane", "Doe", "JANE@Example.com"), "recruiter-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.PersonalInfo.Email != "jane@example.com" || c.PipelineInfo.CurrentStage != model.StageApplied {
		t.Fatalf("created = %+v", c)
	}

	svc := newPipelineService(repo)
	counter := metrics.StageTransitions.WithLabelValues("Applied", "Screening")
	before := testutil.ToFloat64(counter)

	screened, err := svc.UpdateStage(ctx, c.ID.Hex(), "Screening", "recruiter-1")
	if err != nil {
		t.Fatalf("UpdateStage: %v", err)
	}
	history := screened.PipelineInfo.StageHistory
	if screened.PipelineInfo.CurrentStage != model.StageScreening || len(history) != 2 {
		t.Fatalf("pipeline = %+v", screened.PipelineInfo)
	}
	if history[1].Stage != model.StageScreening || history[1].UpdatedBy != "recruiter-1" || !history[1].Timestamp.Equal(testNow) {
		t.Errorf("last entry = %+v", history[1])
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("transition counter delta = %v", got)
	}

	_, err = svc.UpdateStage(ctx, c.ID.Hex(), "Hired", "recruiter-1")
	wantCode(t, err, apperr.CodeValidation, http.StatusBadRequest)
	if !strings.Contains(err.Error(), "Interview, Applied") {
		t.Errorf("error should list valid next stages: %v", err)
	}

	got, err := svc.GetStageHistory(ctx, c.ID.Hex())
	if err != nil {
		t.Fatalf("GetStageHistory: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("rejected transition must not append history: %+v", got)
	}
}

func TestPipelineService_SameStageAppendsEntry(t *testing.T) {
	repo := memstore.New()
	c := mustCreate(t, repo, "Jane", "Doe", "jane@example.com")

	updated, err := newPipelineService(repo).UpdateStage(context.Background(), c.ID.Hex(), "Applied", "u")
	if err != nil {
		t.Fatalf("UpdateStage: %v", err)
	}
	if updated.PipelineInfo.CurrentStage != model.StageApplied || len(updated.PipelineInfo.StageHistory) != 2 {
		t.Errorf("pipeline = %+v", updated.PipelineInfo)
	}
}

func TestPipelineService_UnknownStageAndCandidate(t *testing.T) {
	repo := memstore.New()
	svc := newPipelineService(repo)
	c := mustCreate(t, repo, "Jane", "Doe", "jane@example.com")
	ctx := context.Background()

	_, err := svc.UpdateStage(ctx, c.ID.Hex(), "Onboarding", "u")
	wantCode(t, err, apperr.CodeValidation, http.StatusBadRequest)

	_, err = svc.UpdateStage(ctx, primitive.NewObjectID().Hex(), "Screening", "u")
	wantCode(t, err, apperr.CodeCandidateNotFound, http.StatusNotFound)

	_, err = svc.GetStageHistory(ctx, "xyz")
	wantCode(t, err, apperr.CodeInvalidID, http.StatusBadRequest)
}

// staleRepo serves reads from before a concurrent stage change.
type staleRepo struct {
	*memstore.Store
	stage model.Stage
}

func (r staleRepo) FindActive(ctx context.Context, id primitive.ObjectID) (*model.Candidate, error) {
	c, err := r.Store.FindActive(ctx, id)
	if err != nil {
		return nil, err
	}
	c.PipelineInfo.CurrentStage = r.stage
	return c, nil
}

func TestPipelineService_ConcurrentChangeIsConflict(t *testing.T) {
	repo := memstore.New()
	c := mustCreate(t, repo, "Jane", "Doe", "jane@example.com")
	ctx := context.Background()
	if _, err := newPipelineService(repo).UpdateStage(ctx, c.ID.Hex(), "Screening", "u"); err != nil {
		t.Fatalf("UpdateStage: %v", err)
	}

	svc := NewPipelineService(staleRepo{Store: repo, stage: model.StageApplied}, newPipelineService(repo).log)
	_, err := svc.UpdateStage(ctx, c.ID.Hex(), "Screening", "other")
	wantCode(t, err, apperr.CodeStageConflict, http.StatusConflict)

	raw, _ := repo.Raw(c.ID)
	if len(raw.PipelineInfo.StageHistory) != 2 {
		t.Errorf("conflicting write appended history: %+v", raw.PipelineInfo.StageHistory)
	}
}

func TestPipelineService_GetValidNextStages(t *testing.T) {
	svc := newPipelineService(memstore.New())
	if got := svc.GetValidNextStages("Offer"); len(got) != 2 || got[0] != model.StageHired {
		t.Errorf("Offer -> %v", got)
	}
	if got := svc.GetValidNextStages(""); got == nil || len(got) != 0 {
		t.Errorf("empty -> %#v", got)
	}
}
