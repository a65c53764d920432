package model

import (
	"strings"
	"testing"

	"nexus-ats/internal/apperr"
)

// TestValidateStageTransition_Graph checks every (from, to) pair against the adjacency table.
func TestValidateStageTransition_Graph(t *testing.T) {
	allowed := map[Stage]map[Stage]bool{
		StageApplied:   {StageScreening: true},
		StageScreening: {StageInterview: true, StageApplied: true},
		StageInterview: {StageOffer: true, StageScreening: true},
		StageOffer:     {StageHired: true, StageInterview: true},
		StageHired:     {},
	}

	for _, from := range PipelineStages {
		for _, to := range PipelineStages {
			err := ValidateStageTransition(string(from), string(to))
			want := from == to || allowed[from][to]
			if want && err != nil {
				t.Errorf("%s → %s should be allowed, got %v", from, to, err)
			}
			if !want && err == nil {
				t.Errorf("%s → %s should be rejected", from, to)
			}
		}
	}
}

func TestValidateStageTransition_MessageListsValidTargets(t *testing.T) {
	err := ValidateStageTransition("Screening", "Hired")
	appErr, ok := apperr.As(err)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %v", err)
	}
	if appErr.Code != apperr.CodeValidation {
		t.Errorf("code: want VALIDATION_ERROR, got %s", appErr.Code)
	}
	if !strings.Contains(appErr.Message, "Interview, Applied") {
		t.Errorf("message should list Interview, Applied: %q", appErr.Message)
	}

	err = ValidateStageTransition("Hired", "Offer")
	if appErr, _ := apperr.As(err); appErr == nil || !strings.Contains(appErr.Message, "none") {
		t.Errorf("terminal stage message should say none: %v", err)
	}
}

func TestValidateStageTransition_UnknownStages(t *testing.T) {
	for _, pair := range [][2]string{{"Applied", "Ghosted"}, {"", "Screening"}, {"applied", "Screening"}} {
		if err := ValidateStageTransition(pair[0], pair[1]); err == nil {
			t.Errorf("%q → %q should be rejected", pair[0], pair[1])
		}
	}
}

func TestGetValidNextStages(t *testing.T) {
	got := GetValidNextStages("Screening")
	if len(got) != 2 || got[0] != StageInterview || got[1] != StageApplied {
		t.Errorf("Screening next = %v", got)
	}
	if got := GetValidNextStages("Hired"); len(got) != 0 {
		t.Errorf("Hired next = %v, want empty", got)
	}
	for _, in := range []string{"", "Unknown", "hired"} {
		if got := GetValidNextStages(in); got == nil || len(got) != 0 {
			t.Errorf("GetValidNextStages(%q) = %v, want empty non-nil", in, got)
		}
	}

	// Mutating the result must not leak into the graph.
	next := GetValidNextStages("Applied")
	next[0] = StageHired
	if GetValidNextStages("Applied")[0] != StageScreening {
		t.Error("graph was mutated through returned slice")
	}
}
