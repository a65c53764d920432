package validation

import (
	"testing"

	"nexus-ats/internal/apperr"
)

type stageRequest struct {
	Stage   string `json:"stage" validate:"required,oneof=Applied Screening"`
	JobID   string `json:"jobId" validate:"omitempty,len=24,hexadecimal"`
	Comment string `json:"comment" validate:"max=5"`
}

func TestStruct_ReportsEveryField(t *testing.T) {
	err := Struct(stageRequest{JobID: "xyz", Comment: "too long"})
	appErr, ok := apperr.As(err)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %v", err)
	}

	codes := map[string]string{}
	for _, f := range appErr.Fields {
		codes[f.Field] = f.Code
	}
	want := map[string]string{
		"stage":   "STAGE_REQUIRED",
		"jobId":   "JOB_ID_INVALID_VALUE",
		"comment": "COMMENT_TOO_LONG",
	}
	for field, code := range want {
		if codes[field] != code {
			t.Errorf("%s: want %s, got %q (all: %v)", field, code, codes[field], codes)
		}
	}
}

func TestStruct_Valid(t *testing.T) {
	if err := Struct(stageRequest{Stage: "Screening"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
