package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestWrap_PassesTypedErrorsThrough(t *testing.T) {
	orig := NotFound(CodeCandidateNotFound, "Candidate not found")
	wrapped := fmt.Errorf("lookup: %w", orig)

	got := Wrap(wrapped, "GET_CANDIDATE_ERROR", "Failed to get candidate")

	appErr, ok := As(got)
	if !ok {
		t.Fatalf("expected *Error, got %T", got)
	}
	if appErr != orig {
		t.Errorf("expected original error to pass through, got %v", appErr)
	}
	if appErr.StatusCode != http.StatusNotFound {
		t.Errorf("status: want 404, got %d", appErr.StatusCode)
	}
}

func TestWrap_WrapsUnexpectedErrors(t *testing.T) {
	driverErr := errors.New("connection reset by peer")

	got := Wrap(driverErr, "GET_CANDIDATE_ERROR", "Failed to get candidate")

	appErr, ok := As(got)
	if !ok {
		t.Fatalf("expected *Error, got %T", got)
	}
	if appErr.Code != "GET_CANDIDATE_ERROR" {
		t.Errorf("code: want GET_CANDIDATE_ERROR, got %s", appErr.Code)
	}
	if appErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status: want 500, got %d", appErr.StatusCode)
	}
	if strings.Contains(appErr.Message, "connection reset") {
		t.Errorf("message leaks driver detail: %q", appErr.Message)
	}
	if !errors.Is(got, driverErr) {
		t.Error("cause should stay reachable through Unwrap")
	}
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(nil, "X", "y") != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestValidation_ErrorListsAllFields(t *testing.T) {
	err := Validation([]FieldError{
		{Field: "firstName", Code: "FIRST_NAME_REQUIRED", Message: "First name is required"},
		{Field: "email", Code: "EMAIL_INVALID_VALUE", Message: "Email is invalid"},
	})

	msg := err.Error()
	for _, want := range []string{"firstName", "email", CodeValidation} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q should mention %q", msg, want)
		}
	}
	if Status(err) != http.StatusBadRequest {
		t.Errorf("status: want 400, got %d", Status(err))
	}
}

func TestHasCode(t *testing.T) {
	err := Conflict(CodeDuplicateEmail, "exists")
	if !HasCode(err, CodeDuplicateEmail) {
		t.Error("HasCode should match")
	}
	if HasCode(errors.New("plain"), CodeDuplicateEmail) {
		t.Error("HasCode should not match plain errors")
	}
	if Status(errors.New("plain")) != http.StatusInternalServerError {
		t.Error("plain errors map to 500")
	}
}
