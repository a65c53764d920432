package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"nexus-ats/internal/apperr"
	"nexus-ats/internal/logging"
)

// UserIDHeader carries the acting user. Identity is trusted as sent.
const UserIDHeader = "X-User-ID"

const maxJSONBody = 1 << 20

// Response is the envelope of every JSON reply.
type Response struct {
	Success bool          `json:"success"`
	Data    any           `json:"data,omitempty"`
	Message string        `json:"message,omitempty"`
	Error   *apperr.Error `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondData(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, Response{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, Response{Success: true, Message: message})
}

// respondError writes err in the error envelope. Anything that is not an
// *apperr.Error is reported as a generic server error; services already
// logged the cause.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		appErr = apperr.Internal(apperr.CodeServerError, "Internal server error", err)
	}
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, Response{Success: false, Error: appErr})
}

// decodeJSON reads a JSON body into v. Malformed input becomes a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.New("REQUEST_TOO_LARGE", "Request body is too large", http.StatusRequestEntityTooLarge)
		}
		return apperr.BadRequest("INVALID_JSON", "Request body could not be read")
	}
	if len(body) == 0 {
		return apperr.BadRequest("INVALID_JSON", "Request body is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperr.BadRequest("INVALID_JSON", fmt.Sprintf("Invalid JSON body: %v", err))
	}
	return nil
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserIDHeader))
}

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// listParam reads a repeated or comma-separated query parameter.
func listParam(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
