// Package service implements the candidate pipeline use cases on top of a
// storage.CandidateRepository and a blob.Store.
//
// Every exported method returns either plain data or an *apperr.Error.
// Storage and driver failures are logged here with full detail and surfaced
// with a generic message and a stable code.
package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"nexus-ats/internal/apperr"
	"nexus-ats/internal/logging"
	"nexus-ats/internal/model"
	"nexus-ats/internal/storage"
)

// Infrastructure error codes. Domain codes live in apperr.
const (
	codeCreateError       = "CANDIDATE_CREATE_ERROR"
	codeFetchError        = "CANDIDATE_FETCH_ERROR"
	codeUpdateError       = "CANDIDATE_UPDATE_ERROR"
	codeDeleteError       = "CANDIDATE_DELETE_ERROR"
	codeListError         = "CANDIDATE_LIST_ERROR"
	codeNoteError         = "NOTE_ERROR"
	codeStageError        = "STAGE_UPDATE_ERROR"
	codeDocumentError     = "DOCUMENT_ERROR"
	codeSearchError       = "SEARCH_ERROR"
	codeSuggestionError   = "SUGGESTION_ERROR"
	codeStatsError        = "STATS_ERROR"
	codeApplicationError  = "APPLICATION_ERROR"
	codeJobCandidateError = "JOB_CANDIDATES_ERROR"
)

const (
	msgCandidateNotFound   = "Candidate not found"
	msgDocumentNotFound    = "Document not found"
	msgApplicationNotFound = "Job application not found"
)

func defaultClock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// finish converts *errp into the apperr family. Failures that end up as 5xx
// are logged with the underlying cause.
func finish(ctx context.Context, log zerolog.Logger, errp *error, code, msg string) {
	if *errp == nil {
		return
	}
	wrapped := apperr.Wrap(*errp, code, msg)
	if apperr.Status(wrapped) >= 500 {
		l := logging.From(ctx, log)
		l.Error().Err(*errp).Str("code", code).Msg(msg)
	}
	*errp = wrapped
}

// candidateNotFound maps storage.ErrNotFound to CANDIDATE_NOT_FOUND.
func candidateNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(apperr.CodeCandidateNotFound, msgCandidateNotFound)
	}
	return err
}

func loadActive(ctx context.Context, repo storage.CandidateRepository, id string) (*model.Candidate, error) {
	oid, err := model.ParseObjectID("candidate ID", id)
	if err != nil {
		return nil, err
	}
	c, err := repo.FindActive(ctx, oid)
	if err != nil {
		return nil, candidateNotFound(err)
	}
	return c, nil
}

// PageInfo describes one page of a result set.
type PageInfo struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	HasNext bool  `json:"hasNext"`
	HasPrev bool  `json:"hasPrev"`
}

func NewPageInfo(p model.Pagination, total int64) PageInfo {
	pages := 0
	if p.Limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	return PageInfo{
		Page:    p.Page,
		Limit:   p.Limit,
		Total:   total,
		Pages:   pages,
		HasNext: int64(p.Page*p.Limit) < total,
		HasPrev: p.Page > 1,
	}
}
