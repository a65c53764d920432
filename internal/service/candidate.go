package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nexus-ats/internal/apperr"
	"nexus-ats/internal/metrics"
	"nexus-ats/internal/model"
	"nexus-ats/internal/storage"
)

const msgDuplicateEmail = "A candidate with this email already exists"

// MaxExportRows caps how many candidates one export returns.
const MaxExportRows = 10000

// CandidateList is one page of candidates.
type CandidateList struct {
	Candidates []model.Candidate `json:"candidates"`
	Pagination PageInfo          `json:"pagination"`
}

type CandidateService struct {
	repo storage.CandidateRepository
	log  zerolog.Logger
	now  func() time.Time
}

func NewCandidateService(repo storage.CandidateRepository, log zerolog.Logger) *CandidateService {
	return &CandidateService{
		repo: repo,
		log:  log.With().Str("component", "candidate_service").Logger(),
		now:  defaultClock,
	}
}

// Create validates, rejects a taken email, normalizes and inserts a new
// candidate. The stored record is returned.
func (s *CandidateService) Create(ctx context.Context, in model.CandidateInput, userID string) (_ *model.Candidate, err error) {
	defer finish(ctx, s.log, &err, codeCreateError, "Failed to create candidate")

	if err := model.ValidateCandidateData(in, false); err != nil {
		return nil, err
	}

	if email := model.NormalizeEmail(deref(in.Personal().Email)); email != "" {
		taken, err := s.repo.ActiveEmailExists(ctx, email, nil)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict(apperr.CodeDuplicateEmail, msgDuplicateEmail)
		}
	}

	c := model.CreateCandidateDocument(in, userID, s.now())
	if err := s.repo.Insert(ctx, c); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, apperr.Conflict(apperr.CodeDuplicateEmail, msgDuplicateEmail)
		}
		return nil, err
	}
	metrics.CandidatesCreated.Inc()

	s.log.Info().Str("candidate_id", c.ID.Hex()).Str("created_by", userID).Msg("candidate created")
	return s.repo.FindActive(ctx, c.ID)
}

// Get returns an active candidate.
func (s *CandidateService) Get(ctx context.Context, id string) (_ *model.Candidate, err error) {
	defer finish(ctx, s.log, &err, codeFetchError, "Failed to retrieve candidate")
	return loadActive(ctx, s.repo, id)
}

// Update merges the provided fields into the candidate. Fields absent from
// in are left untouched. Stage changes are ignored here.
func (s *CandidateService) Update(ctx context.Context, id string, in model.CandidateInput, userID string) (_ *model.Candidate, err error) {
	defer finish(ctx, s.log, &err, codeUpdateError, "Failed to update candidate")

	existing, err := loadActive(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateCandidateData(in, true); err != nil {
		return nil, err
	}

	set := model.UpdateFieldPaths(in)
	if email, ok := set[model.PathEmail].(string); ok && email != existing.PersonalInfo.Email {
		taken, err := s.repo.ActiveEmailExists(ctx, email, &existing.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict(apperr.CodeDuplicateEmail, msgDuplicateEmail)
		}
	}
	set[model.PathUpdatedAt] = s.now()
	if userID != "" {
		set[model.PathUpdatedBy] = userID
	}

	updated, err := s.repo.SetFields(ctx, existing.ID, set)
	switch {
	case errors.Is(err, storage.ErrDuplicateKey):
		return nil, apperr.Conflict(apperr.CodeDuplicateEmail, msgDuplicateEmail)
	case err != nil:
		return nil, candidateNotFound(err)
	}
	return updated, nil
}

// Delete soft-deletes the candidate. Embedded documents, links and notes are
// kept as they are.
func (s *CandidateService) Delete(ctx context.Context, id, userID string) (err error) {
	defer finish(ctx, s.log, &err, codeDeleteError, "Failed to delete candidate")

	oid, err := model.ParseObjectID("candidate ID", id)
	if err != nil {
		return err
	}
	if _, err := s.repo.SoftDelete(ctx, oid, userID, s.now()); err != nil {
		return candidateNotFound(err)
	}
	s.log.Info().Str("candidate_id", id).Str("deleted_by", userID).Msg("candidate soft-deleted")
	return nil
}

// List returns active candidates matching filters.
func (s *CandidateService) List(ctx context.Context, filters SearchFilters, sortOpts SortOptions, page, limit int) (_ *CandidateList, err error) {
	defer finish(ctx, s.log, &err, codeListError, "Failed to list candidates")
	return s.page(ctx, BuildFilters(filters), BuildSortStage(sortOpts, ""), page, limit)
}

// Search matches query as a case-insensitive substring of name, email,
// role, location or any skill, combined with filters. An empty query lists.
func (s *CandidateService) Search(ctx context.Context, query string, filters SearchFilters, sortOpts SortOptions, page, limit int) (_ *CandidateList, err error) {
	defer finish(ctx, s.log, &err, codeListError, "Failed to search candidates")

	filter := BuildFilters(filters)
	if q := strings.TrimSpace(query); q != "" {
		re := containsRegex(q)
		filter["$or"] = bson.A{
			bson.M{model.PathFirstName: re},
			bson.M{model.PathLastName: re},
			bson.M{model.PathEmail: re},
			bson.M{model.PathCurrentRole: re},
			bson.M{model.PathAppliedForRole: re},
			bson.M{model.PathLocation: re},
			bson.M{model.PathSkills: re},
		}
	}
	return s.page(ctx, filter, BuildSortStage(sortOpts, ""), page, limit)
}

// Export returns every active candidate matching filters, up to
// MaxExportRows, in the requested order.
func (s *CandidateService) Export(ctx context.Context, filters SearchFilters, sortOpts SortOptions) (_ []model.Candidate, err error) {
	defer finish(ctx, s.log, &err, codeListError, "Failed to export candidates")

	candidates, err := s.repo.Find(ctx, BuildFilters(filters), storage.FindOptions{
		Sort:  BuildSortStage(sortOpts, ""),
		Limit: MaxExportRows,
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

func (s *CandidateService) page(ctx context.Context, filter bson.M, sortStage bson.D, page, limit int) (*CandidateList, error) {
	p := model.ValidatePaginationParams(page, limit)

	candidates, err := s.repo.Find(ctx, filter, storage.FindOptions{
		Sort:  sortStage,
		Skip:  int64(p.Skip),
		Limit: int64(p.Limit),
	})
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &CandidateList{Candidates: candidates, Pagination: NewPageInfo(p, total)}, nil
}

// AddNote appends a note to the candidate.
func (s *CandidateService) AddNote(ctx context.Context, id string, in model.NoteInput, userID string) (_ *model.Note, err error) {
	defer finish(ctx, s.log, &err, codeNoteError, "Failed to add note")

	oid, err := model.ParseObjectID("candidate ID", id)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateNoteData(in); err != nil {
		return nil, err
	}

	noteType := model.NoteGeneral
	if in.Type != "" {
		noteType = model.NoteType(in.Type)
	}
	now := s.now()
	note := model.Note{
		ID:        primitive.NewObjectID(),
		Content:   strings.TrimSpace(in.Content),
		Type:      noteType,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.repo.PushNote(ctx, oid, note); err != nil {
		return nil, candidateNotFound(err)
	}
	return &note, nil
}

// ListNotes returns the candidate's notes, newest first.
func (s *CandidateService) ListNotes(ctx context.Context, id string) (_ []model.Note, err error) {
	defer finish(ctx, s.log, &err, codeNoteError, "Failed to retrieve notes")

	c, err := loadActive(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	notes := append([]model.Note{}, c.Notes...)
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
	return notes, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
