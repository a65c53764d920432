// Package memstore is an in-memory storage.CandidateRepository for tests.
//
// It honours the same scoping, uniqueness and precondition rules as the
// Mongo repository. Find and Count do not evaluate filters: they return every
// active candidate in insertion order and record what they were asked for.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"nexus-ats/internal/model"
	"nexus-ats/internal/storage"
)

type Store struct {
	mu    sync.Mutex
	order []primitive.ObjectID
	byID  map[primitive.ObjectID]*model.Candidate

	// AggregateFunc answers Aggregate calls. When nil, Aggregate leaves out untouched.
	AggregateFunc func(pipeline mongo.Pipeline, out any) error
	// Err, when set, is returned by every call.
	Err error

	LastFilter   bson.M
	LastOptions  storage.FindOptions
	LastPipeline mongo.Pipeline
}

var _ storage.CandidateRepository = (*Store)(nil)

func New() *Store {
	return &Store{byID: make(map[primitive.ObjectID]*model.Candidate)}
}

// Raw returns a copy of the stored candidate regardless of its active flag.
func (s *Store) Raw(id primitive.ObjectID) (*model.Candidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return clone(c), true
}

func (s *Store) Insert(_ context.Context, c *model.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.Metadata.IsActive && s.emailTaken(c.PersonalInfo.Email, c.ID) {
		return storage.ErrDuplicateKey
	}
	s.byID[c.ID] = clone(c)
	s.order = append(s.order, c.ID)
	return nil
}

func (s *Store) FindActive(_ context.Context, id primitive.ObjectID) (*model.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.active(id)
	if err != nil {
		return nil, err
	}
	return clone(c), nil
}

func (s *Store) FindActiveByEmail(_ context.Context, email string) (*model.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, id := range s.order {
		c := s.byID[id]
		if c.Metadata.IsActive && c.PersonalInfo.Email == email {
			return clone(c), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) ActiveEmailExists(_ context.Context, email string, exclude *primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	var skip primitive.ObjectID
	if exclude != nil {
		skip = *exclude
	}
	return s.emailTaken(email, skip), nil
}

func (s *Store) SetFields(_ context.Context, id primitive.ObjectID, set map[string]any) (*model.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.active(id)
	if err != nil {
		return nil, err
	}
	if email, ok := set[model.PathEmail].(string); ok && s.emailTaken(email, id) {
		return nil, storage.ErrDuplicateKey
	}
	next := clone(c)
	for path, v := range set {
		if err := applyPath(next, path, v); err != nil {
			return nil, err
		}
	}
	s.byID[id] = next
	return clone(next), nil
}

func (s *Store) AppendStage(_ context.Context, id primitive.ObjectID, from model.Stage, entry model.StageEntry) (*model.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.active(id)
	if err != nil {
		return nil, err
	}
	if c.PipelineInfo.CurrentStage != from {
		return nil, storage.ErrConflict
	}
	c.PipelineInfo.CurrentStage = entry.Stage
	c.PipelineInfo.StageHistory = append(c.PipelineInfo.StageHistory, entry)
	c.Metadata.UpdatedAt = entry.Timestamp
	if entry.UpdatedBy != "" {
		c.Metadata.UpdatedBy = entry.UpdatedBy
	}
	return clone(c), nil
}

func (s *Store) SoftDelete(_ context.Context, id primitive.ObjectID, deletedBy string, at time.Time) (*model.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.active(id)
	if err != nil {
		return nil, err
	}
	c.Metadata.IsActive = false
	c.Metadata.DeletedAt = &at
	c.Metadata.DeletedBy = deletedBy
	c.Metadata.UpdatedAt = at
	return clone(c), nil
}

func (s *Store) PushDocument(_ context.Context, id primitive.ObjectID, doc model.Document, at time.Time) (*model.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.active(id)
	if err != nil {
		return nil, err
	}
	c.Documents = append(c.Documents, doc)
	c.Metadata.UpdatedAt = at
	return clone(c), nil
}

func (s *Store) SoftDeleteDocument(_ context.Context, id, docID primitive.ObjectID, deletedBy string, at time.Time) (*model.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.active(id)
	if err != nil {
		return nil, err
	}
	for i := range c.Documents {
		d := &c.Documents[i]
		if d.ID == docID && d.IsActive {
			d.IsActive = false
			d.DeletedAt = &at
			d.DeletedBy = deletedBy
			c.Metadata.UpdatedAt = at
			return clone(c), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) SetDocumentText(_ context.Context, id, docID primitive.ObjectID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	c, ok := s.byID[id]
	if !ok {
		return storage.ErrNotFound
	}
	for i := range c.Documents {
		if c.Documents[i].ID == docID {
			c.Documents[i].ExtractedText = text
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) PushNote(_ context.Context, id primitive.ObjectID, note model.Note) (*model.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.active(id)
	if err != nil {
		return nil, err
	}
	c.Notes = append(c.Notes, note)
	c.Metadata.UpdatedAt = note.CreatedAt
	return clone(c), nil
}

func (s *Store) PushApplication(_ context.Context, id primitive.ObjectID, app model.JobApplication, max int) (*model.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.active(id)
	if err != nil {
		return nil, err
	}
	if c.HasApplicationForJob(app.JobID) || (max > 0 && len(c.JobApplications) >= max) {
		return nil, storage.ErrConflict
	}
	c.JobApplications = append(c.JobApplications, app)
	c.Metadata.UpdatedAt = app.CreatedAt
	return clone(c), nil
}

func (s *Store) UpdateApplication(_ context.Context, id, appID primitive.ObjectID, set map[string]any, at time.Time) (*model.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.active(id)
	if err != nil {
		return nil, err
	}
	for i := range c.JobApplications {
		app := &c.JobApplications[i]
		if app.ID != appID {
			continue
		}
		for k, v := range set {
			switch k {
			case "status":
				app.Status = asType[model.ApplicationStatus](v)
			case "notes":
				app.Notes = fmt.Sprint(v)
			default:
				return nil, fmt.Errorf("memstore: unsupported application field %q", k)
			}
		}
		app.UpdatedAt = at
		c.Metadata.UpdatedAt = at
		return clone(c), nil
	}
	return nil, storage.ErrNotFound
}

func (s *Store) PullApplication(_ context.Context, id, appID primitive.ObjectID, at time.Time) (*model.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.active(id)
	if err != nil {
		return nil, err
	}
	for i := range c.JobApplications {
		if c.JobApplications[i].ID == appID {
			c.JobApplications = append(c.JobApplications[:i:i], c.JobApplications[i+1:]...)
			c.Metadata.UpdatedAt = at
			return clone(c), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) Find(_ context.Context, filter bson.M, opts storage.FindOptions) ([]model.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	s.LastFilter = storage.ActiveScope(filter)
	s.LastOptions = opts

	all := s.activeList()
	if opts.Skip >= int64(len(all)) {
		return []model.Candidate{}, nil
	}
	all = all[opts.Skip:]
	if opts.Limit > 0 && int64(len(all)) > opts.Limit {
		all = all[:opts.Limit]
	}
	return all, nil
}

func (s *Store) Count(_ context.Context, filter bson.M) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	s.LastFilter = storage.ActiveScope(filter)
	return int64(len(s.activeList())), nil
}

func (s *Store) Aggregate(_ context.Context, pipeline mongo.Pipeline, out any) error {
	s.mu.Lock()
	s.LastPipeline = pipeline
	fn, err := s.AggregateFunc, s.Err
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if fn == nil {
		return nil
	}
	return fn(pipeline, out)
}

func (s *Store) EnsureIndexes(context.Context) error { return s.Err }

func (s *Store) Ping(context.Context) error { return s.Err }

func (s *Store) active(id primitive.ObjectID) (*model.Candidate, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	c, ok := s.byID[id]
	if !ok || !c.Metadata.IsActive {
		return nil, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) activeList() []model.Candidate {
	out := []model.Candidate{}
	for _, id := range s.order {
		if c := s.byID[id]; c.Metadata.IsActive {
			out = append(out, *clone(c))
		}
	}
	return out
}

func (s *Store) emailTaken(email string, except primitive.ObjectID) bool {
	if email == "" {
		return false
	}
	for id, c := range s.byID {
		if id != except && c.Metadata.IsActive && c.PersonalInfo.Email == email {
			return true
		}
	}
	return false
}

func applyPath(c *model.Candidate, path string, v any) error {
	switch path {
	case model.PathFirstName:
		c.PersonalInfo.FirstName = fmt.Sprint(v)
	case model.PathLastName:
		c.PersonalInfo.LastName = fmt.Sprint(v)
	case model.PathEmail:
		c.PersonalInfo.Email = fmt.Sprint(v)
	case model.PathPhone:
		c.PersonalInfo.Phone = fmt.Sprint(v)
	case model.PathLocation:
		c.PersonalInfo.Location = fmt.Sprint(v)
	case model.PathCurrentRole:
		c.ProfessionalInfo.CurrentRole = fmt.Sprint(v)
	case model.PathExperience:
		c.ProfessionalInfo.Experience = fmt.Sprint(v)
	case model.PathSkills:
		c.ProfessionalInfo.Skills = append([]string{}, asType[[]string](v)...)
	case model.PathAppliedForRole:
		c.ProfessionalInfo.AppliedForRole = fmt.Sprint(v)
	case model.PathSource:
		c.ProfessionalInfo.Source = asType[model.Source](v)
	case model.PathAppliedDate:
		c.PipelineInfo.AppliedDate = asType[time.Time](v)
	case model.PathUpdatedAt:
		c.Metadata.UpdatedAt = asType[time.Time](v)
	case model.PathUpdatedBy:
		c.Metadata.UpdatedBy = fmt.Sprint(v)
	default:
		return fmt.Errorf("memstore: unsupported path %q", path)
	}
	return nil
}

// asType accepts either T or its underlying string form.
func asType[T any](v any) T {
	if t, ok := v.(T); ok {
		return t
	}
	var zero T
	if s, ok := v.(string); ok {
		if out, ok := any(&zero).(*model.Source); ok {
			*out = model.Source(s)
		}
		if out, ok := any(&zero).(*model.ApplicationStatus); ok {
			*out = model.ApplicationStatus(s)
		}
	}
	return zero
}

func clone(c *model.Candidate) *model.Candidate {
	out := *c
	out.ProfessionalInfo.Skills = append([]string{}, c.ProfessionalInfo.Skills...)
	out.PipelineInfo.StageHistory = append([]model.StageEntry{}, c.PipelineInfo.StageHistory...)
	out.Documents = make([]model.Document, len(c.Documents))
	for i, d := range c.Documents {
		if d.DeletedAt != nil {
			at := *d.DeletedAt
			d.DeletedAt = &at
		}
		out.Documents[i] = d
	}
	out.JobApplications = append([]model.JobApplication{}, c.JobApplications...)
	out.Notes = append([]model.Note{}, c.Notes...)
	if c.Metadata.DeletedAt != nil {
		at := *c.Metadata.DeletedAt
		out.Metadata.DeletedAt = &at
	}
	return &out
}
