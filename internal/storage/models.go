package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"nexus-ats/internal/model"
)

var (
	// ErrNotFound means no active candidate (or embedded item) matched.
	ErrNotFound = errors.New("storage: not found")
	// ErrDuplicateKey is returned when a unique index rejects a write.
	ErrDuplicateKey = errors.New("storage: duplicate key")
	// ErrConflict means the candidate exists but a write precondition no longer holds.
	ErrConflict = errors.New("storage: precondition failed")
)

// FindOptions controls ordering and paging of Find.
type FindOptions struct {
	Sort  bson.D
	Skip  int64
	Limit int64 // 0 means no limit
}

// CandidateRepository is the persistence contract of the candidate aggregate.
// Reads and writes are scoped to active candidates unless noted. Mutators
// return the candidate as stored after the write.
type CandidateRepository interface {
	Insert(ctx context.Context, c *model.Candidate) error
	FindActive(ctx context.Context, id primitive.ObjectID) (*model.Candidate, error)
	FindActiveByEmail(ctx context.Context, email string) (*model.Candidate, error)
	ActiveEmailExists(ctx context.Context, email string, exclude *primitive.ObjectID) (bool, error)

	// SetFields applies a field-path $set. Paths not in set are left untouched.
	SetFields(ctx context.Context, id primitive.ObjectID, set map[string]any) (*model.Candidate, error)
	// AppendStage moves the candidate to entry.Stage only if it is still at from.
	// ErrConflict is returned when the stage changed in between.
	AppendStage(ctx context.Context, id primitive.ObjectID, from model.Stage, entry model.StageEntry) (*model.Candidate, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID, deletedBy string, at time.Time) (*model.Candidate, error)

	PushDocument(ctx context.Context, id primitive.ObjectID, doc model.Document, at time.Time) (*model.Candidate, error)
	SoftDeleteDocument(ctx context.Context, id, docID primitive.ObjectID, deletedBy string, at time.Time) (*model.Candidate, error)
	// SetDocumentText stores extracted text on a document regardless of the
	// candidate's state. It does not touch metadata.updatedAt.
	SetDocumentText(ctx context.Context, id, docID primitive.ObjectID, text string) error

	PushNote(ctx context.Context, id primitive.ObjectID, note model.Note) (*model.Candidate, error)

	// PushApplication appends app unless the candidate already links app.JobID
	// or already holds max links (max <= 0 disables the cap). Either refusal is
	// reported as ErrConflict.
	PushApplication(ctx context.Context, id primitive.ObjectID, app model.JobApplication, max int) (*model.Candidate, error)
	// UpdateApplication sets application-relative fields ("status", "notes")
	// on the matching link.
	UpdateApplication(ctx context.Context, id, appID primitive.ObjectID, set map[string]any, at time.Time) (*model.Candidate, error)
	PullApplication(ctx context.Context, id, appID primitive.ObjectID, at time.Time) (*model.Candidate, error)

	// Find and Count always add the active scope to filter.
	Find(ctx context.Context, filter bson.M, opts FindOptions) ([]model.Candidate, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	// Aggregate runs pipeline as given and decodes every result into out,
	// which must be a pointer to a slice.
	Aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error

	EnsureIndexes(ctx context.Context) error
	Ping(ctx context.Context) error
}

// ActiveScope returns a copy of filter restricted to active candidates.
func ActiveScope(filter bson.M) bson.M {
	out := make(bson.M, len(filter)+1)
	for k, v := range filter {
		out[k] = v
	}
	out["metadata.isActive"] = true
	return out
}
