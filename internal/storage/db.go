package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"nexus-ats/internal/model"
)

// Options configures the MongoDB connection.
type Options struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// DB is the MongoDB-backed CandidateRepository.
type DB struct {
	client     *mongo.Client
	candidates *mongo.Collection
	log        zerolog.Logger
}

var _ CandidateRepository = (*DB)(nil)

func NewDB(ctx context.Context, opts Options, log zerolog.Logger) (*DB, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.Collection == "" {
		opts.Collection = "candidates"
	}

	// Connection pool tuning
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetMaxPoolSize(25).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(5 * time.Minute).
		SetConnectTimeout(opts.ConnectTimeout)

	connectCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &DB{
		client:     client,
		candidates: client.Database(opts.Database).Collection(opts.Collection),
		log:        log.With().Str("component", "storage").Logger(),
	}, nil
}

func (db *DB) Close(ctx context.Context) {
	if err := db.client.Disconnect(ctx); err != nil {
		db.log.Error().Err(err).Msg("error closing the mongo connection")
	}
}

// Collection exposes the underlying collection for tools and tests.
func (db *DB) Collection() *mongo.Collection {
	return db.candidates
}

func (db *DB) Ping(ctx context.Context) error {
	return db.client.Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the text index, the unique active-email index and
// the lookup indexes. It is safe to call on every start.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "personalInfo.firstName", Value: "text"},
				{Key: "personalInfo.lastName", Value: "text"},
				{Key: "personalInfo.email", Value: "text"},
				{Key: "professionalInfo.currentRole", Value: "text"},
				{Key: "professionalInfo.skills", Value: "text"},
				{Key: "professionalInfo.appliedForRole", Value: "text"},
				{Key: "professionalInfo.experience", Value: "text"},
				{Key: "personalInfo.location", Value: "text"},
				{Key: "documents.extractedText", Value: "text"},
			},
			Options: options.Index().
				SetName("candidate_text").
				SetWeights(bson.D{
					{Key: "personalInfo.firstName", Value: 10},
					{Key: "personalInfo.lastName", Value: 10},
					{Key: "professionalInfo.skills", Value: 8},
					{Key: "professionalInfo.currentRole", Value: 5},
					{Key: "professionalInfo.appliedForRole", Value: 5},
					{Key: "personalInfo.email", Value: 3},
					{Key: "documents.extractedText", Value: 1},
				}),
		},
		{
			Keys: bson.D{{Key: "personalInfo.email", Value: 1}},
			Options: options.Index().
				SetName("active_email_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"metadata.isActive": true}),
		},
		{Keys: bson.D{{Key: "pipelineInfo.currentStage", Value: 1}}},
		{Keys: bson.D{{Key: "professionalInfo.source", Value: 1}}},
		{Keys: bson.D{{Key: "metadata.createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "jobApplications.jobId", Value: 1}}},
	}

	names, err := db.candidates.Indexes().CreateMany(ctx, models)
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	db.log.Debug().Strs("indexes", names).Msg("indexes ensured")
	return nil
}

func (db *DB) Insert(ctx context.Context, c *model.Candidate) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if _, err := db.candidates.InsertOne(ctx, c); err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (db *DB) FindActive(ctx context.Context, id primitive.ObjectID) (*model.Candidate, error) {
	return db.findOne(ctx, activeByID(id))
}

func (db *DB) FindActiveByEmail(ctx context.Context, email string) (*model.Candidate, error) {
	return db.findOne(ctx, bson.M{"personalInfo.email": email, "metadata.isActive": true})
}

func (db *DB) ActiveEmailExists(ctx context.Context, email string, exclude *primitive.ObjectID) (bool, error) {
	filter := bson.M{"personalInfo.email": email, "metadata.isActive": true}
	if exclude != nil {
		filter["_id"] = bson.M{"$ne": *exclude}
	}
	n, err := db.candidates.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DB) SetFields(ctx context.Context, id primitive.ObjectID, set map[string]any) (*model.Candidate, error) {
	return db.update(ctx, activeByID(id), bson.M{"$set": set})
}

func (db *DB) AppendStage(ctx context.Context, id primitive.ObjectID, from model.Stage, entry model.StageEntry) (*model.Candidate, error) {
	filter := activeByID(id)
	filter["pipelineInfo.currentStage"] = from

	set := bson.M{
		"pipelineInfo.currentStage": entry.Stage,
		"metadata.updatedAt":        entry.Timestamp,
	}
	if entry.UpdatedBy != "" {
		set["metadata.updatedBy"] = entry.UpdatedBy
	}

	c, err := db.update(ctx, filter, bson.M{
		"$set":  set,
		"$push": bson.M{"pipelineInfo.stageHistory": entry},
	})
	if errors.Is(err, ErrNotFound) {
		return nil, db.missReason(ctx, id)
	}
	return c, err
}

func (db *DB) SoftDelete(ctx context.Context, id primitive.ObjectID, deletedBy string, at time.Time) (*model.Candidate, error) {
	return db.update(ctx, activeByID(id), bson.M{"$set": bson.M{
		"metadata.isActive":  false,
		"metadata.deletedAt": at,
		"metadata.deletedBy": deletedBy,
		"metadata.updatedAt": at,
	}})
}

func (db *DB) PushDocument(ctx context.Context, id primitive.ObjectID, doc model.Document, at time.Time) (*model.Candidate, error) {
	return db.update(ctx, activeByID(id), bson.M{
		"$push": bson.M{"documents": doc},
		"$set":  bson.M{"metadata.updatedAt": at},
	})
}

func (db *DB) SoftDeleteDocument(ctx context.Context, id, docID primitive.ObjectID, deletedBy string, at time.Time) (*model.Candidate, error) {
	filter := activeByID(id)
	filter["documents"] = bson.M{"$elemMatch": bson.M{"_id": docID, "isActive": true}}

	return db.update(ctx, filter, bson.M{"$set": bson.M{
		"documents.$.isActive":  false,
		"documents.$.deletedAt": at,
		"documents.$.deletedBy": deletedBy,
		"metadata.updatedAt":    at,
	}})
}

func (db *DB) SetDocumentText(ctx context.Context, id, docID primitive.ObjectID, text string) error {
	res, err := db.candidates.UpdateOne(ctx,
		bson.M{"_id": id, "documents._id": docID},
		bson.M{"$set": bson.M{"documents.$.extractedText": text}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) PushNote(ctx context.Context, id primitive.ObjectID, note model.Note) (*model.Candidate, error) {
	return db.update(ctx, activeByID(id), bson.M{
		"$push": bson.M{"notes": note},
		"$set":  bson.M{"metadata.updatedAt": note.CreatedAt},
	})
}

// PushApplication guards duplicates and the cap inside the update filter so
// two concurrent links cannot both pass a read-time check.
func (db *DB) PushApplication(ctx context.Context, id primitive.ObjectID, app model.JobApplication, max int) (*model.Candidate, error) {
	filter := activeByID(id)
	filter["jobApplications.jobId"] = bson.M{"$ne": app.JobID}
	if max > 0 {
		filter[fmt.Sprintf("jobApplications.%d", max-1)] = bson.M{"$exists": false}
	}

	c, err := db.update(ctx, filter, bson.M{
		"$push": bson.M{"jobApplications": app},
		"$set":  bson.M{"metadata.updatedAt": app.CreatedAt},
	})
	if errors.Is(err, ErrNotFound) {
		return nil, db.missReason(ctx, id)
	}
	return c, err
}

func (db *DB) UpdateApplication(ctx context.Context, id, appID primitive.ObjectID, set map[string]any, at time.Time) (*model.Candidate, error) {
	filter := activeByID(id)
	filter["jobApplications._id"] = appID

	fields := bson.M{
		"jobApplications.$.updatedAt": at,
		"metadata.updatedAt":          at,
	}
	for k, v := range set {
		fields["jobApplications.$."+k] = v
	}
	return db.update(ctx, filter, bson.M{"$set": fields})
}

func (db *DB) PullApplication(ctx context.Context, id, appID primitive.ObjectID, at time.Time) (*model.Candidate, error) {
	filter := activeByID(id)
	filter["jobApplications._id"] = appID

	return db.update(ctx, filter, bson.M{
		"$pull": bson.M{"jobApplications": bson.M{"_id": appID}},
		"$set":  bson.M{"metadata.updatedAt": at},
	})
}

func (db *DB) Find(ctx context.Context, filter bson.M, opts FindOptions) ([]model.Candidate, error) {
	findOpts := options.Find()
	if len(opts.Sort) > 0 {
		findOpts.SetSort(opts.Sort)
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}

	cur, err := db.candidates.Find(ctx, ActiveScope(filter), findOpts)
	if err != nil {
		return nil, err
	}
	out := []model.Candidate{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (db *DB) Count(ctx context.Context, filter bson.M) (int64, error) {
	return db.candidates.CountDocuments(ctx, ActiveScope(filter))
}

func (db *DB) Aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cur, err := db.candidates.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func (db *DB) findOne(ctx context.Context, filter bson.M) (*model.Candidate, error) {
	var c model.Candidate
	err := db.candidates.FindOne(ctx, filter).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) update(ctx context.Context, filter bson.M, update bson.M) (*model.Candidate, error) {
	var c model.Candidate
	err := db.candidates.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return &c, nil
}

// missReason tells a vanished candidate apart from a failed precondition
// after a conditional update matched nothing.
func (db *DB) missReason(ctx context.Context, id primitive.ObjectID) error {
	n, err := db.candidates.CountDocuments(ctx, activeByID(id), options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func activeByID(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "metadata.isActive": true}
}

func mapWriteErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}
