package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"nexus-ats/internal/apperr"
	"nexus-ats/internal/metrics"
	"nexus-ats/internal/model"
	"nexus-ats/internal/storage"
)

// DefaultMaxApplications caps the links per candidate when none is configured.
const DefaultMaxApplications = 50

const msgDuplicateApplication = "Candidate has already applied to this job"

// JobCandidateOptions sorts and optionally pages GetJobCandidates. A zero
// Limit returns every match; a negative one is clamped to a page of one.
type JobCandidateOptions struct {
	SortBy string // appliedDate or name
	Order  string // asc or desc
	Page   int
	Limit  int
}

// JobCandidate is a candidate projected next to its link to one job.
type JobCandidate struct {
	ID           primitive.ObjectID   `bson:"_id" json:"id"`
	PersonalInfo model.PersonalInfo   `bson:"personalInfo" json:"personalInfo"`
	CurrentRole  string               `bson:"currentRole" json:"currentRole"`
	CurrentStage model.Stage          `bson:"currentStage" json:"currentStage"`
	Application  model.JobApplication `bson:"application" json:"application"`
}

type JobCandidateList struct {
	Candidates []JobCandidate `json:"candidates"`
	Total      int64          `json:"total"`
	Pagination *PageInfo      `json:"pagination,omitempty"`
}

// ApplicationStatsFilter bounds the applied date of the links counted.
type ApplicationStatsFilter struct {
	From *time.Time
	To   *time.Time
}

type ApplicationStats struct {
	Total            int64            `json:"total"`
	UniqueCandidates int64            `json:"uniqueCandidates"`
	UniqueJobs       int64            `json:"uniqueJobs"`
	ByStatus         map[string]int64 `json:"byStatus"`
	BySource         map[string]int64 `json:"bySource"`
	Earliest         *time.Time       `json:"earliest,omitempty"`
	Latest           *time.Time       `json:"latest,omitempty"`
}

// Conversion is the outcome of turning an applicant into a linked candidate.
type Conversion struct {
	Candidate   *model.Candidate      `json:"candidate"`
	Application *model.JobApplication `json:"application"`
	Created     bool                  `json:"created"`
}

type ApplicationService struct {
	repo       storage.CandidateRepository
	candidates *CandidateService
	max        int
	log        zerolog.Logger
	now        func() time.Time
}

func NewApplicationService(repo storage.CandidateRepository, candidates *CandidateService, maxPerCandidate int, log zerolog.Logger) *ApplicationService {
	if maxPerCandidate <= 0 {
		maxPerCandidate = DefaultMaxApplications
	}
	return &ApplicationService{
		repo:       repo,
		candidates: candidates,
		max:        maxPerCandidate,
		log:        log.With().Str("component", "application_service").Logger(),
		now:        defaultClock,
	}
}

// Link attaches the candidate to a job. A candidate holds at most one link
// per job and at most the configured number of links overall.
func (s *ApplicationService) Link(ctx context.Context, candidateID string, in model.ApplicationInput) (_ *model.JobApplication, err error) {
	defer func() {
		result := metrics.ResultSuccess
		switch {
		case err == nil:
		case apperr.Status(err) < 500:
			result = metrics.ResultRejected
		default:
			result = metrics.ResultFailure
		}
		metrics.ApplicationsLinked.WithLabelValues(result).Inc()
	}()
	defer finish(ctx, s.log, &err, codeApplicationError, "Failed to link job application")

	oid, err := model.ParseObjectID("candidate ID", candidateID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := model.ValidateApplicationData(in, now); err != nil {
		return nil, err
	}
	c, err := s.repo.FindActive(ctx, oid)
	if err != nil {
		return nil, candidateNotFound(err)
	}
	jobID, _ := primitive.ObjectIDFromHex(strings.TrimSpace(in.JobID))
	if err := s.checkLinkable(c, jobID); err != nil {
		return nil, err
	}

	app := model.JobApplication{
		ID:          primitive.NewObjectID(),
		JobID:       jobID,
		AppliedDate: now,
		Status:      model.ApplicationActive,
		Source:      c.ProfessionalInfo.Source,
		Notes:       strings.TrimSpace(in.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.AppliedDate != nil {
		app.AppliedDate = in.AppliedDate.UTC()
	}
	if in.Status != "" {
		app.Status = model.ApplicationStatus(in.Status)
	}
	if in.Source != "" {
		app.Source = model.Source(in.Source)
	}

	if _, err := s.repo.PushApplication(ctx, oid, app, s.max); err != nil {
		if !errors.Is(err, storage.ErrConflict) {
			return nil, candidateNotFound(err)
		}
		// Lost a race: re-read to report which guard fired.
		current, rerr := s.repo.FindActive(ctx, oid)
		if rerr != nil {
			return nil, candidateNotFound(rerr)
		}
		if cerr := s.checkLinkable(current, jobID); cerr != nil {
			return nil, cerr
		}
		return nil, apperr.Conflict(apperr.CodeDuplicateApplication, msgDuplicateApplication)
	}

	s.log.Info().
		Str("candidate_id", candidateID).
		Str("job_id", jobID.Hex()).
		Str("application_id", app.ID.Hex()).
		Msg("job application linked")
	return &app, nil
}

func (s *ApplicationService) checkLinkable(c *model.Candidate, jobID primitive.ObjectID) error {
	if len(c.JobApplications) >= s.max {
		return apperr.Conflict(apperr.CodeApplicationLimitExceeded,
			fmt.Sprintf("Candidate has reached the maximum of %d job applications", s.max))
	}
	if c.HasApplicationForJob(jobID) {
		return apperr.Conflict(apperr.CodeDuplicateApplication, msgDuplicateApplication)
	}
	return nil
}

// Update changes the status and/or notes of one link.
func (s *ApplicationService) Update(ctx context.Context, candidateID, applicationID string, upd model.ApplicationUpdate) (_ *model.JobApplication, err error) {
	defer finish(ctx, s.log, &err, codeApplicationError, "Failed to update job application")

	if err := model.ValidateApplicationUpdate(upd); err != nil {
		return nil, err
	}
	c, appID, err := s.loadApplication(ctx, candidateID, applicationID)
	if err != nil {
		return nil, err
	}

	set := map[string]any{}
	if upd.Status != nil {
		set["status"] = model.ApplicationStatus(*upd.Status)
	}
	if upd.Notes != nil {
		set["notes"] = strings.TrimSpace(*upd.Notes)
	}
	updated, err := s.repo.UpdateApplication(ctx, c.ID, appID, set, s.now())
	if err != nil {
		return nil, applicationNotFound(err)
	}
	app, _ := updated.FindApplication(appID)
	return app, nil
}

// Unlink removes the link entirely. Links are the one embedded collection
// that is not soft-deleted.
func (s *ApplicationService) Unlink(ctx context.Context, candidateID, applicationID string) (err error) {
	defer finish(ctx, s.log, &err, codeApplicationError, "Failed to unlink job application")

	c, appID, err := s.loadApplication(ctx, candidateID, applicationID)
	if err != nil {
		return err
	}
	if _, err := s.repo.PullApplication(ctx, c.ID, appID, s.now()); err != nil {
		return applicationNotFound(err)
	}
	s.log.Info().Str("candidate_id", candidateID).Str("application_id", applicationID).Msg("job application unlinked")
	return nil
}

func (s *ApplicationService) loadApplication(ctx context.Context, candidateID, applicationID string) (*model.Candidate, primitive.ObjectID, error) {
	appID, err := model.ParseObjectID("application ID", applicationID)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	c, err := loadActive(ctx, s.repo, candidateID)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	if _, ok := c.FindApplication(appID); !ok {
		return nil, primitive.NilObjectID, apperr.NotFound(apperr.CodeApplicationNotFound, msgApplicationNotFound)
	}
	return c, appID, nil
}

func applicationNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(apperr.CodeApplicationNotFound, msgApplicationNotFound)
	}
	return err
}

// GetJobCandidates lists the active candidates linked to jobID with their
// link to that job.
func (s *ApplicationService) GetJobCandidates(ctx context.Context, jobID string, opts JobCandidateOptions) (_ *JobCandidateList, err error) {
	defer finish(ctx, s.log, &err, codeJobCandidateError, "Failed to retrieve job candidates")

	jid, err := model.ParseObjectID("job ID", jobID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"jobApplications.jobId": jid}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: storage.ActiveScope(filter)}},
		{{Key: "$project", Value: bson.M{
			"personalInfo": 1,
			"currentRole":  "$" + model.PathCurrentRole,
			"currentStage": "$pipelineInfo.currentStage",
			"application": bson.M{"$arrayElemAt": bson.A{
				bson.M{"$filter": bson.M{
					"input": "$jobApplications",
					"as":    "app",
					"cond":  bson.M{"$eq": bson.A{"$$app.jobId", jid}},
				}},
				0,
			}},
		}}},
		{{Key: "$sort", Value: jobCandidateSort(opts)}},
	}

	var page *model.Pagination
	if opts.Limit != 0 {
		p := model.ValidatePaginationParams(opts.Page, opts.Limit)
		page = &p
		pipeline = append(pipeline,
			bson.D{{Key: "$skip", Value: int64(p.Skip)}},
			bson.D{{Key: "$limit", Value: int64(p.Limit)}},
		)
	}

	out := []JobCandidate{}
	if err := s.repo.Aggregate(ctx, pipeline, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []JobCandidate{}
	}

	list := &JobCandidateList{Candidates: out, Total: int64(len(out))}
	if page != nil {
		total, err := s.repo.Count(ctx, filter)
		if err != nil {
			return nil, err
		}
		info := NewPageInfo(*page, total)
		list.Total = total
		list.Pagination = &info
	}
	return list, nil
}

func jobCandidateSort(opts JobCandidateOptions) bson.D {
	dir := -1
	if strings.EqualFold(opts.Order, "asc") {
		dir = 1
	}
	if opts.SortBy == "name" {
		if opts.Order == "" {
			dir = 1
		}
		return bson.D{{Key: model.PathFirstName, Value: dir}, {Key: model.PathLastName, Value: dir}}
	}
	return bson.D{{Key: "application.appliedDate", Value: dir}}
}

// GetApplicationStats aggregates over every link held by an active candidate.
func (s *ApplicationService) GetApplicationStats(ctx context.Context, f ApplicationStatsFilter) (_ *ApplicationStats, err error) {
	defer finish(ctx, s.log, &err, codeStatsError, "Failed to compute application statistics")

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: storage.ActiveScope(bson.M{})}},
		{{Key: "$unwind", Value: "$jobApplications"}},
	}
	dateRange := bson.M{}
	if f.From != nil {
		dateRange["$gte"] = f.From.UTC()
	}
	if f.To != nil {
		dateRange["$lte"] = f.To.UTC()
	}
	if len(dateRange) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"jobApplications.appliedDate": dateRange}}})
	}

	distribution := func(path string) bson.A {
		return bson.A{
			bson.M{"$group": bson.M{"_id": "$" + path, "count": bson.M{"$sum": 1}}},
			bson.M{"$sort": bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}},
		}
	}
	pipeline = append(pipeline, bson.D{{Key: "$facet", Value: bson.M{
		"totals": bson.A{
			bson.M{"$group": bson.M{
				"_id":        nil,
				"total":      bson.M{"$sum": 1},
				"candidates": bson.M{"$addToSet": "$_id"},
				"jobs":       bson.M{"$addToSet": "$jobApplications.jobId"},
				"earliest":   bson.M{"$min": "$jobApplications.appliedDate"},
				"latest":     bson.M{"$max": "$jobApplications.appliedDate"},
			}},
			bson.M{"$project": bson.M{
				"_id":              0,
				"total":            1,
				"uniqueCandidates": bson.M{"$size": "$candidates"},
				"uniqueJobs":       bson.M{"$size": "$jobs"},
				"earliest":         1,
				"latest":           1,
			}},
		},
		"byStatus": distribution("jobApplications.status"),
		"bySource": distribution("jobApplications.source"),
	}}})

	var rows []struct {
		Totals []struct {
			Total            int64      `bson:"total"`
			UniqueCandidates int64      `bson:"uniqueCandidates"`
			UniqueJobs       int64      `bson:"uniqueJobs"`
			Earliest         *time.Time `bson:"earliest"`
			Latest           *time.Time `bson:"latest"`
		} `bson:"totals"`
		ByStatus []Bucket `bson:"byStatus"`
		BySource []Bucket `bson:"bySource"`
	}
	if err := s.repo.Aggregate(ctx, pipeline, &rows); err != nil {
		return nil, err
	}

	stats := &ApplicationStats{ByStatus: map[string]int64{}, BySource: map[string]int64{}}
	if len(rows) == 0 {
		return stats, nil
	}
	row := rows[0]
	if len(row.Totals) > 0 {
		t := row.Totals[0]
		stats.Total = t.Total
		stats.UniqueCandidates = t.UniqueCandidates
		stats.UniqueJobs = t.UniqueJobs
		stats.Earliest = t.Earliest
		stats.Latest = t.Latest
	}
	for _, b := range row.ByStatus {
		stats.ByStatus[b.Value] = b.Count
	}
	for _, b := range row.BySource {
		stats.BySource[b.Value] = b.Count
	}
	return stats, nil
}

// ConvertApplicant links an applicant to a job, reusing the active candidate
// with the same email or creating one.
func (s *ApplicationService) ConvertApplicant(ctx context.Context, in model.CandidateInput, link model.ApplicationInput, userID string) (_ *Conversion, err error) {
	defer finish(ctx, s.log, &err, codeApplicationError, "Failed to convert applicant")

	if err := model.ValidateApplicationData(link, s.now()); err != nil {
		return nil, err
	}

	var (
		c       *model.Candidate
		created bool
	)
	if email := model.NormalizeEmail(deref(in.Personal().Email)); email != "" {
		existing, err := s.repo.FindActiveByEmail(ctx, email)
		switch {
		case err == nil:
			c = existing
		case !errors.Is(err, storage.ErrNotFound):
			return nil, err
		}
	}
	if c == nil {
		if c, err = s.candidates.Create(ctx, in, userID); err != nil {
			return nil, err
		}
		created = true
	}

	app, err := s.Link(ctx, c.ID.Hex(), link)
	if err != nil {
		return nil, err
	}
	if fresh, err := s.repo.FindActive(ctx, c.ID); err == nil {
		c = fresh
	}
	return &Conversion{Candidate: c, Application: app, Created: created}, nil
}
