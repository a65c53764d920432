package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"nexus-ats/internal/metrics"
	"nexus-ats/internal/model"
	"nexus-ats/internal/storage"
)

const (
	minSuggestionInput     = 2
	defaultSuggestionLimit = 10
	maxSuggestionLimit     = 50
	topSkillsLimit         = 10
)

// suggestionPaths maps a suggestion field to the candidate path it reads.
var suggestionPaths = map[string]string{
	"skills":   model.PathSkills,
	"location": model.PathLocation,
	"role":     model.PathCurrentRole,
}

// SearchRequest is a full-text query plus structured filters.
type SearchRequest struct {
	Query   string        `json:"query"`
	Filters SearchFilters `json:"filters"`
	Sort    SortOptions   `json:"sort"`
	Page    int           `json:"page"`
	Limit   int           `json:"limit"`
}

// SearchHit is a candidate with its text relevance score. Score is zero when
// no query was given.
type SearchHit struct {
	model.Candidate `bson:",inline"`
	Score           float64 `bson:"score,omitempty" json:"score,omitempty"`
}

type SearchResult struct {
	Candidates []SearchHit   `json:"candidates"`
	Pagination PageInfo      `json:"pagination"`
	Query      string        `json:"query"`
	Filters    SearchFilters `json:"filters"`
}

// Bucket is a value and how often it occurs.
type Bucket struct {
	Value string `bson:"_id" json:"value"`
	Count int64  `bson:"count" json:"count"`
}

type SearchStats struct {
	Total     int64            `json:"total"`
	ByStage   map[string]int64 `json:"byStage"`
	BySource  map[string]int64 `json:"bySource"`
	TopSkills []Bucket         `json:"topSkills"`
}

type SearchService struct {
	repo storage.CandidateRepository
	log  zerolog.Logger
}

func NewSearchService(repo storage.CandidateRepository, log zerolog.Logger) *SearchService {
	return &SearchService{
		repo: repo,
		log:  log.With().Str("component", "search_service").Logger(),
	}
}

func (s *SearchService) BuildFilters(f SearchFilters) bson.M {
	return BuildFilters(f)
}

func (s *SearchService) BuildSortStage(opts SortOptions, query string) bson.D {
	return BuildSortStage(opts, query)
}

// Search runs a full-text query combined with filters. The total is computed
// by a second aggregation over the same match.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (_ *SearchResult, err error) {
	defer finish(ctx, s.log, &err, codeSearchError, "Failed to search candidates")
	defer observe("search", time.Now())

	query := strings.TrimSpace(req.Query)
	match := BuildFilters(req.Filters)
	if query != "" {
		match["$text"] = bson.M{"$search": query}
	}
	match = storage.ActiveScope(match)
	p := model.ValidatePaginationParams(req.Page, req.Limit)

	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}
	if query != "" {
		pipeline = append(pipeline, bson.D{{Key: "$addFields", Value: bson.M{"score": bson.M{"$meta": "textScore"}}}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$sort", Value: BuildSortStage(req.Sort, query)}},
		bson.D{{Key: "$skip", Value: int64(p.Skip)}},
		bson.D{{Key: "$limit", Value: int64(p.Limit)}},
		bson.D{{Key: "$project", Value: bson.M{"documents.extractedText": 0}}},
	)

	hits := []SearchHit{}
	if err := s.repo.Aggregate(ctx, pipeline, &hits); err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []SearchHit{}
	}

	var counted []struct {
		Total int64 `bson:"total"`
	}
	countPipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$count", Value: "total"}},
	}
	if err := s.repo.Aggregate(ctx, countPipeline, &counted); err != nil {
		return nil, err
	}
	var total int64
	if len(counted) > 0 {
		total = counted[0].Total
	}

	return &SearchResult{
		Candidates: hits,
		Pagination: NewPageInfo(p, total),
		Query:      query,
		Filters:    req.Filters,
	}, nil
}

// GetSuggestions returns the most frequent values of field containing input.
// An unknown field or an input shorter than two characters yields no
// suggestions.
func (s *SearchService) GetSuggestions(ctx context.Context, input, field string, limit int) (_ []Bucket, err error) {
	defer finish(ctx, s.log, &err, codeSuggestionError, "Failed to get search suggestions")
	defer observe("suggestions", time.Now())

	path, ok := suggestionPaths[field]
	input = strings.TrimSpace(input)
	if !ok || utf8.RuneCountInString(input) < minSuggestionInput {
		return []Bucket{}, nil
	}
	switch {
	case limit <= 0:
		limit = defaultSuggestionLimit
	case limit > maxSuggestionLimit:
		limit = maxSuggestionLimit
	}

	re := containsRegex(input)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: storage.ActiveScope(bson.M{path: re})}},
	}
	if field == "skills" {
		pipeline = append(pipeline,
			bson.D{{Key: "$unwind", Value: "$" + path}},
			bson.D{{Key: "$match", Value: bson.M{path: re}}},
		)
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$group", Value: bson.M{"_id": "$" + path, "count": bson.M{"$sum": 1}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$limit", Value: int64(limit)}},
	)

	out := []Bucket{}
	if err := s.repo.Aggregate(ctx, pipeline, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Bucket{}
	}
	return out, nil
}

// GetStats summarizes active candidates in one $facet pass.
func (s *SearchService) GetStats(ctx context.Context) (_ *SearchStats, err error) {
	defer finish(ctx, s.log, &err, codeStatsError, "Failed to compute search statistics")
	defer observe("stats", time.Now())

	grouped := func(path string) bson.A {
		return bson.A{
			bson.M{"$group": bson.M{"_id": "$" + path, "count": bson.M{"$sum": 1}}},
			bson.M{"$sort": bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}},
		}
	}
	topSkills := append(bson.A{bson.M{"$unwind": "$" + model.PathSkills}}, grouped(model.PathSkills)...)
	topSkills = append(topSkills, bson.M{"$limit": topSkillsLimit})

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: storage.ActiveScope(bson.M{})}},
		{{Key: "$facet", Value: bson.M{
			"total":     bson.A{bson.M{"$count": "count"}},
			"byStage":   grouped("pipelineInfo.currentStage"),
			"bySource":  grouped(model.PathSource),
			"topSkills": topSkills,
		}}},
	}

	var rows []struct {
		Total []struct {
			Count int64 `bson:"count"`
		} `bson:"total"`
		ByStage   []Bucket `bson:"byStage"`
		BySource  []Bucket `bson:"bySource"`
		TopSkills []Bucket `bson:"topSkills"`
	}
	if err := s.repo.Aggregate(ctx, pipeline, &rows); err != nil {
		return nil, err
	}

	stats := &SearchStats{
		ByStage:   map[string]int64{},
		BySource:  map[string]int64{},
		TopSkills: []Bucket{},
	}
	if len(rows) == 0 {
		return stats, nil
	}
	row := rows[0]
	if len(row.Total) > 0 {
		stats.Total = row.Total[0].Count
	}
	for _, b := range row.ByStage {
		stats.ByStage[b.Value] = b.Count
	}
	for _, b := range row.BySource {
		stats.BySource[b.Value] = b.Count
	}
	if row.TopSkills != nil {
		stats.TopSkills = row.TopSkills
	}
	return stats, nil
}

func observe(kind string, start time.Time) {
	metrics.SearchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
