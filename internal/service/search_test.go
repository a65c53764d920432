package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"nexus-ats/internal/model"
	"nexus-ats/internal/storage/memstore"
)

func TestSearchService_Search(t *testing.T) {
	repo := memstore.New()
	svc := NewSearchService(repo, zerolog.Nop())
	id := primitive.NewObjectID()

	var pipelines []mongo.Pipeline
	repo.AggregateFunc = aggregateReplies(t, &pipelines,
		[]bson.M{{
			"_id":          id,
			"personalInfo": bson.M{"firstName": "Jane", "lastName": "Doe"},
			"score":        1.5,
		}},
		[]bson.M{{"total": 41}},
	)

	req := SearchRequest{
		Query:   "  golang  ",
		Filters: SearchFilters{Stage: "Interview", Skills: []string{"Go"}},
		Page:    3,
		Limit:   20,
	}
	res, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].ID != id || res.Candidates[0].Score != 1.5 {
		t.Fatalf("hits = %+v", res.Candidates)
	}
	if res.Candidates[0].PersonalInfo.FirstName != "Jane" {
		t.Errorf("inline candidate not decoded: %+v", res.Candidates[0].PersonalInfo)
	}
	p := res.Pagination
	if p.Total != 41 || p.Pages != 3 || p.HasNext || !p.HasPrev {
		t.Errorf("pagination = %+v", p)
	}
	if res.Query != "golang" || res.Filters.Stage != "Interview" {
		t.Errorf("echo = %q %+v", res.Query, res.Filters)
	}

	if len(pipelines) != 2 {
		t.Fatalf("aggregations = %d", len(pipelines))
	}
	match, _ := stage(pipelines[0], "$match")
	m := match.(bson.M)
	if text, ok := m["$text"].(bson.M); !ok || text["$search"] != "golang" {
		t.Errorf("$text = %v", m["$text"])
	}
	if m["pipelineInfo.currentStage"] != "Interview" || m["metadata.isActive"] != true {
		t.Errorf("match = %v", m)
	}
	sortStage, _ := stage(pipelines[0], "$sort")
	if s := sortStage.(bson.D); s[0].Key != "score" {
		t.Errorf("sort = %v", s)
	}
	if skip, _ := stage(pipelines[0], "$skip"); skip != int64(40) {
		t.Errorf("skip = %v", skip)
	}
	if project, ok := stage(pipelines[0], "$project"); !ok || project.(bson.M)["documents.extractedText"] != 0 {
		t.Errorf("extracted text must be projected out: %v", project)
	}
	if count, ok := stage(pipelines[1], "$count"); !ok || count != "total" {
		t.Errorf("count pipeline = %v", pipelines[1])
	}
	if countMatch, _ := stage(pipelines[1], "$match"); countMatch.(bson.M)["$text"] == nil {
		t.Error("count must use the same match")
	}
}

func TestSearchService_SearchWithoutQuery(t *testing.T) {
	repo := memstore.New()
	svc := NewSearchService(repo, zerolog.Nop())

	var pipelines []mongo.Pipeline
	repo.AggregateFunc = aggregateReplies(t, &pipelines, []bson.M{}, []bson.M{})

	res, err := svc.Search(context.Background(), SearchRequest{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Candidates == nil || len(res.Candidates) != 0 || res.Pagination.Total != 0 {
		t.Errorf("result = %+v", res)
	}
	if _, ok := stage(pipelines[0], "$addFields"); ok {
		t.Error("no score without a query")
	}
	sortStage, _ := stage(pipelines[0], "$sort")
	if s := sortStage.(bson.D); len(s) != 1 || s[0].Key != "metadata.createdAt" || s[0].Value != -1 {
		t.Errorf("sort = %v", s)
	}
	if limit, _ := stage(pipelines[0], "$limit"); limit != int64(model.DefaultPageLimit) {
		t.Errorf("limit = %v", limit)
	}
}

func TestSearchService_SearchStorageFailure(t *testing.T) {
	repo := memstore.New()
	repo.Err = errors.New("cursor killed")

	_, err := NewSearchService(repo, zerolog.Nop()).Search(context.Background(), SearchRequest{Query: "go"})
	wantCode(t, err, "SEARCH_ERROR", http.StatusInternalServerError)
}

func TestSearchService_GetSuggestions(t *testing.T) {
	repo := memstore.New()
	svc := NewSearchService(repo, zerolog.Nop())
	ctx := context.Background()

	for _, tt := range []struct{ input, field string }{
		{"g", "skills"},
		{"  g ", "skills"},
		{"golang", "email"},
		{"golang", ""},
	} {
		got, err := svc.GetSuggestions(ctx, tt.input, tt.field, 5)
		if err != nil || got == nil || len(got) != 0 {
			t.Errorf("GetSuggestions(%q, %q) = %v, %v", tt.input, tt.field, got, err)
		}
	}
	if repo.LastPipeline != nil {
		t.Error("rejected input must not query the store")
	}

	var pipelines []mongo.Pipeline
	repo.AggregateFunc = aggregateReplies(t, &pipelines,
		[]bson.M{{"_id": "Go", "count": 7}, {"_id": "Golang", "count": 2}},
		[]bson.M{{"_id": "Berlin", "count": 3}},
	)

	got, err := svc.GetSuggestions(ctx, "go", "skills", 0)
	if err != nil {
		t.Fatalf("GetSuggestions: %v", err)
	}
	if len(got) != 2 || got[0].Value != "Go" || got[0].Count != 7 {
		t.Errorf("suggestions = %+v", got)
	}
	if unwind, ok := stage(pipelines[0], "$unwind"); !ok || unwind != "$"+model.PathSkills {
		t.Errorf("skills must be unwound: %v", pipelines[0])
	}
	if limit, _ := stage(pipelines[0], "$limit"); limit != int64(defaultSuggestionLimit) {
		t.Errorf("limit = %v", limit)
	}
	sortStage, _ := stage(pipelines[0], "$sort")
	if s := sortStage.(bson.D); s[0].Key != "count" || s[0].Value != -1 || s[1].Key != "_id" {
		t.Errorf("sort = %v", s)
	}

	if _, err := svc.GetSuggestions(ctx, "Ber", "location", 500); err != nil {
		t.Fatalf("GetSuggestions: %v", err)
	}
	if _, ok := stage(pipelines[1], "$unwind"); ok {
		t.Error("location must not be unwound")
	}
	if limit, _ := stage(pipelines[1], "$limit"); limit != int64(maxSuggestionLimit) {
		t.Errorf("limit = %v", limit)
	}
	match, _ := stage(pipelines[1], "$match")
	if re, ok := match.(bson.M)[model.PathLocation].(primitive.Regex); !ok || re.Pattern != "Ber" || re.Options != "i" {
		t.Errorf("match = %v", match)
	}
}

func TestSearchService_GetStats(t *testing.T) {
	repo := memstore.New()
	svc := NewSearchService(repo, zerolog.Nop())

	var pipelines []mongo.Pipeline
	repo.AggregateFunc = aggregateReplies(t, &pipelines,
		[]bson.M{{
			"total":     bson.A{bson.M{"count": 12}},
			"byStage":   bson.A{bson.M{"_id": "Applied", "count": 8}, bson.M{"_id": "Hired", "count": 4}},
			"bySource":  bson.A{bson.M{"_id": "Referral", "count": 12}},
			"topSkills": bson.A{bson.M{"_id": "Go", "count": 9}},
		}},
		[]bson.M{},
	)

	stats, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Total != 12 || stats.ByStage["Applied"] != 8 || stats.ByStage["Hired"] != 4 || stats.BySource["Referral"] != 12 {
		t.Errorf("stats = %+v", stats)
	}
	if len(stats.TopSkills) != 1 || stats.TopSkills[0].Value != "Go" {
		t.Errorf("top skills = %+v", stats.TopSkills)
	}
	facet, ok := stage(pipelines[0], "$facet")
	if !ok || len(facet.(bson.M)) != 4 {
		t.Errorf("facet = %v", facet)
	}

	empty, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if empty.Total != 0 || empty.ByStage == nil || empty.TopSkills == nil {
		t.Errorf("empty stats = %+v", empty)
	}
}
