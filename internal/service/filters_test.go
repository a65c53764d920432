package service

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nexus-ats/internal/model"
)

func TestBuildFilters_EachKeyIndependent(t *testing.T) {
	tests := []struct {
		name    string
		filters SearchFilters
		keys    []string
	}{
		{"empty", SearchFilters{}, nil},
		{"stage", SearchFilters{Stage: "Offer"}, []string{"pipelineInfo.currentStage"}},
		{"unknown stage", SearchFilters{Stage: "offer"}, nil},
		{"skills", SearchFilters{Skills: []string{"Go", " "}}, []string{model.PathSkills}},
		{"blank skills", SearchFilters{Skills: []string{"", "  "}}, nil},
		{"location", SearchFilters{Location: "Berlin"}, []string{model.PathLocation}},
		{"experience", SearchFilters{Experience: "5+"}, []string{model.PathExperience}},
		{"source", SearchFilters{Source: "Company Website"}, []string{model.PathSource}},
		{"unknown source", SearchFilters{Source: "Twitter"}, nil},
		{"from only", SearchFilters{AppliedDateFrom: "2026-01-01"}, []string{model.PathAppliedDate}},
		{"bad dates", SearchFilters{AppliedDateFrom: "yesterday", AppliedDateTo: "01/02/2026"}, nil},
		{
			"all",
			SearchFilters{Stage: "Applied", Skills: []string{"Go"}, Location: "x", Experience: "y", Source: "Other", AppliedDateTo: "2026-02-01"},
			[]string{"pipelineInfo.currentStage", model.PathSkills, model.PathLocation, model.PathExperience, model.PathSource, model.PathAppliedDate},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := BuildFilters(tt.filters)
			if len(q) != len(tt.keys) {
				t.Fatalf("got %d clauses %v, want %v", len(q), q, tt.keys)
			}
			for _, k := range tt.keys {
				if _, ok := q[k]; !ok {
					t.Errorf("missing clause %s in %v", k, q)
				}
			}
		})
	}
}

func TestBuildFilters_SkillsAreEscapedSubstrings(t *testing.T) {
	q := BuildFilters(SearchFilters{Skills: []string{"C++", " node.js "}})
	in := q[model.PathSkills].(bson.M)["$in"].([]any)
	if len(in) != 2 {
		t.Fatalf("$in = %v", in)
	}
	want := []string{`C\+\+`, `node\.js`}
	for i, v := range in {
		re := v.(primitive.Regex)
		if re.Pattern != want[i] || re.Options != "i" {
			t.Errorf("skill %d = %+v, want pattern %s", i, re, want[i])
		}
	}
}

func TestBuildFilters_DateRange(t *testing.T) {
	q := BuildFilters(SearchFilters{AppliedDateFrom: "2026-01-01", AppliedDateTo: "2026-01-31"})
	r := q[model.PathAppliedDate].(bson.M)

	from := r["$gte"].(time.Time)
	to := r["$lte"].(time.Time)
	if !from.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v", from)
	}
	if !to.Equal(time.Date(2026, 1, 31, 23, 59, 59, 999e6, time.UTC)) {
		t.Errorf("a bare upper bound should cover the whole day, got %v", to)
	}

	q = BuildFilters(SearchFilters{AppliedDateTo: "2026-01-31T12:00:00+02:00"})
	to = q[model.PathAppliedDate].(bson.M)["$lte"].(time.Time)
	if !to.Equal(time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp bound = %v", to)
	}
	if _, ok := q[model.PathAppliedDate].(bson.M)["$gte"]; ok {
		t.Error("absent lower bound must be omitted")
	}
}

func TestFiltersFromMap_DropsWrongTypes(t *testing.T) {
	f := FiltersFromMap(map[string]any{
		"stage":    42,
		"skills":   []any{"Go", 7, "Rust"},
		"location": "Berlin",
		"source":   true,
	})
	if f.Stage != "" || f.Source != "" || f.Location != "Berlin" {
		t.Errorf("filters = %+v", f)
	}
	if len(f.Skills) != 2 || f.Skills[1] != "Rust" {
		t.Errorf("skills = %v", f.Skills)
	}
	if q := BuildFilters(FiltersFromMap(map[string]any{"skills": "Go"})); len(q) != 0 {
		t.Errorf("scalar skills should be ignored, got %v", q)
	}
}

func TestBuildSortStage(t *testing.T) {
	tests := []struct {
		name  string
		opts  SortOptions
		query string
		want  bson.D
	}{
		{"default", SortOptions{}, "", bson.D{{Key: "metadata.createdAt", Value: -1}}},
		{"unknown field", SortOptions{Field: "salary"}, "", bson.D{{Key: "metadata.createdAt", Value: -1}}},
		{"ascending by default", SortOptions{Field: "updatedAt"}, "", bson.D{{Key: model.PathUpdatedAt, Value: 1}}},
		{"desc", SortOptions{Field: "appliedDate", Order: "desc"}, "", bson.D{{Key: model.PathAppliedDate, Value: -1}}},
		{"name", SortOptions{Field: "name", Order: "asc"}, "", bson.D{{Key: model.PathFirstName, Value: 1}, {Key: model.PathLastName, Value: 1}}},
		{"query only", SortOptions{}, "go", bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}}},
		{"query then field", SortOptions{Field: "stage", Order: "desc"}, "go", bson.D{
			{Key: "score", Value: bson.M{"$meta": "textScore"}},
			{Key: "pipelineInfo.currentStage", Value: -1},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildSortStage(tt.opts, tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i].Key != tt.want[i].Key {
					t.Errorf("key %d = %s, want %s", i, got[i].Key, tt.want[i].Key)
				}
				if _, isMeta := tt.want[i].Value.(bson.M); !isMeta && got[i].Value != tt.want[i].Value {
					t.Errorf("value %d = %v, want %v", i, got[i].Value, tt.want[i].Value)
				}
			}
		})
	}
}
