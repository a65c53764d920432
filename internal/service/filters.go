package service

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nexus-ats/internal/model"
)

// SearchFilters is the structured filter accepted by list and search.
// Every field is optional and independent.
type SearchFilters struct {
	Stage           string   `json:"stage,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	Location        string   `json:"location,omitempty"`
	Experience      string   `json:"experience,omitempty"`
	Source          string   `json:"source,omitempty"`
	AppliedDateFrom string   `json:"appliedDateFrom,omitempty"`
	AppliedDateTo   string   `json:"appliedDateTo,omitempty"`
}

// SortOptions names a sort field (name, appliedDate, createdAt, updatedAt,
// stage) and an order (asc or desc).
type SortOptions struct {
	Field string `json:"field,omitempty"`
	Order string `json:"order,omitempty"`
}

var sortPaths = map[string][]string{
	"name":        {model.PathFirstName, model.PathLastName},
	"appliedDate": {model.PathAppliedDate},
	"createdAt":   {"metadata.createdAt"},
	"updatedAt":   {model.PathUpdatedAt},
	"stage":       {"pipelineInfo.currentStage"},
}

// FiltersFromMap reads filters from loosely typed input. Values of the
// wrong type are dropped so they produce no clause.
func FiltersFromMap(raw map[string]any) SearchFilters {
	str := func(key string) string {
		s, _ := raw[key].(string)
		return s
	}
	f := SearchFilters{
		Stage:           str("stage"),
		Location:        str("location"),
		Experience:      str("experience"),
		Source:          str("source"),
		AppliedDateFrom: str("appliedDateFrom"),
		AppliedDateTo:   str("appliedDateTo"),
	}
	switch v := raw["skills"].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				f.Skills = append(f.Skills, s)
			}
		}
	case []string:
		f.Skills = v
	}
	return f
}

// BuildFilters translates f into a query document. Absent or invalid values
// produce no clause; valid ones produce exactly one.
func BuildFilters(f SearchFilters) bson.M {
	q := bson.M{}

	if model.IsValidStage(f.Stage) {
		q["pipelineInfo.currentStage"] = f.Stage
	}

	var skills []any
	for _, s := range f.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, containsRegex(s))
		}
	}
	if len(skills) > 0 {
		q[model.PathSkills] = bson.M{"$in": skills}
	}

	if s := strings.TrimSpace(f.Location); s != "" {
		q[model.PathLocation] = containsRegex(s)
	}
	if s := strings.TrimSpace(f.Experience); s != "" {
		q[model.PathExperience] = containsRegex(s)
	}

	if model.IsValidSource(f.Source) {
		q[model.PathSource] = f.Source
	}

	dateRange := bson.M{}
	if from, ok := ParseDate(f.AppliedDateFrom, false); ok {
		dateRange["$gte"] = from
	}
	if to, ok := ParseDate(f.AppliedDateTo, true); ok {
		dateRange["$lte"] = to
	}
	if len(dateRange) > 0 {
		q[model.PathAppliedDate] = dateRange
	}

	return q
}

// BuildSortStage orders by text relevance when query is set, then by the
// requested field. With neither, newest created first.
func BuildSortStage(opts SortOptions, query string) bson.D {
	var sort bson.D
	if strings.TrimSpace(query) != "" {
		sort = append(sort, bson.E{Key: "score", Value: bson.M{"$meta": "textScore"}})
	}

	if paths, ok := sortPaths[opts.Field]; ok {
		dir := 1
		if strings.EqualFold(opts.Order, "desc") {
			dir = -1
		}
		for _, p := range paths {
			sort = append(sort, bson.E{Key: p, Value: dir})
		}
	}

	if len(sort) == 0 {
		sort = bson.D{{Key: "metadata.createdAt", Value: -1}}
	}
	return sort
}

// containsRegex matches s literally anywhere, ignoring case.
func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// ParseDate accepts RFC 3339 or a bare date. A bare upper bound covers the
// whole day.
func ParseDate(s string, endOfDay bool) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t, true
}
