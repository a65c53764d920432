package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateCandidateDocument builds a fresh aggregate from validated input.
// Every string is normalized, the stage defaults to Applied and the history
// is seeded with that stage.
func CreateCandidateDocument(in CandidateInput, createdBy string, now time.Time) *Candidate {
	p := in.Personal()
	pr := in.Professional()

	stage := StageApplied
	if in.CurrentStage != nil && IsValidStage(*in.CurrentStage) {
		stage = Stage(*in.CurrentStage)
	}
	appliedDate := now
	if in.AppliedDate != nil && !in.AppliedDate.IsZero() {
		appliedDate = in.AppliedDate.UTC()
	}
	source := SourceOther
	if pr.Source != nil && IsValidSource(SanitizeString(*pr.Source)) {
		source = Source(SanitizeString(*pr.Source))
	}
	skills := []string{}
	if pr.Skills != nil {
		skills = NormalizeSkills(*pr.Skills)
	}

	return &Candidate{
		ID: primitive.NewObjectID(),
		PersonalInfo: PersonalInfo{
			FirstName: SanitizeString(deref(p.FirstName)),
			LastName:  SanitizeString(deref(p.LastName)),
			Email:     NormalizeEmail(deref(p.Email)),
			Phone:     NormalizePhoneNumber(deref(p.Phone)),
			Location:  SanitizeString(deref(p.Location)),
		},
		ProfessionalInfo: ProfessionalInfo{
			CurrentRole:    SanitizeString(deref(pr.CurrentRole)),
			Experience:     SanitizeString(deref(pr.Experience)),
			Skills:         skills,
			AppliedForRole: SanitizeString(deref(pr.AppliedForRole)),
			Source:         source,
		},
		PipelineInfo: PipelineInfo{
			CurrentStage: stage,
			StageHistory: []StageEntry{{Stage: stage, Timestamp: now, UpdatedBy: createdBy}},
			AppliedDate:  appliedDate,
		},
		Documents:       []Document{},
		JobApplications: []JobApplication{},
		Notes:           []Note{},
		Metadata: Metadata{
			CreatedAt: now,
			UpdatedAt: now,
			IsActive:  true,
			CreatedBy: createdBy,
		},
	}
}

// Field paths written by partial updates.
const (
	PathFirstName      = "personalInfo.firstName"
	PathLastName       = "personalInfo.lastName"
	PathEmail          = "personalInfo.email"
	PathPhone          = "personalInfo.phone"
	PathLocation       = "personalInfo.location"
	PathCurrentRole    = "professionalInfo.currentRole"
	PathExperience     = "professionalInfo.experience"
	PathSkills         = "professionalInfo.skills"
	PathAppliedForRole = "professionalInfo.appliedForRole"
	PathSource         = "professionalInfo.source"
	PathAppliedDate    = "pipelineInfo.appliedDate"
	PathUpdatedAt      = "metadata.updatedAt"
	PathUpdatedBy      = "metadata.updatedBy"
)

// UpdateFieldPaths maps the provided fields of in to normalized values keyed
// by field path. Fields the caller did not send are absent from the result,
// so applying it is a field-level merge. Stage is never part of it: stage
// changes go through the pipeline.
func UpdateFieldPaths(in CandidateInput) map[string]any {
	p := in.Personal()
	pr := in.Professional()
	set := make(map[string]any)

	setString(set, PathFirstName, p.FirstName, SanitizeString)
	setString(set, PathLastName, p.LastName, SanitizeString)
	setString(set, PathEmail, p.Email, NormalizeEmail)
	setString(set, PathPhone, p.Phone, NormalizePhoneNumber)
	setString(set, PathLocation, p.Location, SanitizeString)
	setString(set, PathCurrentRole, pr.CurrentRole, SanitizeString)
	setString(set, PathExperience, pr.Experience, SanitizeString)
	setString(set, PathAppliedForRole, pr.AppliedForRole, SanitizeString)
	if pr.Skills != nil {
		set[PathSkills] = NormalizeSkills(*pr.Skills)
	}
	if pr.Source != nil && IsValidSource(SanitizeString(*pr.Source)) {
		set[PathSource] = Source(SanitizeString(*pr.Source))
	}
	if in.AppliedDate != nil && !in.AppliedDate.IsZero() {
		set[PathAppliedDate] = in.AppliedDate.UTC()
	}
	return set
}

func setString(set map[string]any, path string, v *string, normalize func(string) string) {
	if v != nil {
		set[path] = normalize(*v)
	}
}
