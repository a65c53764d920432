package model

import "time"

// PersonalInfoInput is the caller-supplied personal section. A nil field
// means "not provided", which matters for partial updates.
type PersonalInfoInput struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Location  *string `json:"location,omitempty"`
}

// ProfessionalInfoInput is the caller-supplied professional section.
type ProfessionalInfoInput struct {
	CurrentRole    *string   `json:"currentRole,omitempty"`
	Experience     *string   `json:"experience,omitempty"`
	Skills         *[]string `json:"skills,omitempty"`
	AppliedForRole *string   `json:"appliedForRole,omitempty"`
	Source         *string   `json:"source,omitempty"`
}

// CandidateInput accepts both the nested shape and the older flat shape.
// Nested values win when both are present.
type CandidateInput struct {
	PersonalInfo     *PersonalInfoInput     `json:"personalInfo,omitempty"`
	ProfessionalInfo *ProfessionalInfoInput `json:"professionalInfo,omitempty"`

	FirstName      *string   `json:"firstName,omitempty"`
	LastName       *string   `json:"lastName,omitempty"`
	Email          *string   `json:"email,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	Location       *string   `json:"location,omitempty"`
	CurrentRole    *string   `json:"currentRole,omitempty"`
	Experience     *string   `json:"experience,omitempty"`
	Skills         *[]string `json:"skills,omitempty"`
	AppliedForRole *string   `json:"appliedForRole,omitempty"`
	Source         *string   `json:"source,omitempty"`

	CurrentStage *string    `json:"currentStage,omitempty"`
	AppliedDate  *time.Time `json:"appliedDate,omitempty"`
}

// Personal resolves the personal section from either shape.
func (in CandidateInput) Personal() PersonalInfoInput {
	out := PersonalInfoInput{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Location:  in.Location,
	}
	if p := in.PersonalInfo; p != nil {
		out.FirstName = pick(p.FirstName, out.FirstName)
		out.LastName = pick(p.LastName, out.LastName)
		out.Email = pick(p.Email, out.Email)
		out.Phone = pick(p.Phone, out.Phone)
		out.Location = pick(p.Location, out.Location)
	}
	return out
}

// Professional resolves the professional section from either shape.
func (in CandidateInput) Professional() ProfessionalInfoInput {
	out := ProfessionalInfoInput{
		CurrentRole:    in.CurrentRole,
		Experience:     in.Experience,
		Skills:         in.Skills,
		AppliedForRole: in.AppliedForRole,
		Source:         in.Source,
	}
	if p := in.ProfessionalInfo; p != nil {
		out.CurrentRole = pick(p.CurrentRole, out.CurrentRole)
		out.Experience = pick(p.Experience, out.Experience)
		out.Skills = pick(p.Skills, out.Skills)
		out.AppliedForRole = pick(p.AppliedForRole, out.AppliedForRole)
		out.Source = pick(p.Source, out.Source)
	}
	return out
}

// NoteInput is the payload for a new note.
type NoteInput struct {
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

// DocumentMetadata describes an upload before it is stored.
type DocumentMetadata struct {
	OriginalName string
	MimeType     string
	Size         int64
	DocumentType string
}

// ApplicationInput is the payload for linking a candidate to a job.
type ApplicationInput struct {
	JobID       string     `json:"jobId"`
	Status      string     `json:"status,omitempty"`
	Source      string     `json:"source,omitempty"`
	AppliedDate *time.Time `json:"appliedDate,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// ApplicationUpdate carries the mutable fields of a link.
type ApplicationUpdate struct {
	Status *string `json:"status,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

func pick[T any](preferred, fallback *T) *T {
	if preferred != nil {
		return preferred
	}
	return fallback
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
