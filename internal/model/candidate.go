// Package model holds the candidate aggregate, its enumerations and the pure
// validation and normalization rules shared by every service.
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Candidate is the central aggregate. It exclusively owns its documents,
// job application links and notes.
type Candidate struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PersonalInfo     PersonalInfo       `bson:"personalInfo" json:"personalInfo"`
	ProfessionalInfo ProfessionalInfo   `bson:"professionalInfo" json:"professionalInfo"`
	PipelineInfo     PipelineInfo       `bson:"pipelineInfo" json:"pipelineInfo"`
	Documents        []Document         `bson:"documents" json:"documents"`
	JobApplications  []JobApplication   `bson:"jobApplications" json:"jobApplications"`
	Notes            []Note             `bson:"notes" json:"notes"`
	Metadata         Metadata           `bson:"metadata" json:"metadata"`
}

type PersonalInfo struct {
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Email     string `bson:"email" json:"email"` // lower-cased and trimmed
	Phone     string `bson:"phone" json:"phone"`
	Location  string `bson:"location" json:"location"`
}

type ProfessionalInfo struct {
	CurrentRole    string   `bson:"currentRole" json:"currentRole"`
	Experience     string   `bson:"experience" json:"experience"`
	Skills         []string `bson:"skills" json:"skills"`
	AppliedForRole string   `bson:"appliedForRole" json:"appliedForRole"`
	Source         Source   `bson:"source" json:"source"`
}

type PipelineInfo struct {
	CurrentStage Stage        `bson:"currentStage" json:"currentStage"`
	StageHistory []StageEntry `bson:"stageHistory" json:"stageHistory"`
	AppliedDate  time.Time    `bson:"appliedDate" json:"appliedDate"`
}

// StageEntry is one append-only record of the candidate being set to a stage.
type StageEntry struct {
	Stage     Stage     `bson:"stage" json:"stage"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	UpdatedBy string    `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
}

// Document is an attachment embedded in the candidate. It is never removed,
// only flagged inactive.
type Document struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	Filename      string             `bson:"filename" json:"filename"`
	OriginalName  string             `bson:"originalName" json:"originalName"`
	MimeType      string             `bson:"mimeType" json:"mimeType"`
	Size          int64              `bson:"size" json:"size"`
	DocumentType  DocumentType       `bson:"documentType" json:"documentType"`
	FilePath      string             `bson:"filePath" json:"-"`
	UploadedBy    string             `bson:"uploadedBy" json:"uploadedBy"`
	UploadDate    time.Time          `bson:"uploadDate" json:"uploadDate"`
	IsActive      bool               `bson:"isActive" json:"isActive"`
	DeletedAt     *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	DeletedBy     string             `bson:"deletedBy,omitempty" json:"deletedBy,omitempty"`
	ExtractedText string             `bson:"extractedText,omitempty" json:"-"`
}

// JobApplication links the candidate to an external job by id.
type JobApplication struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	JobID       primitive.ObjectID `bson:"jobId" json:"jobId"`
	AppliedDate time.Time          `bson:"appliedDate" json:"appliedDate"`
	Status      ApplicationStatus  `bson:"status" json:"status"`
	Source      Source             `bson:"source" json:"source"`
	Notes       string             `bson:"notes" json:"notes"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type Note struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Content   string             `bson:"content" json:"content"`
	Type      NoteType           `bson:"type" json:"type"`
	CreatedBy string             `bson:"createdBy" json:"createdBy"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type Metadata struct {
	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
	IsActive  bool       `bson:"isActive" json:"isActive"`
	CreatedBy string     `bson:"createdBy" json:"createdBy"`
	UpdatedBy string     `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	DeletedAt *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	DeletedBy string     `bson:"deletedBy,omitempty" json:"deletedBy,omitempty"`
}

// FullName joins first and last name.
func (c *Candidate) FullName() string {
	if c.PersonalInfo.LastName == "" {
		return c.PersonalInfo.FirstName
	}
	return c.PersonalInfo.FirstName + " " + c.PersonalInfo.LastName
}

// ActiveDocuments returns the documents that were not soft-deleted.
func (c *Candidate) ActiveDocuments() []Document {
	out := make([]Document, 0, len(c.Documents))
	for _, d := range c.Documents {
		if d.IsActive {
			out = append(out, d)
		}
	}
	return out
}

// FindDocument returns the document with the given id, active or not.
func (c *Candidate) FindDocument(id primitive.ObjectID) (*Document, bool) {
	for i := range c.Documents {
		if c.Documents[i].ID == id {
			return &c.Documents[i], true
		}
	}
	return nil, false
}

// FindApplication returns the link with the given id.
func (c *Candidate) FindApplication(id primitive.ObjectID) (*JobApplication, bool) {
	for i := range c.JobApplications {
		if c.JobApplications[i].ID == id {
			return &c.JobApplications[i], true
		}
	}
	return nil, false
}

// HasApplicationForJob reports whether the candidate is already linked to jobID.
func (c *Candidate) HasApplicationForJob(jobID primitive.ObjectID) bool {
	for _, a := range c.JobApplications {
		if a.JobID == jobID {
			return true
		}
	}
	return false
}
