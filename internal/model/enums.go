package model

// Stage is a candidate's position in the hiring workflow.
type Stage string

const (
	StageApplied   Stage = "Applied"
	StageScreening Stage = "Screening"
	StageInterview Stage = "Interview"
	StageOffer     Stage = "Offer"
	StageHired     Stage = "Hired"
)

// PipelineStages lists every stage in workflow order.
var PipelineStages = []Stage{StageApplied, StageScreening, StageInterview, StageOffer, StageHired}

// Source is where a candidate or application came from.
type Source string

const (
	SourceLinkedIn       Source = "LinkedIn"
	SourceIndeed         Source = "Indeed"
	SourceCompanyWebsite Source = "Company Website"
	SourceReferral       Source = "Referral"
	SourceJobBoard       Source = "Job Board"
	SourceRecruiter      Source = "Recruiter"
	SourceOther          Source = "Other"
)

// CandidateSources lists the accepted sources.
var CandidateSources = []Source{
	SourceLinkedIn, SourceIndeed, SourceCompanyWebsite, SourceReferral,
	SourceJobBoard, SourceRecruiter, SourceOther,
}

// DocumentType classifies an uploaded attachment.
type DocumentType string

const (
	DocumentResume      DocumentType = "Resume"
	DocumentCoverLetter DocumentType = "Cover Letter"
	DocumentPortfolio   DocumentType = "Portfolio"
	DocumentCertificate DocumentType = "Certificate"
	DocumentOther       DocumentType = "Other"
)

// DocumentTypes lists the accepted document types.
var DocumentTypes = []DocumentType{
	DocumentResume, DocumentCoverLetter, DocumentPortfolio, DocumentCertificate, DocumentOther,
}

// NoteType classifies a free-text annotation.
type NoteType string

const (
	NoteGeneral   NoteType = "General"
	NoteInterview NoteType = "Interview"
	NoteScreening NoteType = "Screening"
	NoteReference NoteType = "Reference"
	NoteFollowUp  NoteType = "Follow-up"
)

// NoteTypes lists the accepted note types.
var NoteTypes = []NoteType{NoteGeneral, NoteInterview, NoteScreening, NoteReference, NoteFollowUp}

// ApplicationStatus is the status of a candidate-to-job link.
type ApplicationStatus string

const (
	ApplicationActive    ApplicationStatus = "active"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationHired     ApplicationStatus = "hired"
)

// ApplicationStatuses lists the accepted link statuses.
var ApplicationStatuses = []ApplicationStatus{
	ApplicationActive, ApplicationWithdrawn, ApplicationRejected, ApplicationHired,
}

// MIME types accepted for uploaded documents.
const (
	MimePDF  = "application/pdf"
	MimeDOC  = "application/msword"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

// AllowedMimeTypes is the one allow-list for document uploads. The document
// service may be configured with a narrower list but never a wider one.
var AllowedMimeTypes = []string{MimePDF, MimeDOC, MimeDOCX, MimeText, MimeJPEG, MimePNG}

// IsValidStage reports whether s is a pipeline stage.
func IsValidStage(s string) bool {
	return contains(PipelineStages, Stage(s))
}

// IsValidSource reports whether s is an accepted source.
func IsValidSource(s string) bool {
	return contains(CandidateSources, Source(s))
}

// IsValidDocumentType reports whether s is an accepted document type.
func IsValidDocumentType(s string) bool {
	return contains(DocumentTypes, DocumentType(s))
}

// IsValidNoteType reports whether s is an accepted note type.
func IsValidNoteType(s string) bool {
	return contains(NoteTypes, NoteType(s))
}

// IsValidApplicationStatus reports whether s is an accepted link status.
func IsValidApplicationStatus(s string) bool {
	return contains(ApplicationStatuses, ApplicationStatus(s))
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func joinValues[T ~string](list []T) string {
	out := ""
	for i, v := range list {
		if i > 0 {
			out += ", "
		}
		out += string(v)
	}
	return out
}
