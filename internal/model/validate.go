package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"nexus-ats/internal/apperr"
)

// Field limits.
const (
	MaxNameLength         = 50
	MaxEmailLength        = 100
	MaxLocationLength     = 100
	MaxRoleLength         = 100
	MaxExperienceLength   = 50
	MaxSkillLength        = 50
	MaxSkills             = 20
	MaxNoteLength         = 1000
	MaxOriginalNameLength = 255
	MaxDocumentSize       = 10 << 20
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,15}$`)
)

// fieldErrors collects every failing field instead of stopping at the first.
type fieldErrors []apperr.FieldError

func (fe *fieldErrors) add(field, code, message string) {
	*fe = append(*fe, apperr.FieldError{Field: field, Code: code, Message: message})
}

func (fe fieldErrors) err() error {
	if len(fe) == 0 {
		return nil
	}
	return apperr.Validation(fe)
}

// checkText validates an optional or required text field. prefix is the
// code prefix, e.g. FIRST_NAME.
func (fe *fieldErrors) checkText(field, prefix, label string, v *string, required, partial bool, max int) {
	if v == nil {
		if required && !partial {
			fe.add(field, prefix+"_REQUIRED", label+" is required")
		}
		return
	}
	s := SanitizeString(*v)
	if s == "" {
		if required {
			fe.add(field, prefix+"_REQUIRED", label+" is required")
		}
		return
	}
	if utf8.RuneCountInString(s) > max {
		fe.add(field, prefix+"_TOO_LONG", fmt.Sprintf("%s must be at most %d characters", label, max))
	}
}

func (fe *fieldErrors) checkPersonal(p PersonalInfoInput, partial bool) {
	fe.checkText("firstName", "FIRST_NAME", "First name", p.FirstName, true, partial, MaxNameLength)
	fe.checkText("lastName", "LAST_NAME", "Last name", p.LastName, true, partial, MaxNameLength)

	switch {
	case p.Email == nil:
		if !partial {
			fe.add("email", "EMAIL_REQUIRED", "Email is required")
		}
	case NormalizeEmail(*p.Email) == "":
		fe.add("email", "EMAIL_REQUIRED", "Email is required")
	default:
		email := NormalizeEmail(*p.Email)
		if utf8.RuneCountInString(email) > MaxEmailLength {
			fe.add("email", "EMAIL_TOO_LONG", fmt.Sprintf("Email must be at most %d characters", MaxEmailLength))
		} else if !emailPattern.MatchString(email) {
			fe.add("email", "EMAIL_INVALID_VALUE", "Email must be a valid email address")
		}
	}

	if p.Phone != nil && strings.TrimSpace(*p.Phone) != "" {
		if !phonePattern.MatchString(NormalizePhoneNumber(*p.Phone)) {
			fe.add("phone", "PHONE_INVALID_VALUE", "Phone must be a valid phone number")
		}
	}

	fe.checkText("location", "LOCATION", "Location", p.Location, false, partial, MaxLocationLength)
}

func (fe *fieldErrors) checkProfessional(p ProfessionalInfoInput, partial bool) {
	fe.checkText("currentRole", "CURRENT_ROLE", "Current role", p.CurrentRole, false, partial, MaxRoleLength)
	fe.checkText("experience", "EXPERIENCE", "Experience", p.Experience, false, partial, MaxExperienceLength)
	fe.checkText("appliedForRole", "APPLIED_FOR_ROLE", "Applied-for role", p.AppliedForRole, false, partial, MaxRoleLength)

	if p.Skills != nil {
		skills := NormalizeSkills(*p.Skills)
		if len(skills) > MaxSkills {
			fe.add("skills", "SKILLS_TOO_LONG", fmt.Sprintf("At most %d skills are allowed", MaxSkills))
		}
		for i, s := range skills {
			if utf8.RuneCountInString(s) > MaxSkillLength {
				fe.add(fmt.Sprintf("skills[%d]", i), "SKILL_TOO_LONG",
					fmt.Sprintf("Each skill must be at most %d characters", MaxSkillLength))
			}
		}
	}

	// Create defaults an empty source to Other; an update must name one.
	if p.Source != nil {
		src := SanitizeString(*p.Source)
		if (src != "" || partial) && !IsValidSource(src) {
			fe.add("source", "SOURCE_INVALID_VALUE", "Source must be one of: "+joinValues(CandidateSources))
		}
	}
}

func (fe *fieldErrors) checkStage(field, stage string) {
	switch {
	case stage == "":
		fe.add(field, "STAGE_REQUIRED", "Stage is required")
	case !IsValidStage(stage):
		fe.add(field, "STAGE_INVALID_VALUE", "Stage must be one of: "+joinValues(PipelineStages))
	}
}

// ValidatePersonalInfo checks the personal section. With partial set, absent
// fields are skipped; present ones still have to pass.
func ValidatePersonalInfo(p PersonalInfoInput, partial bool) error {
	var fe fieldErrors
	fe.checkPersonal(p, partial)
	return fe.err()
}

// ValidateProfessionalInfo checks the professional section.
func ValidateProfessionalInfo(p ProfessionalInfoInput, partial bool) error {
	var fe fieldErrors
	fe.checkProfessional(p, partial)
	return fe.err()
}

// ValidatePipelineStage checks that stage is a pipeline stage.
func ValidatePipelineStage(stage string) error {
	var fe fieldErrors
	fe.checkStage("stage", stage)
	return fe.err()
}

// ValidateCandidateData checks a whole candidate payload and reports every
// failing field at once.
func ValidateCandidateData(in CandidateInput, partial bool) error {
	var fe fieldErrors
	fe.checkPersonal(in.Personal(), partial)
	fe.checkProfessional(in.Professional(), partial)
	if in.CurrentStage != nil {
		fe.checkStage("currentStage", *in.CurrentStage)
	}
	return fe.err()
}

// ValidateDocumentMetadata checks an upload against the size limit and the
// allowed MIME types.
func ValidateDocumentMetadata(m DocumentMetadata, maxSize int64, allowed []string) error {
	var fe fieldErrors
	name := strings.TrimSpace(m.OriginalName)
	switch {
	case name == "":
		fe.add("originalName", "ORIGINAL_NAME_REQUIRED", "File name is required")
	case utf8.RuneCountInString(name) > MaxOriginalNameLength:
		fe.add("originalName", "ORIGINAL_NAME_TOO_LONG",
			fmt.Sprintf("File name must be at most %d characters", MaxOriginalNameLength))
	}

	switch {
	case m.MimeType == "":
		fe.add("mimeType", "MIME_TYPE_REQUIRED", "File type is required")
	case !contains(allowed, m.MimeType):
		fe.add("mimeType", "MIME_TYPE_INVALID_VALUE", "File type is not allowed")
	}

	switch {
	case m.Size < 1:
		fe.add("size", "SIZE_TOO_SHORT", "File must not be empty")
	case m.Size > maxSize:
		fe.add("size", "SIZE_TOO_LONG", fmt.Sprintf("File must be at most %d bytes", maxSize))
	}

	if !IsValidDocumentType(m.DocumentType) {
		fe.add("documentType", "DOCUMENT_TYPE_INVALID_VALUE", "Document type must be one of: "+joinValues(DocumentTypes))
	}
	return fe.err()
}

// ValidateNoteData checks a note payload.
func ValidateNoteData(n NoteInput) error {
	var fe fieldErrors
	content := strings.TrimSpace(n.Content)
	switch {
	case content == "":
		fe.add("content", "CONTENT_REQUIRED", "Note content is required")
	case utf8.RuneCountInString(content) > MaxNoteLength:
		fe.add("content", "CONTENT_TOO_LONG", fmt.Sprintf("Note content must be at most %d characters", MaxNoteLength))
	}
	if n.Type != "" && !IsValidNoteType(n.Type) {
		fe.add("type", "TYPE_INVALID_VALUE", "Note type must be one of: "+joinValues(NoteTypes))
	}
	return fe.err()
}

// ValidateApplicationData checks a job link payload. now bounds the applied date.
func ValidateApplicationData(in ApplicationInput, now time.Time) error {
	var fe fieldErrors
	switch {
	case strings.TrimSpace(in.JobID) == "":
		fe.add("jobId", "JOB_ID_REQUIRED", "Job id is required")
	case !primitive.IsValidObjectID(strings.TrimSpace(in.JobID)):
		fe.add("jobId", "JOB_ID_INVALID_VALUE", "Job id is not a valid id")
	}
	if in.Status != "" && !IsValidApplicationStatus(in.Status) {
		fe.add("status", "STATUS_INVALID_VALUE", "Status must be one of: "+joinValues(ApplicationStatuses))
	}
	if in.Source != "" && !IsValidSource(in.Source) {
		fe.add("source", "SOURCE_INVALID_VALUE", "Source must be one of: "+joinValues(CandidateSources))
	}
	if in.AppliedDate != nil && in.AppliedDate.After(now) {
		fe.add("appliedDate", "APPLIED_DATE_INVALID_VALUE", "Applied date cannot be in the future")
	}
	if utf8.RuneCountInString(in.Notes) > MaxNoteLength {
		fe.add("notes", "NOTES_TOO_LONG", fmt.Sprintf("Notes must be at most %d characters", MaxNoteLength))
	}
	return fe.err()
}

// ValidateApplicationUpdate checks the mutable fields of a link.
func ValidateApplicationUpdate(u ApplicationUpdate) error {
	var fe fieldErrors
	if u.Status == nil && u.Notes == nil {
		fe.add("status", "UPDATE_REQUIRED", "Nothing to update")
	}
	if u.Status != nil && !IsValidApplicationStatus(*u.Status) {
		fe.add("status", "STATUS_INVALID_VALUE", "Status must be one of: "+joinValues(ApplicationStatuses))
	}
	if u.Notes != nil && utf8.RuneCountInString(*u.Notes) > MaxNoteLength {
		fe.add("notes", "NOTES_TOO_LONG", fmt.Sprintf("Notes must be at most %d characters", MaxNoteLength))
	}
	return fe.err()
}

// ParseObjectID validates a hex id. field names the id in the error.
func ParseObjectID(field, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, apperr.BadRequest(apperr.CodeInvalidID, fmt.Sprintf("Invalid %s format", field))
	}
	return oid, nil
}
