package model

import (
	"strings"
)

// Pagination bounds.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Pagination is a validated page window.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Skip  int `json:"-"`
}

// SanitizeString trims s and collapses internal whitespace runs to one space.
func SanitizeString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeEmail is the identity key used for every uniqueness check.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhoneNumber keeps digits and '+' and applies the North American
// defaults: an 11 digit number starting with 1 gets a '+', a bare 10 digit
// number gets "+1". Anything else is returned as the digit/'+' residue.
// Input without digits yields "". The result is stable under re-application.
func NormalizePhoneNumber(phone string) string {
	var b strings.Builder
	digits := 0
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		case r == '+':
			b.WriteRune(r)
		}
	}
	if digits == 0 {
		return ""
	}

	cleaned := b.String()
	onlyDigits := digits == len(cleaned)
	switch {
	case strings.HasPrefix(cleaned, "+1"):
		return cleaned
	case onlyDigits && len(cleaned) == 11 && cleaned[0] == '1':
		return "+" + cleaned
	case onlyDigits && len(cleaned) == 10:
		return "+1" + cleaned
	default:
		return cleaned
	}
}

// NormalizeSkills sanitizes each skill and drops the empty ones.
func NormalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		if s = SanitizeString(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ValidatePaginationParams floors page to 1, clamps limit to [1,100] with a
// default of 20 when unset, and derives the skip offset.
func ValidatePaginationParams(page, limit int) Pagination {
	if page < 1 {
		page = 1
	}
	switch {
	case limit == 0:
		limit = DefaultPageLimit
	case limit < 1:
		limit = 1
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}
	return Pagination{Page: page, Limit: limit, Skip: (page - 1) * limit}
}
