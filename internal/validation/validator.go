package validation

import (
	"net/mail"
	"regexp"
	"strconv"
	"strings"

	"quiz-pilot/internal/domain"
	"quiz-pilot/internal/util"
)

const (
	MinListLimit = 1
	MaxListLimit = 100
)

var validULID = regexp.MustCompile(`^[0-9A-HJKMNP-TV-Z]{26}$`)

// Validator provides request validation functionality
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateCreateRunRequest checks the fields of a run trigger.
func (v *Validator) ValidateCreateRunRequest(email, secret, pageURL string) domain.ValidationErrors {
	var errors domain.ValidationErrors

	if strings.TrimSpace(email) == "" {
		errors = append(errors, domain.NewMissingFieldError("email"))
	} else if _, err := mail.ParseAddress(email); err != nil {
		errors = append(errors, domain.NewInvalidFormatError("email", email))
	}

	if secret == "" {
		errors = append(errors, domain.NewMissingFieldError("secret"))
	}

	errors = append(errors, v.ValidateURL("url", pageURL)...)
	return errors
}

// ValidateURL requires an absolute http(s) URL.
func (v *Validator) ValidateURL(field, raw string) domain.ValidationErrors {
	if strings.TrimSpace(raw) == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError(field)}
	}
	if _, err := util.NormalizeURL(raw); err != nil {
		return domain.ValidationErrors{domain.NewInvalidFormatError(field, raw)}
	}
	return nil
}

// ValidateRunID checks the run ID path parameter.
func (v *Validator) ValidateRunID(id string) domain.ValidationErrors {
	if strings.TrimSpace(id) == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError("id")}
	}
	if !validULID.MatchString(id) {
		return domain.ValidationErrors{domain.NewInvalidFormatError("id", id)}
	}
	return nil
}

// ParseListLimit parses the limit query parameter. Empty means def.
func (v *Validator) ParseListLimit(raw string, def int) (int, domain.ValidationErrors) {
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ValidationErrors{domain.NewInvalidFormatError("limit", raw)}
	}
	if limit < MinListLimit || limit > MaxListLimit {
		return 0, domain.ValidationErrors{domain.NewOutOfRangeError("limit", limit, MinListLimit, MaxListLimit)}
	}
	return limit, nil
}
