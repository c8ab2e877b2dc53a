package form

import (
	"regexp"
	"strings"
)

// Deliberately loose: something@something.something with no whitespace.
var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Validate checks the form on a submit attempt. The result is recomputed from
// scratch on every call; a nil map means the form may be submitted.
func Validate(d Data, hasVoice bool) Errors {
	errs := Errors{}

	if strings.TrimSpace(d.FullName) == "" {
		errs[FieldFullName] = "Full name is required"
	}

	if strings.TrimSpace(d.Email) == "" {
		errs[FieldEmail] = "Email is required"
	} else if !emailPattern.MatchString(d.Email) {
		errs[FieldEmail] = "Please enter a valid email address"
	}

	if d.PhoneModel == "" {
		errs[FieldPhoneModel] = "Please select your phone model"
	}

	if strings.TrimSpace(d.IssueDescription) == "" && !hasVoice {
		errs[FieldIssueDescription] = "Please describe the issue or record a voice message"
	}

	if errs.Empty() {
		return nil
	}
	return errs
}
