package form

import (
	"sort"
	"strings"

	"repair-intake/internal/catalog"
)

// Field names used as keys in Errors.
const (
	FieldFullName         = "fullName"
	FieldEmail            = "email"
	FieldPhoneModel       = "phoneModel"
	FieldIssueDescription = "issueDescription"
)

// Data holds the values a user typed into the repair form.
type Data struct {
	FullName         string `json:"fullName"`
	Email            string `json:"email"`
	PhoneModel       string `json:"phoneModel"`
	IssueDescription string `json:"issueDescription"`
	Urgency          string `json:"urgency"`
}

// New returns an empty form with the default urgency preselected.
func New() Data {
	return Data{Urgency: catalog.DefaultUrgency}
}

// Normalize falls back to the default urgency for values outside the table.
func (d Data) Normalize() Data {
	if !catalog.IsUrgency(d.Urgency) {
		d.Urgency = catalog.DefaultUrgency
	}
	return d
}

// Errors maps a field name to the message shown next to it.
type Errors map[string]string

func (e Errors) Empty() bool { return len(e) == 0 }

func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
