package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"repair-intake/internal/catalog"
)

// Request is the body accepted by the confirmation endpoint.
type Request struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	RequestID  string `json:"requestId"`
	PhoneModel string `json:"phoneModel"`
	Urgency    string `json:"urgency"`
	Turnaround string `json:"turnaround,omitempty"`
}

// Missing lists the required fields that are empty, in a fixed order.
func (r Request) Missing() []string {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"email", r.Email},
		{"name", r.Name},
		{"phoneModel", r.PhoneModel},
		{"urgency", r.Urgency},
		{"requestId", r.RequestID},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Response is the success envelope returned by the confirmation endpoint.
type Response struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	RequestID string    `json:"requestId"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Method    string    `json:"method"`
	EmailID   string    `json:"emailId"`
	Timestamp time.Time `json:"timestamp"`
}

// Detail is how an urgency is presented in the email.
type Detail struct {
	Label      string
	Color      string
	Turnaround string
}

var details = map[string]Detail{
	catalog.UrgencyLow:    {Label: "Low Priority", Color: "#059669", Turnaround: "5-7 business days"},
	catalog.UrgencyMedium: {Label: "Medium Priority", Color: "#d97706", Turnaround: "2-3 business days"},
	catalog.UrgencyHigh:   {Label: "High Priority", Color: "#dc2626", Turnaround: "24-48 hours"},
}

// DetailFor resolves an urgency value; unknown values fall back to medium.
func DetailFor(urgency string) Detail {
	if d, ok := details[urgency]; ok {
		return d
	}
	return details[catalog.UrgencyMedium]
}

// Notifier triggers the confirmation email for a stored request.
type Notifier interface {
	Notify(ctx context.Context, req Request) error
}

// MissingFieldsError is returned when required fields are absent.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "Missing required fields: " + strings.Join(e.Fields, ", ")
}

// NotificationError is returned by notifiers when the confirmation could not
// be delivered. It never fails a submission.
type NotificationError struct {
	Status int
	Body   string
	Err    error
}

func (e *NotificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("confirmation email failed: %v", e.Err)
	}
	return fmt.Sprintf("confirmation email failed: status %d: %s", e.Status, e.Body)
}

func (e *NotificationError) Unwrap() error { return e.Err }
