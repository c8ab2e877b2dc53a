package intake

import (
	"context"
	"errors"
	"time"

	"repair-intake/internal/form"
	"repair-intake/internal/media"
	"repair-intake/internal/repair"
)

// State is the lifecycle of one form instance.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSuccess
	// StateFailed names the failed outcome for display. A Session never rests
	// in it: a failed submit goes straight back to StateIdle and the failure
	// is reported through Result.Outcome.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeInvalid Outcome = "invalid"
)

const (
	msgGeneric       = "There was an error submitting your request. Please try again."
	msgPersistFailed = "Failed to save request. Please try again."
	msgVoiceFailed   = "Failed to upload voice recording: "
	msgPhotoFailed   = "Failed to upload photo: "
)

var (
	ErrSubmitInFlight = errors.New("a submission is already in progress")
	ErrCompleted      = errors.New("request already submitted, start a new request")
)

// Summary is what the confirmation view shows after a successful submit.
type Summary struct {
	RequestID    string `json:"requestId"`
	PhoneModel   string `json:"phoneModel"`
	UrgencyLabel string `json:"urgencyLabel"`
	Turnaround   string `json:"turnaround"`
}

// Result is returned by every submit attempt.
type Result struct {
	Outcome Outcome               `json:"outcome"`
	Record  *repair.RepairRequest `json:"record,omitempty"`
	Summary *Summary              `json:"summary,omitempty"`
	Errors  form.Errors           `json:"errors,omitempty"`
	Message string                `json:"message,omitempty"`

	// Err is the underlying cause of a failure, for logging.
	Err error `json:"-"`
}

// Submission is one complete set of user input.
type Submission struct {
	Form  form.Data
	Voice *media.Blob
	Photo *media.File
}

func (s Submission) hasVoice() bool {
	return s.Voice != nil && s.Voice.Size() > 0
}

// Uploader stores a payload and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, payload media.Blob, folder, ext string) (string, error)
}

// Timeouts bound each network step. Zero means no extra bound.
type Timeouts struct {
	Upload  time.Duration
	Persist time.Duration
	Notify  time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{Upload: 60 * time.Second, Persist: 15 * time.Second, Notify: 15 * time.Second}
}
