package repair

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// RepairRequest 对应 repair_requests 表中的一行
type RepairRequest struct {
	ID                string    `json:"id"`
	FullName          string    `json:"full_name"`
	Email             string    `json:"email"`
	PhoneModel        string    `json:"phone_model"`
	IssueDescription  *string   `json:"issue_description"`
	VoiceRecordingURL *string   `json:"voice_recording_url"`
	PhotoURL          *string   `json:"photo_url"`
	Urgency           string    `json:"urgency"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

var (
	ErrNotFound = errors.New("repair request not found")
	// ErrPersist wraps every store write failure.
	ErrPersist = errors.New("failed to persist repair request")
)

// Store persists repair requests. Insert assigns ID and CreatedAt.
type Store interface {
	Insert(ctx context.Context, r *RepairRequest) (*RepairRequest, error)
	Get(ctx context.Context, id string) (*RepairRequest, error)
	List(ctx context.Context, limit int) ([]RepairRequest, error)
}

// StringPtr returns nil for empty strings.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// prepare fills in the store-assigned fields on a copy of r.
func prepare(r *RepairRequest, id string, now time.Time) *RepairRequest {
	out := *r
	out.ID = id
	out.CreatedAt = now.UTC()
	if out.Status == "" {
		out.Status = StatusPending
	}
	return &out
}
