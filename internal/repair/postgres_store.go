package repair

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS repair_requests (
	id UUID PRIMARY KEY,
	full_name TEXT NOT NULL,
	email TEXT NOT NULL,
	phone_model TEXT NOT NULL,
	issue_description TEXT,
	voice_recording_url TEXT,
	photo_url TEXT,
	urgency TEXT NOT NULL DEFAULT 'medium' CHECK (urgency IN ('low', 'medium', 'high')),
	status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'in_progress', 'completed')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_repair_requests_created_at ON repair_requests (created_at DESC);
`

// Migrate creates the table if needed.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to migrate repair_requests: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, r *RepairRequest) (*RepairRequest, error) {
	rec := prepare(r, uuid.NewString(), s.now())

	query := `
		INSERT INTO repair_requests (id, full_name, email, phone_model, issue_description, voice_recording_url, photo_url, urgency, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.FullName, rec.Email, rec.PhoneModel,
		rec.IssueDescription, rec.VoiceRecordingURL, rec.PhotoURL,
		rec.Urgency, string(rec.Status), rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return rec, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*RepairRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM repair_requests WHERE id = $1", id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repair request: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]RepairRequest, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+selectColumns+" FROM repair_requests ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list repair requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}
