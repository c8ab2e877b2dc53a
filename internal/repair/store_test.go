package repair

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemorySQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s, err := NewSQLiteStore(db)
	require.NoError(t, err)
	return s
}

func TestSQLiteStoreInsertAssignsIDAndDefaults(t *testing.T) {
	s := newMemorySQLite(t)
	ctx := context.Background()

	in := &RepairRequest{
		FullName:         "Jane Doe",
		Email:            "jane@example.com",
		PhoneModel:       "iphone-14",
		IssueDescription: StringPtr("Screen cracked"),
		Urgency:          "high",
	}
	rec, err := s.Insert(ctx, in)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, StatusPending, rec.Status)
	assert.Empty(t, in.ID, "input must not be mutated")

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.FullName)
	assert.Equal(t, "high", got.Urgency)
	assert.Equal(t, StatusPending, got.Status)
	require.NotNil(t, got.IssueDescription)
	assert.Equal(t, "Screen cracked", *got.IssueDescription)
	assert.Nil(t, got.VoiceRecordingURL)
	assert.Nil(t, got.PhotoURL)
}

func TestSQLiteStoreListNewestFirst(t *testing.T) {
	s := newMemorySQLite(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return at }
		_, err := s.Insert(ctx, &RepairRequest{FullName: name, Email: "a@b.co", PhoneModel: "other", Urgency: "low"})
		require.NoError(t, err)
	}

	list, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "third", list[0].FullName)
	assert.Equal(t, "second", list[1].FullName)
}

func TestSQLiteStoreGetMissing(t *testing.T) {
	s := newMemorySQLite(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteSchemaIsIdempotent(t *testing.T) {
	s := newMemorySQLite(t)
	assert.NoError(t, s.initSchema())
}

func TestPostgresStoreInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO repair_requests")).
		WithArgs(sqlmock.AnyArg(), "Jane Doe", "jane@example.com", "iphone-14", "Screen cracked", nil, nil, "high", "pending", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec, err := store.Insert(context.Background(), &RepairRequest{
		FullName:         "Jane Doe",
		Email:            "jane@example.com",
		PhoneModel:       "iphone-14",
		IssueDescription: StringPtr("Screen cracked"),
		Urgency:          "high",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, StatusPending, rec.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreInsertFailureWrapsErrPersist(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO repair_requests")).
		WillReturnError(errors.New("connection refused"))

	_, err = NewPostgresStore(db).Insert(context.Background(), &RepairRequest{FullName: "x"})
	assert.ErrorIs(t, err, ErrPersist)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPostgresStoreGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	id := "6f1c2a1e-8a53-4c8b-9d0e-3a1f4f2b7c11"
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "phone_model", "issue_description", "voice_recording_url", "photo_url", "urgency", "status", "created_at"}).
		AddRow(id, "Jane Doe", "jane@example.com", "iphone-14", nil, "https://cdn/v.webm", nil, "medium", "pending", created)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + selectColumns + " FROM repair_requests WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(rows)

	got, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Nil(t, got.IssueDescription)
	require.NotNil(t, got.VoiceRecordingURL)
	assert.Equal(t, "https://cdn/v.webm", *got.VoiceRecordingURL)
	assert.Equal(t, created, got.CreatedAt)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + selectColumns)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = store.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "phone_model", "issue_description", "voice_recording_url", "photo_url", "urgency", "status", "created_at"}).
		AddRow("b", "B", "b@x.io", "other", "desc", nil, nil, "low", "pending", time.Now()).
		AddRow("a", "A", "a@x.io", "other", "desc", nil, nil, "low", "completed", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT $1")).
		WithArgs(50).
		WillReturnRows(rows)

	list, err := NewPostgresStore(db).List(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, StatusCompleted, list[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS repair_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, NewPostgresStore(db).Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
