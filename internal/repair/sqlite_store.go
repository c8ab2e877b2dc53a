package repair

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const dbFileName = "repair.db"

const selectColumns = `id, full_name, email, phone_model, issue_description, voice_recording_url, photo_url, urgency, status, created_at`

// SQLiteStore 使用本地 SQLite 数据库保存维修请求
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite 在数据目录下打开 (或创建) 数据库文件
func OpenSQLite(dataDir string) (*sql.DB, error) {
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("无法获取数据目录 '%s' 的绝对路径: %w", dataDir, err)
	}
	//nolint:gosec // G301
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据目录 '%s' 失败: %w", absDataDir, err)
	}

	dbPath := filepath.Join(absDataDir, dbFileName) + "?_foreign_keys=on&_journal_mode=WAL"
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库 '%s' 失败: %w", dbPath, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// NewSQLiteStore 创建存储并初始化 schema
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("初始化数据库 schema 失败: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS repair_requests (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone_model TEXT NOT NULL,
		issue_description TEXT,
		voice_recording_url TEXT,
		photo_url TEXT,
		urgency TEXT NOT NULL DEFAULT 'medium',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_repair_requests_created_at ON repair_requests(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return err
	}
	// status 列是后加的，旧库需要补上
	return s.addColumnIfNotExists("status", "TEXT NOT NULL DEFAULT 'pending'")
}

func (s *SQLiteStore) addColumnIfNotExists(colName, colType string) error {
	// SQLite 的 ADD COLUMN 不支持 IF NOT EXISTS，忽略重复列错误即可
	query := fmt.Sprintf("ALTER TABLE repair_requests ADD COLUMN %s %s", colName, colType)
	if _, err := s.db.Exec(query); err != nil {
		if strings.Contains(err.Error(), "duplicate column name") {
			return nil
		}
		return err
	}
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, r *RepairRequest) (*RepairRequest, error) {
	rec := prepare(r, uuid.NewString(), s.now())

	query := `INSERT INTO repair_requests (id, full_name, email, phone_model, issue_description, voice_recording_url, photo_url, urgency, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.FullName, rec.Email, rec.PhoneModel,
		rec.IssueDescription, rec.VoiceRecordingURL, rec.PhotoURL,
		rec.Urgency, string(rec.Status), rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*RepairRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM repair_requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repair request: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]RepairRequest, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM repair_requests ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list repair requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*RepairRequest, error) {
	var r RepairRequest
	var status string
	if err := row.Scan(&r.ID, &r.FullName, &r.Email, &r.PhoneModel,
		&r.IssueDescription, &r.VoiceRecordingURL, &r.PhotoURL,
		&r.Urgency, &status, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Status = Status(status)
	return &r, nil
}

func scanRequests(rows *sql.Rows) ([]RepairRequest, error) {
	out := make([]RepairRequest, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
