package repair

import (
	"context"
	"database/sql"
	"fmt"

	"repair-intake/internal/config"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the configured database and prepares the schema.
// The caller owns the returned *sql.DB.
func Open(ctx context.Context, cfg config.DatabaseConfig, dataDir string) (Store, *sql.DB, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		db, err := OpenSQLite(dataDir)
		if err != nil {
			return nil, nil, err
		}
		s, err := NewSQLiteStore(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, db, nil
	case DriverPostgres:
		db, err := sql.Open("postgres", cfg.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		s := NewPostgresStore(db)
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, db, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}
