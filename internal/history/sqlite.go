package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/cardiopredict-server/internal/domain"
)

// SQLiteStore serves the catalog from a local SQLite file.
type SQLiteStore struct {
	sqlCatalog
	dbPath string
}

// NewSQLiteStore opens (or creates) the database at dbPath, creates the schema and seeds the
// catalog when the tables are empty.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	store := &SQLiteStore{sqlCatalog: sqlCatalog{db: db}, dbPath: dbPath}
	if err := store.seed(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed catalog: %w", err)
	}

	return store, nil
}

// createSchema creates the database tables and indexes.
func createSchema(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS analysis_history (
		id INTEGER PRIMARY KEY,
		analyzed_on DATETIME NOT NULL,
		file_name TEXT NOT NULL,
		algorithm_id TEXT NOT NULL,
		algorithm_name TEXT NOT NULL,
		accuracy REAL NOT NULL,
		result TEXT NOT NULL,
		risk_level TEXT NOT NULL CHECK (risk_level IN ('low', 'medium', 'high'))
	);

	CREATE INDEX IF NOT EXISTS idx_history_analyzed_on ON analysis_history(analyzed_on);
	CREATE INDEX IF NOT EXISTS idx_history_risk_level ON analysis_history(risk_level);
	CREATE INDEX IF NOT EXISTS idx_history_algorithm_id ON analysis_history(algorithm_id);

	CREATE TABLE IF NOT EXISTS analysis_summary (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		total_analyses INTEGER NOT NULL,
		average_accuracy REAL NOT NULL,
		most_accurate_algorithm TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analysis_distribution (
		dimension TEXT NOT NULL,
		bucket TEXT NOT NULL,
		analyses INTEGER NOT NULL,
		PRIMARY KEY (dimension, bucket)
	);
	`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// List returns the entries matching filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	return s.list(ctx, filter)
}

// Get returns one entry or domain.ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*domain.HistoryEntry, error) {
	return s.get(ctx, id)
}

// Statistics returns the statistics summary.
func (s *SQLiteStore) Statistics(ctx context.Context) (*domain.Statistics, error) {
	return s.statistics(ctx)
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
