package history

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/cardiopredict-server/internal/domain"
)

// PostgresStore serves the catalog from PostgreSQL.
// It expects the schema and catalog rows to already exist (created via migrations).
type PostgresStore struct {
	sqlCatalog
}

// NewPostgresStore wraps an open connection and verifies it.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{sqlCatalog: sqlCatalog{db: db, numbered: true}}, nil
}

// List returns the entries matching filter, newest first.
func (s *PostgresStore) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	return s.list(ctx, filter)
}

// Get returns one entry or domain.ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, id int64) (*domain.HistoryEntry, error) {
	return s.get(ctx, id)
}

// Statistics returns the statistics summary.
func (s *PostgresStore) Statistics(ctx context.Context) (*domain.Statistics, error) {
	return s.statistics(ctx)
}

// Seed inserts the catalog when the tables are empty. Migrations already seed it; this covers
// databases whose schema was created by hand.
func (s *PostgresStore) Seed(ctx context.Context) error {
	return s.seed(ctx)
}

// Close closes the underlying connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
