package progress

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresStore keeps progress in PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects and makes sure the schema exists
func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (ps *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS completed_levels (
		level_id INTEGER PRIMARY KEY,
		completed_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);`

	_, err := ps.db.Exec(schema)
	return err
}

// MarkCompleted records a won level
func (ps *PostgresStore) MarkCompleted(ctx context.Context, levelID int) error {
	query := `
	INSERT INTO completed_levels (level_id)
	VALUES ($1)
	ON CONFLICT (level_id) DO NOTHING`

	if _, err := ps.db.ExecContext(ctx, query, levelID); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// Completed returns completed level ids in ascending order
func (ps *PostgresStore) Completed(ctx context.Context) ([]int, error) {
	rows, err := ps.db.QueryContext(ctx, `SELECT level_id FROM completed_levels ORDER BY level_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Reset removes all progress
func (ps *PostgresStore) Reset(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `DELETE FROM completed_levels`)
	return err
}

// Close closes the database connection
func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
