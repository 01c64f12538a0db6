// Package progress records which levels a player has completed.
//
// Two stores are provided: JSONStore keeps the set in a local file and
// PostgresStore keeps it in a PostgreSQL table. Both implement Store and
// treat MarkCompleted as idempotent.
package progress

import (
	"context"
	"sort"
	"time"
)

// Store persists completed level ids
type Store interface {
	// MarkCompleted records a won level. Marking a level twice is not an error.
	MarkCompleted(ctx context.Context, levelID int) error

	// Completed returns completed level ids in ascending order
	Completed(ctx context.Context) ([]int, error)

	// Close releases the store's resources
	Close() error
}

// Record is one completed level
type Record struct {
	LevelID     int       `json:"level_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// Open returns a PostgresStore when databaseURL is set and a JSONStore at filePath otherwise
func Open(databaseURL, filePath string) (Store, error) {
	if databaseURL != "" {
		return NewPostgresStore(databaseURL)
	}
	return NewJSONStore(filePath)
}

func sortedIDs(records map[int]Record) []int {
	ids := make([]int, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
