package database

import (
	"context"
	"time"
)

// Cleanup removes state history recorded before now minus retention and returns the
// number of rows removed.
func (db *Database) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := db.pool.Exec(ctx, "DELETE FROM entity_state WHERE recorded_at < $1", time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
