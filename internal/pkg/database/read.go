package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/anicoll/xsense-integration/internal/pkg/model"
)

// History returns the transitions of one entity since the given time, newest first.
func (db *Database) History(ctx context.Context, uniqueID string, since time.Time) ([]model.StateRecord, error) {
	const query = `
	SELECT id, unique_id, key, is_on, recorded_at
	FROM entity_state
	WHERE unique_id = $1 AND recorded_at >= $2
	ORDER BY recorded_at DESC, id DESC;
	`

	rows, err := db.pool.Query(ctx, query, uniqueID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStates(rows)
}

// LatestStates returns the most recent transition of every entity.
func (db *Database) LatestStates(ctx context.Context) ([]model.StateRecord, error) {
	const query = `
	SELECT DISTINCT ON (unique_id) id, unique_id, key, is_on, recorded_at
	FROM entity_state
	ORDER BY unique_id, recorded_at DESC, id DESC;
	`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStates(rows)
}

func scanStates(rows pgx.Rows) ([]model.StateRecord, error) {
	records := []model.StateRecord{}
	for rows.Next() {
		var r model.StateRecord
		if err := rows.Scan(&r.ID, &r.UniqueID, &r.Key, &r.On, &r.RecordedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
