package database

import (
	"context"

	"github.com/anicoll/xsense-integration/internal/pkg/model"
)

// Write records the states that differ from the latest stored state of their entity.
// Unavailable entities have no state to record.
func (db *Database) Write(ctx context.Context, states []model.EntityState) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, st := range states {
		if !st.Available {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO entity_state (unique_id, key, is_on, recorded_at)
			SELECT $1, $2, $3, $4
			WHERE NOT EXISTS (
				SELECT 1 FROM (
					SELECT is_on FROM entity_state
					WHERE unique_id = $1
					ORDER BY recorded_at DESC, id DESC
					LIMIT 1
				) latest
				WHERE latest.is_on = $3
			)
		`, st.UniqueID, st.Key, st.On, st.LastRefreshed); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (db *Database) RegisterEntity(state model.EntityState) error {
	_, err := db.pool.Exec(context.Background(), `
		INSERT INTO entity (unique_id, key, name, device_serial, station_serial, device_class)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING;`,
		state.UniqueID, state.Key, state.Name, state.Device.SerialNumber, state.Device.StationSerial, string(state.DeviceClass))
	if err != nil {
		return err
	}

	return nil
}
