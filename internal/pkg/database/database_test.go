package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/anicoll/xsense-integration/internal/pkg/database/migration"
	"github.com/anicoll/xsense-integration/internal/pkg/model"
)

func setupDatabase(t *testing.T) *Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("xsense"),
		postgres.WithUsername("xsense"),
		postgres.WithPassword("xsense"),
		postgres.BasicWaitStrategies(),
	)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	folder, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	version, err := migration.Migrate(dsn, folder)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	// running again on an up to date schema is fine.
	version, err = migration.Migrate(dsn, folder)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	db, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func entityState(id string, on bool, at time.Time) model.EntityState {
	return model.EntityState{
		UniqueID:      id,
		Key:           "door",
		Name:          "Door",
		On:            on,
		Available:     true,
		DeviceClass:   model.DeviceClassDoor,
		LastRefreshed: at,
		Device:        model.EntityDevice{SerialNumber: "D1", StationSerial: "S1"},
	}
}

func TestDatabase_WriteOnlyTransitions(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()
	start := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, db.RegisterEntity(entityState("d1_door", false, start)))
	require.NoError(t, db.RegisterEntity(entityState("d1_door", false, start)))

	require.NoError(t, db.Write(ctx, []model.EntityState{entityState("d1_door", false, start)}))
	require.NoError(t, db.Write(ctx, []model.EntityState{entityState("d1_door", false, start.Add(time.Minute))}))
	require.NoError(t, db.Write(ctx, []model.EntityState{entityState("d1_door", true, start.Add(2*time.Minute))}))
	require.NoError(t, db.Write(ctx, []model.EntityState{entityState("d2_door", true, start.Add(2*time.Minute))}))

	history, err := db.History(ctx, "d1_door", start)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].On)
	assert.True(t, history[0].RecordedAt.Equal(start.Add(2*time.Minute)))
	assert.False(t, history[1].On)

	latest, err := db.LatestStates(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "d1_door", latest[0].UniqueID)
	assert.True(t, latest[0].On)
	assert.Equal(t, "d2_door", latest[1].UniqueID)
}

func TestDatabase_WriteSkipsUnavailable(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()
	start := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, db.Write(ctx, []model.EntityState{entityState("d1_door", true, start)}))
	gone := entityState("d1_door", false, start.Add(time.Minute))
	gone.Available = false
	require.NoError(t, db.Write(ctx, []model.EntityState{gone}))

	history, err := db.History(ctx, "d1_door", start)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].On)
}

func TestDatabase_Ping(t *testing.T) {
	db := setupDatabase(t)
	require.NoError(t, db.Ping(context.Background()))
}

func TestDatabase_Cleanup(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, db.Write(ctx, []model.EntityState{
		entityState("old", true, now.AddDate(0, 0, -10)),
		entityState("new", true, now),
	}))

	removed, err := db.Cleanup(ctx, 8*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	latest, err := db.LatestStates(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "new", latest[0].UniqueID)
}

func TestDatabase_HistoryUnknownEntity(t *testing.T) {
	db := setupDatabase(t)

	history, err := db.History(context.Background(), "missing", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, history)
}
