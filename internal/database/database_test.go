package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	pg := &Database{Dialect: Postgres}
	lite := &Database{Dialect: SQLite}

	query := "SELECT id FROM readings WHERE device_id = ? AND recorded_at >= ? LIMIT ?"

	assert.Equal(t, "SELECT id FROM readings WHERE device_id = $1 AND recorded_at >= $2 LIMIT $3", pg.Rebind(query))
	assert.Equal(t, query, lite.Rebind(query))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:data/energy.db?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", sqliteDSN("data/energy.db"))
	assert.Equal(t, "file:x?mode=memory&_foreign_keys=on&_busy_timeout=5000", sqliteDSN("file:x?mode=memory"))
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLiteMemory(ctx, uuid.NewString())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Health(ctx))

	for _, table := range []string{"devices", "readings", "alert_thresholds", "alerts", "billing_config"} {
		var name string
		err := db.DB.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestReadingsAreAppendOnly(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLiteMemory(ctx, uuid.NewString())
	require.NoError(t, err)
	defer db.Close()

	deviceID := uuid.NewString()
	_, err = db.DB.ExecContext(ctx, "INSERT INTO devices (id, name, token_hash) VALUES (?, ?, ?)", deviceID, "meter", "hash")
	require.NoError(t, err)

	_, err = db.DB.ExecContext(ctx, `INSERT INTO readings
		(device_id, voltage, current_a, power_w, energy_kwh, frequency, power_factor, recorded_at)
		VALUES (?, 230, 5, 1150, 1.5, 60, 0.95, CURRENT_TIMESTAMP)`, deviceID)
	require.NoError(t, err)

	_, err = db.DB.ExecContext(ctx, "UPDATE readings SET voltage = 240")
	assert.ErrorContains(t, err, "append-only")

	_, err = db.DB.ExecContext(ctx, "DELETE FROM readings")
	assert.ErrorContains(t, err, "append-only")
}
