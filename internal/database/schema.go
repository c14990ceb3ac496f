package database

const postgresSchema = `
CREATE TABLE IF NOT EXISTS devices (
	id           UUID PRIMARY KEY,
	name         TEXT NOT NULL,
	location     TEXT,
	token_hash   TEXT NOT NULL UNIQUE,
	is_active    BOOLEAN NOT NULL DEFAULT TRUE,
	last_seen_at TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS readings (
	id           BIGSERIAL PRIMARY KEY,
	device_id    UUID NOT NULL REFERENCES devices(id),
	voltage      DOUBLE PRECISION NOT NULL,
	current_a    DOUBLE PRECISION NOT NULL,
	power_w      DOUBLE PRECISION NOT NULL,
	energy_kwh   DOUBLE PRECISION NOT NULL,
	frequency    DOUBLE PRECISION NOT NULL,
	power_factor DOUBLE PRECISION NOT NULL,
	recorded_at  TIMESTAMPTZ NOT NULL,
	received_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_readings_device_recorded ON readings(device_id, recorded_at, id);

CREATE OR REPLACE FUNCTION readings_append_only() RETURNS trigger AS $$
BEGIN
	RAISE EXCEPTION 'readings are append-only';
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_readings_append_only ON readings;
CREATE TRIGGER trg_readings_append_only
	BEFORE UPDATE OR DELETE ON readings
	FOR EACH ROW EXECUTE FUNCTION readings_append_only();

CREATE TABLE IF NOT EXISTS alert_thresholds (
	id                     INTEGER PRIMARY KEY CHECK (id = 1),
	overvoltage            DOUBLE PRECISION NOT NULL,
	undervoltage           DOUBLE PRECISION NOT NULL,
	overcurrent            DOUBLE PRECISION NOT NULL,
	high_power             DOUBLE PRECISION NOT NULL,
	device_offline_seconds INTEGER NOT NULL,
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS alerts (
	id         UUID PRIMARY KEY,
	device_id  UUID NOT NULL REFERENCES devices(id),
	type       TEXT NOT NULL CHECK (type IN ('OVERVOLTAGE','UNDERVOLTAGE','OVERCURRENT','HIGH_POWER','DEVICE_OFFLINE')),
	value      DOUBLE PRECISION NOT NULL,
	threshold  DOUBLE PRECISION NOT NULL,
	message    TEXT NOT NULL,
	is_read    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_alerts_unread ON alerts(is_read, created_at DESC);

CREATE TABLE IF NOT EXISTS billing_config (
	id           BIGSERIAL PRIMARY KEY,
	rate_per_kwh DOUBLE PRECISION NOT NULL CHECK (rate_per_kwh >= 0),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS devices (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	location     TEXT,
	token_hash   TEXT NOT NULL UNIQUE,
	is_active    BOOLEAN NOT NULL DEFAULT 1,
	last_seen_at TIMESTAMP,
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS readings (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	device_id    TEXT NOT NULL REFERENCES devices(id),
	voltage      REAL NOT NULL,
	current_a    REAL NOT NULL,
	power_w      REAL NOT NULL,
	energy_kwh   REAL NOT NULL,
	frequency    REAL NOT NULL,
	power_factor REAL NOT NULL,
	recorded_at  TIMESTAMP NOT NULL,
	received_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_readings_device_recorded ON readings(device_id, recorded_at, id);

CREATE TRIGGER IF NOT EXISTS trg_readings_no_update
	BEFORE UPDATE ON readings
BEGIN
	SELECT RAISE(ABORT, 'readings are append-only');
END;

CREATE TRIGGER IF NOT EXISTS trg_readings_no_delete
	BEFORE DELETE ON readings
BEGIN
	SELECT RAISE(ABORT, 'readings are append-only');
END;

CREATE TABLE IF NOT EXISTS alert_thresholds (
	id                     INTEGER PRIMARY KEY CHECK (id = 1),
	overvoltage            REAL NOT NULL,
	undervoltage           REAL NOT NULL,
	overcurrent            REAL NOT NULL,
	high_power             REAL NOT NULL,
	device_offline_seconds INTEGER NOT NULL,
	updated_at             TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS alerts (
	id         TEXT PRIMARY KEY,
	device_id  TEXT NOT NULL REFERENCES devices(id),
	type       TEXT NOT NULL CHECK (type IN ('OVERVOLTAGE','UNDERVOLTAGE','OVERCURRENT','HIGH_POWER','DEVICE_OFFLINE')),
	value      REAL NOT NULL,
	threshold  REAL NOT NULL,
	message    TEXT NOT NULL,
	is_read    BOOLEAN NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_alerts_unread ON alerts(is_read, created_at DESC);

CREATE TABLE IF NOT EXISTS billing_config (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	rate_per_kwh REAL NOT NULL CHECK (rate_per_kwh >= 0),
	updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
