package store

const schema = `
-- Managed machines; hostname is the agent identity, token its credential
CREATE TABLE IF NOT EXISTS machines (
    id           TEXT PRIMARY KEY,
    hostname     TEXT    NOT NULL UNIQUE,
    ip_address   TEXT    NOT NULL DEFAULT 'unknown',
    mac_address  TEXT,
    os_version   TEXT,
    department   TEXT    NOT NULL DEFAULT 'General',
    grp          TEXT,
    label        TEXT,
    tags         TEXT,
    token        TEXT    NOT NULL,
    last_seen_at INTEGER NOT NULL,
    created_at   INTEGER NOT NULL
);

-- Telemetry snapshots (24h retention per machine)
CREATE TABLE IF NOT EXISTS reports (
    id               TEXT PRIMARY KEY,
    machine_id       TEXT    NOT NULL REFERENCES machines(id) ON DELETE CASCADE,
    cpu_usage        REAL    NOT NULL,
    cpu_cores        INTEGER,
    cpu_speed        TEXT,
    cpu_temp         REAL,
    ram_total        REAL    NOT NULL,
    ram_used         REAL    NOT NULL,
    ram_usage        REAL    NOT NULL,
    disk_total       REAL    NOT NULL,
    disk_used        REAL    NOT NULL,
    disk_usage       REAL    NOT NULL,
    network_up       INTEGER NOT NULL DEFAULT 1,
    uptime           REAL,
    antivirus_status TEXT,
    event_log_errors INTEGER NOT NULL DEFAULT 0,
    telemetry_json   TEXT,
    created_at       INTEGER NOT NULL
);

-- Per-machine threshold overrides; absent row means defaults
CREATE TABLE IF NOT EXISTS alert_thresholds (
    machine_id       TEXT PRIMARY KEY REFERENCES machines(id) ON DELETE CASCADE,
    cpu_threshold    REAL    NOT NULL,
    ram_threshold    REAL    NOT NULL,
    disk_threshold   REAL    NOT NULL,
    event_log_errors INTEGER NOT NULL,
    updated_at       INTEGER NOT NULL
);

-- Alert records, deduplicated per (machine, type) while unresolved
CREATE TABLE IF NOT EXISTS alerts (
    id          TEXT PRIMARY KEY,
    machine_id  TEXT    NOT NULL REFERENCES machines(id) ON DELETE CASCADE,
    type        TEXT    NOT NULL,
    severity    TEXT    NOT NULL,
    message     TEXT    NOT NULL,
    resolved    INTEGER NOT NULL DEFAULT 0,
    resolved_at INTEGER,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);

-- Remote commands: pending -> executing -> completed | failed
CREATE TABLE IF NOT EXISTS commands (
    id          TEXT PRIMARY KEY,
    machine_id  TEXT    NOT NULL REFERENCES machines(id) ON DELETE CASCADE,
    action      TEXT    NOT NULL,
    params_json TEXT,
    status      TEXT    NOT NULL,
    result      TEXT,
    created_at  INTEGER NOT NULL,
    claimed_at  INTEGER,
    executed_at INTEGER
);

-- Screenshot artifacts; path is relative to the artifact root
CREATE TABLE IF NOT EXISTS screenshots (
    id         TEXT PRIMARY KEY,
    machine_id TEXT    NOT NULL REFERENCES machines(id) ON DELETE CASCADE,
    command_id TEXT,
    path       TEXT    NOT NULL,
    created_at INTEGER NOT NULL
);

-- Singleton outbound notification settings
CREATE TABLE IF NOT EXISTS notification_config (
    id               TEXT PRIMARY KEY CHECK (id = 'default'),
    enabled          INTEGER NOT NULL,
    line_token       TEXT    NOT NULL,
    cpu_threshold    REAL    NOT NULL,
    ram_threshold    REAL    NOT NULL,
    disk_threshold   REAL    NOT NULL,
    notify_offline   INTEGER NOT NULL,
    notify_event_log INTEGER NOT NULL,
    cooldown_minutes INTEGER NOT NULL,
    updated_at       INTEGER NOT NULL
);

-- Secondary indexes
CREATE INDEX IF NOT EXISTS idx_reports_machine_ts ON reports(machine_id, created_at);
CREATE INDEX IF NOT EXISTS idx_reports_ts ON reports(created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_active ON alerts(machine_id, type) WHERE resolved = 0;
CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(created_at);
CREATE INDEX IF NOT EXISTS idx_commands_machine_status ON commands(machine_id, status, created_at);
CREATE INDEX IF NOT EXISTS idx_screenshots_machine ON screenshots(machine_id, created_at);
`
