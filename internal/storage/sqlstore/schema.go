package sqlstore

// SQLiteSchema creates the tables on SQLite
var SQLiteSchema = []string{
	`CREATE TABLE IF NOT EXISTS rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		enabled BOOLEAN NOT NULL DEFAULT 1,
		profile_id TEXT NOT NULL DEFAULT '',
		priority INTEGER NOT NULL DEFAULT 0,
		pattern TEXT NOT NULL DEFAULT '{}',
		headers TEXT NOT NULL DEFAULT '[]',
		conditions TEXT NOT NULL DEFAULT '[]',
		resource_types TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS variables (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		value TEXT NOT NULL DEFAULT '',
		scope TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT 1,
		profile_id TEXT NOT NULL DEFAULT '',
		rule_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rules_profile ON rules (profile_id)`,
}

// PostgresSchema creates the tables on PostgreSQL
var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		profile_id TEXT NOT NULL DEFAULT '',
		priority INTEGER NOT NULL DEFAULT 0,
		pattern TEXT NOT NULL DEFAULT '{}',
		headers TEXT NOT NULL DEFAULT '[]',
		conditions TEXT NOT NULL DEFAULT '[]',
		resource_types TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS variables (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		value TEXT NOT NULL DEFAULT '',
		scope TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		profile_id TEXT NOT NULL DEFAULT '',
		rule_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rules_profile ON rules (profile_id)`,
}
