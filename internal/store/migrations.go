package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS timeline_records (
	target_kind TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	kind        TEXT NOT NULL,
	id          TEXT NOT NULL,
	sort_date   DATETIME NOT NULL,
	is_pinned   INTEGER NOT NULL DEFAULT 0,
	payload     TEXT NOT NULL DEFAULT '{}',
	fetched_at  DATETIME NOT NULL,
	PRIMARY KEY (target_kind, target_id, kind, id)
);

CREATE INDEX IF NOT EXISTS idx_records_target
	ON timeline_records(target_kind, target_id, sort_date);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
