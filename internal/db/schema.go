package db

// One manuscript per database file, mirroring how a .loom.db sits next to a
// book project. List columns hold JSON arrays.
const schema = `
CREATE TABLE IF NOT EXISTS manuscript (
	id                 TEXT PRIMARY KEY CHECK (id = 'manuscript'),
	title              TEXT NOT NULL,
	author             TEXT,
	current_version_id TEXT,
	created_at         INTEGER NOT NULL,
	updated_at         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chapters (
	id               TEXT PRIMARY KEY,
	position         INTEGER NOT NULL,
	title            TEXT NOT NULL,
	content          TEXT,
	pov              TEXT,
	timeframe        TEXT,
	tension          INTEGER NOT NULL DEFAULT 0,
	locations        TEXT,
	major_events     TEXT,
	tech_concepts    TEXT,
	arc_tags         TEXT,
	introduces       TEXT,
	required_knowledge TEXT,
	continuity_rules TEXT
);

CREATE TABLE IF NOT EXISTS chapter_refs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	chapter_id  TEXT NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
	target_id   TEXT NOT NULL,
	ref_type    TEXT NOT NULL,
	strength    TEXT NOT NULL,
	description TEXT
);

CREATE TABLE IF NOT EXISTS characters (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	first_appearance TEXT,
	tier             TEXT
);

CREATE TABLE IF NOT EXISTS locations (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	first_appearance TEXT,
	tier             TEXT
);

CREATE TABLE IF NOT EXISTS versions (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	description   TEXT,
	chapter_order TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	is_base       INTEGER NOT NULL DEFAULT 0,
	parent_id     TEXT
);

CREATE TABLE IF NOT EXISTS changes (
	id           TEXT PRIMARY KEY,
	version_id   TEXT NOT NULL REFERENCES versions(id) ON DELETE CASCADE,
	change_type  TEXT NOT NULL,
	chapter_id   TEXT NOT NULL,
	old_position INTEGER NOT NULL,
	new_position INTEGER NOT NULL,
	description  TEXT,
	created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chapter_refs_chapter ON chapter_refs(chapter_id);
CREATE INDEX IF NOT EXISTS idx_changes_version ON changes(version_id);
`
