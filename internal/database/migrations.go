package database

// Timestamps are TEXT in a fixed-width UTC layout so they sort
// lexicographically; see timeLayout.
const schema = `
CREATE TABLE IF NOT EXISTS scenes (
    seq INTEGER PRIMARY KEY,
    scene_id TEXT NOT NULL UNIQUE,
    batch_name TEXT NOT NULL,
    base_filename TEXT NOT NULL,
    capture_date TEXT,
    description TEXT,
    description_model TEXT,
    description_timestamp TEXT,
    short_description TEXT,
    roll_number TEXT,
    roll_date TEXT,
    date_source TEXT,
    date_notes TEXT,
    roll_comment TEXT,
    index_book_number TEXT,
    index_book_date TEXT,
    index_book_comment TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE (batch_name, base_filename)
);

CREATE INDEX IF NOT EXISTS idx_scenes_batch ON scenes (batch_name);
CREATE INDEX IF NOT EXISTS idx_scenes_roll_number ON scenes (roll_number);
CREATE INDEX IF NOT EXISTS idx_scenes_roll_date ON scenes (roll_date);
CREATE INDEX IF NOT EXISTS idx_scenes_updated ON scenes (updated_at);

CREATE TABLE IF NOT EXISTS image_versions (
    version_id TEXT PRIMARY KEY,
    scene_id TEXT NOT NULL REFERENCES scenes (scene_id) ON DELETE CASCADE,
    version_type TEXT NOT NULL,
    local_path TEXT NOT NULL DEFAULT '',
    storage_key TEXT,
    perceptual_hash TEXT,
    checksum TEXT,
    file_size INTEGER,
    is_current INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    synced_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_versions_scene ON image_versions (scene_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_versions_one_current ON image_versions (scene_id) WHERE is_current = 1;
CREATE INDEX IF NOT EXISTS idx_versions_hash_live ON image_versions (perceptual_hash) WHERE storage_key IS NOT NULL;

CREATE VIRTUAL TABLE IF NOT EXISTS scenes_fts USING fts5(
    base_filename,
    description,
    short_description,
    roll_comment,
    date_notes,
    index_book_comment,
    content = 'scenes',
    content_rowid = 'seq',
    tokenize = 'unicode61'
);

CREATE TRIGGER IF NOT EXISTS scenes_fts_insert AFTER INSERT ON scenes BEGIN
    INSERT INTO scenes_fts (rowid, base_filename, description, short_description, roll_comment, date_notes, index_book_comment)
    VALUES (new.seq, new.base_filename, new.description, new.short_description, new.roll_comment, new.date_notes, new.index_book_comment);
END;

CREATE TRIGGER IF NOT EXISTS scenes_fts_delete AFTER DELETE ON scenes BEGIN
    INSERT INTO scenes_fts (scenes_fts, rowid, base_filename, description, short_description, roll_comment, date_notes, index_book_comment)
    VALUES ('delete', old.seq, old.base_filename, old.description, old.short_description, old.roll_comment, old.date_notes, old.index_book_comment);
END;

CREATE TRIGGER IF NOT EXISTS scenes_fts_update AFTER UPDATE ON scenes BEGIN
    INSERT INTO scenes_fts (scenes_fts, rowid, base_filename, description, short_description, roll_comment, date_notes, index_book_comment)
    VALUES ('delete', old.seq, old.base_filename, old.description, old.short_description, old.roll_comment, old.date_notes, old.index_book_comment);
    INSERT INTO scenes_fts (rowid, base_filename, description, short_description, roll_comment, date_notes, index_book_comment)
    VALUES (new.seq, new.base_filename, new.description, new.short_description, new.roll_comment, new.date_notes, new.index_book_comment);
END;

CREATE TABLE IF NOT EXISTS sync_runs (
    id TEXT PRIMARY KEY,
    sync_type TEXT NOT NULL,
    scenes_synced INTEGER NOT NULL DEFAULT 0,
    versions_marked_live INTEGER NOT NULL DEFAULT 0,
    started_at TEXT NOT NULL,
    completed_at TEXT,
    status TEXT NOT NULL,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs (started_at);
`
