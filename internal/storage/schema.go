package storage

const schema = `
-- The 'blobs' table stores whole serialized documents under fixed keys,
-- e.g. the deck collection and the review session history.
CREATE TABLE IF NOT EXISTS blobs (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at DATETIME NOT NULL
);

-- The 'sources' table tracks where imported vocabulary comes from, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local', -- 'local' or 'git'
    deck_id TEXT NOT NULL,
    target_language TEXT NOT NULL DEFAULT '',
    native_language TEXT NOT NULL DEFAULT '',
    last_scanned DATETIME
);
`
