package storage

const schema = `
-- The 'items' table holds both collections; an item's kind decides which one.
CREATE TABLE IF NOT EXISTS items (
    kind TEXT NOT NULL,
    id INTEGER NOT NULL,
    source_text TEXT NOT NULL,
    target_text TEXT NOT NULL,
    example TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    hash TEXT,          -- set for items read from a deck source
    source_id INTEGER,

    PRIMARY KEY (kind, id),
    FOREIGN KEY(source_id) REFERENCES sources(id)
);

CREATE INDEX IF NOT EXISTS items_source_hash ON items(source_id, hash);

-- The 'miss_records' table keeps the ranked wrong-answer list per kind.
CREATE TABLE IF NOT EXISTS miss_records (
    kind TEXT NOT NULL,
    item_id INTEGER NOT NULL,
    source_text TEXT NOT NULL,
    target_text TEXT NOT NULL,
    miss_count INTEGER NOT NULL CHECK (miss_count >= 1),
    position INTEGER NOT NULL,

    PRIMARY KEY (kind, item_id)
);

-- The 'kv' table stores single values such as the streak and the notes.
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- The 'sources' table tracks deck sources, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned DATETIME
);
`
