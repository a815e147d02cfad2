package storage

const schema = `
-- The 'cards' table holds the imported note cards; content is opaque to the
-- scheduling engine.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    path TEXT,
    source_id INTEGER,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

-- The 'card_progress' table is the scheduling state, one row per rated card.
CREATE TABLE IF NOT EXISTS card_progress (
    card_id TEXT PRIMARY KEY,
    interval INTEGER NOT NULL DEFAULT 0,
    ease_factor REAL NOT NULL DEFAULT 2.5,
    review_count INTEGER NOT NULL DEFAULT 0,
    correct_count INTEGER NOT NULL DEFAULT 0,
    next_review DATETIME,
    created_at DATETIME,
    last_reviewed DATETIME,
    last_updated DATETIME NOT NULL
);

-- The 'review_history' table is the append-only rating log, newest rows have
-- the highest ids. The retained size is bounded in code on every append.
CREATE TABLE IF NOT EXISTS review_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id TEXT NOT NULL,
    card_title TEXT NOT NULL,
    quality INTEGER NOT NULL,
    interval INTEGER NOT NULL,
    ease_factor REAL NOT NULL,
    timestamp DATETIME NOT NULL
);

-- The 'sources' table tracks where cards come from, either a local directory
-- or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned DATETIME
);
`
