package cache

const schema = `
-- Full-hash cache keyed by path. A row is valid only while the file's
-- size and mtime still match what was hashed.
CREATE TABLE IF NOT EXISTS hashes (
    path TEXT PRIMARY KEY,
    size INTEGER NOT NULL,
    mtime_ns INTEGER NOT NULL,
    full_hash TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_hashes_updated_at ON hashes(updated_at);
`
