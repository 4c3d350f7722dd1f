package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS transactions (
    id                   INTEGER PRIMARY KEY,
    user_id              INTEGER NOT NULL,
    date                 TEXT NOT NULL,
    amount               TEXT NOT NULL,
    category             TEXT NOT NULL DEFAULT '',
    merchant             TEXT NOT NULL DEFAULT '',
    payment_method       TEXT NOT NULL DEFAULT '',
    imported_at          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS model_bundles (
    id                   TEXT PRIMARY KEY,
    kind                 TEXT NOT NULL,
    user_id              INTEGER NOT NULL DEFAULT 0,
    created_at           TEXT NOT NULL,
    fingerprint          TEXT NOT NULL,
    tuned                INTEGER NOT NULL DEFAULT 0,
    payload              BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS file_tracker (
    file_path            TEXT PRIMARY KEY,
    mtime_ns             INTEGER NOT NULL,
    size_bytes           INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);
CREATE INDEX IF NOT EXISTS idx_bundles_kind_user ON model_bundles(kind, user_id, created_at);
`
