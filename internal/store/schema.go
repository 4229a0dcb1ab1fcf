package store

// Migrations are applied in order at startup; the schema_version table records
// how far a store file has progressed. Each step uses idempotent DDL so a
// crash mid-migration is safe to re-run. Timestamps are stored as integer
// unix milliseconds (UTC) so range comparisons never depend on string format.

const migrationV1BaseTables = `
CREATE TABLE IF NOT EXISTS sessions (
    id            TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL DEFAULT '',
    source        TEXT NOT NULL DEFAULT 'live',
    start_time    INTEGER NOT NULL,
    end_time      INTEGER NOT NULL,
    input_tokens  INTEGER NOT NULL DEFAULT 0,
    output_tokens INTEGER NOT NULL DEFAULT 0,
    total_tokens  INTEGER NOT NULL DEFAULT 0,
    cost_usd      REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS thinking_blocks (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id     TEXT NOT NULL DEFAULT '',
    ts             INTEGER NOT NULL,
    content        TEXT NOT NULL,
    token_estimate INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tool_calls (
    id         TEXT PRIMARY KEY,
    session_id TEXT NOT NULL DEFAULT '',
    ts         INTEGER NOT NULL,
    tool_name  TEXT NOT NULL,
    input      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS tool_results (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    tool_call_id TEXT NOT NULL,
    session_id   TEXT NOT NULL DEFAULT '',
    ts           INTEGER NOT NULL,
    output       TEXT NOT NULL DEFAULT '',
    duration_ms  INTEGER NOT NULL DEFAULT 0,
    success      INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS api_usage (
    id                    INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id            TEXT NOT NULL DEFAULT '',
    ts                    INTEGER NOT NULL,
    model                 TEXT NOT NULL,
    input_tokens          INTEGER NOT NULL DEFAULT 0,
    output_tokens         INTEGER NOT NULL DEFAULT 0,
    cache_creation_tokens INTEGER NOT NULL DEFAULT 0,
    cache_read_tokens     INTEGER NOT NULL DEFAULT 0,
    cost_usd              REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS user_prompts (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL DEFAULT '',
    ts         INTEGER NOT NULL,
    content    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS assistant_responses (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL DEFAULT '',
    ts         INTEGER NOT NULL,
    content    TEXT NOT NULL
);
`

// External-content FTS indexes: they store tokens plus a rowid reference into
// the base table. Inserts and deletes are synced explicitly by the writer in
// the same transaction as the base row; there are no triggers.
const migrationV2SearchIndexes = `
CREATE VIRTUAL TABLE IF NOT EXISTS thinking_fts USING fts5(
    content,
    content='thinking_blocks',
    content_rowid='id',
    tokenize='porter'
);

CREATE VIRTUAL TABLE IF NOT EXISTS prompts_fts USING fts5(
    content,
    content='user_prompts',
    content_rowid='id',
    tokenize='porter'
);

CREATE VIRTUAL TABLE IF NOT EXISTS responses_fts USING fts5(
    content,
    content='assistant_responses',
    content_rowid='id',
    tokenize='porter'
);
`

const migrationV3Indexes = `
CREATE INDEX IF NOT EXISTS idx_thinking_ts      ON thinking_blocks(ts);
CREATE INDEX IF NOT EXISTS idx_thinking_session ON thinking_blocks(session_id);
CREATE INDEX IF NOT EXISTS idx_calls_ts         ON tool_calls(ts);
CREATE INDEX IF NOT EXISTS idx_calls_session    ON tool_calls(session_id);
CREATE INDEX IF NOT EXISTS idx_results_ts       ON tool_results(ts);
CREATE INDEX IF NOT EXISTS idx_results_call     ON tool_results(tool_call_id);
CREATE INDEX IF NOT EXISTS idx_usage_ts         ON api_usage(ts);
CREATE INDEX IF NOT EXISTS idx_usage_model      ON api_usage(model);
CREATE INDEX IF NOT EXISTS idx_prompts_ts       ON user_prompts(ts);
CREATE INDEX IF NOT EXISTS idx_responses_ts     ON assistant_responses(ts);
CREATE INDEX IF NOT EXISTS idx_sessions_start   ON sessions(start_time);
`

// migrations is the ordered migration sequence; index i applies version i+1.
var migrations = []string{
	migrationV1BaseTables,
	migrationV2SearchIndexes,
	migrationV3Indexes,
}
