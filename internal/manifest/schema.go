package manifest

const SchemaVersion = 1

const schemaSQL = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

-- Specification files seen by the splitter
CREATE TABLE IF NOT EXISTS spec_files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT UNIQUE NOT NULL,
    stem TEXT NOT NULL,
    content_hash TEXT,
    encoding TEXT DEFAULT 'utf-8',
    record_count INTEGER DEFAULT 0,
    status TEXT DEFAULT 'split',
    error_message TEXT,
    split_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_spec_files_stem ON spec_files(stem);
CREATE INDEX IF NOT EXISTS idx_spec_files_status ON spec_files(status);

-- One row per written <n>.json
CREATE TABLE IF NOT EXISTS examples (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_id INTEGER NOT NULL REFERENCES spec_files(id) ON DELETE CASCADE,
    number INTEGER NOT NULL,
    output_path TEXT NOT NULL,
    section TEXT,
    example INTEGER,
    start_line INTEGER,
    end_line INTEGER,
    record_hash TEXT NOT NULL,
    UNIQUE(file_id, number)
);

CREATE INDEX IF NOT EXISTS idx_examples_file ON examples(file_id);
CREATE INDEX IF NOT EXISTS idx_examples_section ON examples(section);
`

func GetSchema() string {
	return schemaSQL
}
