// Package manifest keeps a sqlite record of split specification files and
// the example files written for them.
package manifest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/md4c-json/specsplit/internal/splitter"
)

type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ splitter.Recorder = (*Store)(nil)

func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) initSchema() error {
	var cleanLines []string
	for _, line := range strings.Split(GetSchema(), "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "--") && trimmed != "" {
			cleanLines = append(cleanLines, line)
		}
	}

	if _, err := s.db.Exec(strings.Join(cleanLines, "\n")); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	_, _ = s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, SchemaVersion)
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSplit stores a successful split, replacing the example rows of any
// earlier split of the same file.
func (s *Store) RecordSplit(ctx context.Context, res splitter.FileResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var fileID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO spec_files (path, stem, content_hash, encoding, record_count, status, error_message, split_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL, ?)
		ON CONFLICT(path) DO UPDATE SET
			stem = excluded.stem,
			content_hash = excluded.content_hash,
			encoding = excluded.encoding,
			record_count = excluded.record_count,
			status = excluded.status,
			error_message = NULL,
			split_at = excluded.split_at
		RETURNING id
	`, res.SpecPath, res.Stem, res.ContentHash, res.Encoding, len(res.Outputs), StatusSplit, time.Now().UTC()).Scan(&fileID)
	if err != nil {
		return fmt.Errorf("upsert spec file: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM examples WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("clear examples: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO examples (file_id, number, output_path, section, example, start_line, end_line, record_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for _, out := range res.Outputs {
		meta := extractMeta(out.Data)
		_, err := stmt.ExecContext(ctx,
			fileID, out.Number, out.Path,
			meta.Section, meta.Example, meta.StartLine, meta.EndLine,
			splitter.HashContent(out.Data),
		)
		if err != nil {
			return fmt.Errorf("insert example %d: %w", out.Number, err)
		}
	}

	return tx.Commit()
}

// RecordFailure marks the file as failed. Rows of an earlier successful
// split stay, since their output files stay on disk as well.
func (s *Store) RecordFailure(ctx context.Context, res splitter.FileResult, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spec_files (path, stem, content_hash, encoding, record_count, status, error_message, split_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash = excluded.content_hash,
			encoding = excluded.encoding,
			status = excluded.status,
			error_message = excluded.error_message,
			split_at = excluded.split_at
	`, res.SpecPath, res.Stem, res.ContentHash, res.Encoding, StatusFailed, cause.Error(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

// GetFile returns nil when path was never recorded.
func (s *Store) GetFile(ctx context.Context, path string) (*SpecFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file := &SpecFile{}
	var contentHash, encoding, errorMsg sql.NullString
	var splitAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, path, stem, content_hash, encoding, record_count, status, error_message, split_at
		FROM spec_files WHERE path = ?
	`, path).Scan(
		&file.ID, &file.Path, &file.Stem, &contentHash, &encoding,
		&file.RecordCount, &file.Status, &errorMsg, &splitAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	file.ContentHash = contentHash.String
	file.Encoding = encoding.String
	file.ErrorMessage = errorMsg.String
	if splitAt.Valid {
		file.SplitAt = splitAt.Time
	}

	return file, nil
}

func (s *Store) ListExamples(ctx context.Context, filter Filter) ([]*Example, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT e.id, e.file_id, f.path, f.stem, e.number, e.output_path,
		       e.section, e.example, e.start_line, e.end_line, e.record_hash
		FROM examples e
		INNER JOIN spec_files f ON f.id = e.file_id
		WHERE 1 = 1`
	var args []any

	if filter.Stem != "" {
		query += " AND f.stem = ?"
		args = append(args, filter.Stem)
	}
	if filter.Section != "" {
		query += " AND e.section = ?"
		args = append(args, filter.Section)
	}
	query += " ORDER BY f.stem ASC, f.path ASC, e.number ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list examples: %w", err)
	}
	defer rows.Close()

	var examples []*Example

	for rows.Next() {
		ex := &Example{}
		var section sql.NullString
		var exampleNo, startLine, endLine sql.NullInt64

		err := rows.Scan(
			&ex.ID, &ex.FileID, &ex.SpecPath, &ex.Stem, &ex.Number, &ex.OutputPath,
			&section, &exampleNo, &startLine, &endLine, &ex.RecordHash,
		)
		if err != nil {
			return nil, fmt.Errorf("scan example: %w", err)
		}

		ex.Section = section.String
		ex.Example = int(exampleNo.Int64)
		ex.StartLine = int(startLine.Int64)
		ex.EndLine = int(endLine.Int64)

		examples = append(examples, ex)
	}

	return examples, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM spec_files
	`, StatusSplit, StatusFailed).Scan(&stats.TotalFiles, &stats.SplitFiles, &stats.FailedFiles)
	if err != nil {
		return nil, fmt.Errorf("count files: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM examples").Scan(&stats.Examples); err != nil {
		return nil, fmt.Errorf("count examples: %w", err)
	}

	var last sql.NullTime
	err = s.db.QueryRowContext(ctx, "SELECT split_at FROM spec_files ORDER BY split_at DESC LIMIT 1").Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("last split: %w", err)
	}
	if last.Valid {
		stats.LastSplitAt = last.Time
	}

	return stats, nil
}

type recordMeta struct {
	Section   *string `json:"section"`
	Example   *int    `json:"example"`
	StartLine *int    `json:"start_line"`
	EndLine   *int    `json:"end_line"`
}

// extractMeta reads the example metadata of a serialized record. Anything
// that is not an object with those keys yields NULL columns.
func extractMeta(data []byte) recordMeta {
	var meta recordMeta
	if len(data) == 0 || data[0] != '{' {
		return meta
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return recordMeta{}
	}
	return meta
}
